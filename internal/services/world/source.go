// Package world assembles the initial world-sync payload sent to a session
// on admission.
package world

import (
	"log/slog"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/mcoot/worldgate/internal/dependencies/clock"
	"github.com/mcoot/worldgate/internal/model"
)

// DayLength is the length of one in-game day in seconds of game time
const DayLength = 86400.0

// Description is the greeting for one locale
type Description struct {
	Motd  string  `toml:"motd"`
	Rules *string `toml:"rules"`
}

// Settings is the static world state clients are synced with
type Settings struct {
	MaxGroupSize        uint32
	ClientTimeout       time.Duration
	DayCycleCoefficient float64
	StartTimeOfDay      float64 // seconds into the day when the server starts
	WorldSize           [2]uint32
	SeaLevel            float32
	Sites               []string
	DefaultLocale       string
	Descriptions        map[string]Description
	Plugins             []string
	Recipes             []string
	ComponentRecipes    []string
	RepairRecipes       []string
	MaterialStats       map[string]uint32
	Abilities           map[string]string
}

// DefaultSettings returns settings for a small default world
func DefaultSettings() Settings {
	return Settings{
		MaxGroupSize:        6,
		ClientTimeout:       40 * time.Second,
		DayCycleCoefficient: 24.0,
		StartTimeOfDay:      9 * 3600,
		WorldSize:           [2]uint32{1024, 1024},
		SeaLevel:            140,
		DefaultLocale:       "en",
		Descriptions: map[string]Description{
			"en": {Motd: "Welcome to the server!"},
		},
	}
}

// Source builds GameSync payloads from the current server state
type Source struct {
	settings  Settings
	clock     clock.Clock
	startedAt time.Time
	logger    *slog.Logger
}

// New creates a Source. The in-game clock starts now.
func New(settings Settings, clock clock.Clock, logger *slog.Logger) *Source {
	return &Source{
		settings:  settings,
		clock:     clock,
		startedAt: clock.Now(),
		logger:    logger.With(slog.String("component", "world")),
	}
}

// TimeOfDay returns the current in-game time of day in seconds
func (s *Source) TimeOfDay() float64 {
	elapsed := s.clock.Now().Sub(s.startedAt).Seconds()
	return math.Mod(s.settings.StartTimeOfDay+elapsed*s.settings.DayCycleCoefficient, DayLength)
}

// Description returns the greeting for locale, falling back to the default
// locale and then to an empty description
func (s *Source) Description(locale *string) model.ServerDescription {
	if locale != nil {
		if d, ok := s.settings.Descriptions[*locale]; ok {
			return toModel(d)
		}
	}
	if d, ok := s.settings.Descriptions[s.settings.DefaultLocale]; ok {
		return toModel(d)
	}
	return model.ServerDescription{}
}

func toModel(d Description) model.ServerDescription {
	desc := model.ServerDescription{Motd: d.Motd}
	if d.Rules != nil {
		rules := *d.Rules
		desc.Rules = &rules
	}
	return desc
}

// Build assembles the world sync for a newly admitted session. It reads only
// immutable settings and the clock, so it is safe to call concurrently and
// rebuilding it yields the same payload for the same moment.
func (s *Source) Build(uid model.Uid, player model.Player, role *model.AdminRole, locale *string) model.GameSync {
	s.logger.Debug("building world sync", slog.Uint64("uid", uint64(uid)))

	var r *model.AdminRole
	if role != nil {
		copied := *role
		r = &copied
	}

	return model.GameSync{
		EntityPackage: model.EntityPackage{
			Uid: uid,
			Components: map[string]string{
				"alias":       player.Alias,
				"uuid":        player.UUID.String(),
				"battle_mode": string(player.BattleMode),
			},
		},
		Role:          r,
		TimeOfDay:     s.TimeOfDay(),
		MaxGroupSize:  s.settings.MaxGroupSize,
		ClientTimeout: s.settings.ClientTimeout,
		WorldMap: model.WorldMap{
			Dimensions: s.settings.WorldSize,
			SeaLevel:   s.settings.SeaLevel,
			Sites:      slices.Clone(s.settings.Sites),
		},
		RecipeBook:          cloneOrEmpty(s.settings.Recipes),
		ComponentRecipeBook: cloneOrEmpty(s.settings.ComponentRecipes),
		RepairRecipeBook:    cloneOrEmpty(s.settings.RepairRecipes),
		MaterialStats:       cloneMap(s.settings.MaterialStats),
		AbilityMap:          cloneMap(s.settings.Abilities),
		ServerConstants: model.ServerConstants{
			DayCycleCoefficient: s.settings.DayCycleCoefficient,
		},
		Description:   s.Description(locale),
		ActivePlugins: cloneOrEmpty(s.settings.Plugins),
	}
}

func cloneOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}

func cloneMap[V any](in map[string]V) map[string]V {
	if in == nil {
		return map[string]V{}
	}
	return maps.Clone(in)
}
