package model

import (
	"time"

	"github.com/google/uuid"
)

// ServerMsg is the closed set of messages the server sends to clients
type ServerMsg interface {
	// MsgType is the wire discriminator of the message
	MsgType() string
	serverMsg()
}

// Server message discriminators
const (
	MsgRegisterResult   = "register_result"
	MsgGameSync         = "game_sync"
	MsgPlayerListInit   = "player_list_init"
	MsgPlayerListAdd    = "player_list_add"
	MsgPlayerListRemove = "player_list_remove"
	MsgDisconnect       = "disconnect"
)

// RegisterResult acknowledges a registration; Err is nil on success
type RegisterResult struct {
	Err *RegisterError `json:"error,omitempty"`
}

// OK reports whether the registration succeeded
func (r RegisterResult) OK() bool { return r.Err == nil }

// ServerDescription is the locale-specific greeting shown to a client
type ServerDescription struct {
	Motd  string  `json:"motd"`
	Rules *string `json:"rules,omitempty"`
}

// ServerConstants are simulation constants the client must agree on
type ServerConstants struct {
	DayCycleCoefficient float64 `json:"day_cycle_coefficient"`
}

// EntityPackage is the tracked component state of the client's own entity
type EntityPackage struct {
	Uid        Uid               `json:"uid"`
	Components map[string]string `json:"components"`
}

// WorldMap is the serialized world map sent on admission
type WorldMap struct {
	Dimensions [2]uint32 `json:"dimensions"`
	SeaLevel   float32   `json:"sea_level"`
	Sites      []string  `json:"sites,omitempty"`
}

// GameSync is the initial world-sync payload sent once on admission
type GameSync struct {
	EntityPackage       EntityPackage     `json:"entity_package"`
	Role                *AdminRole        `json:"role,omitempty"`
	TimeOfDay           float64           `json:"time_of_day"`
	MaxGroupSize        uint32            `json:"max_group_size"`
	ClientTimeout       time.Duration     `json:"client_timeout"`
	WorldMap            WorldMap          `json:"world_map"`
	RecipeBook          []string          `json:"recipe_book"`
	ComponentRecipeBook []string          `json:"component_recipe_book"`
	RepairRecipeBook    []string          `json:"repair_recipe_book"`
	MaterialStats       map[string]uint32 `json:"material_stats"`
	AbilityMap          map[string]string `json:"ability_map"`
	ServerConstants     ServerConstants   `json:"server_constants"`
	Description         ServerDescription `json:"description"`
	ActivePlugins       []string          `json:"active_plugins"`
}

// PlayerListInit carries the full roster as of the start of the tick
type PlayerListInit struct {
	Players map[Uid]PlayerInfo `json:"players"`
}

// PlayerListAdd announces a newly admitted account
type PlayerListAdd struct {
	Uid  Uid        `json:"uid"`
	Info PlayerInfo `json:"info"`
}

// PlayerListRemove announces that a session left the roster
type PlayerListRemove struct {
	Uid Uid `json:"uid"`
}

// DisconnectKind classifies a disconnect notice sent to a client
type DisconnectKind string

const (
	DisconnectKicked            DisconnectKind = "kicked"
	DisconnectNewerLogin        DisconnectKind = "newer_login"
	DisconnectInvalidClientType DisconnectKind = "invalid_client_type"
	DisconnectShutdown          DisconnectKind = "shutdown"
)

// Disconnect tells a client it is being disconnected and why
type Disconnect struct {
	Kind    DisconnectKind `json:"kind"`
	Message string         `json:"message,omitempty"`
}

func (RegisterResult) MsgType() string   { return MsgRegisterResult }
func (GameSync) MsgType() string         { return MsgGameSync }
func (PlayerListInit) MsgType() string   { return MsgPlayerListInit }
func (PlayerListAdd) MsgType() string    { return MsgPlayerListAdd }
func (PlayerListRemove) MsgType() string { return MsgPlayerListRemove }
func (Disconnect) MsgType() string       { return MsgDisconnect }

func (RegisterResult) serverMsg()   {}
func (GameSync) serverMsg()         {}
func (PlayerListInit) serverMsg()   {}
func (PlayerListAdd) serverMsg()    {}
func (PlayerListRemove) serverMsg() {}
func (Disconnect) serverMsg()       {}

// NewerLoginMsg is sent to a session that was replaced by a newer login
const NewerLoginMsg = "You have logged in from another location."

// DisconnectReason is the server-side reason recorded with a disconnect event
type DisconnectReason string

const (
	ReasonKicked            DisconnectReason = "kicked"
	ReasonNewerLogin        DisconnectReason = "newer_login"
	ReasonInvalidClientType DisconnectReason = "invalid_client_type"
	ReasonClientClosed      DisconnectReason = "client_closed"
	ReasonShutdown          DisconnectReason = "shutdown"
)

// DisconnectEvent requests that a session be torn down at the end of the tick
type DisconnectEvent struct {
	Uid    Uid
	Reason DisconnectReason
}

// BanUpgrade asks the ledger to extend an account ban to the login's IP
type BanUpgrade struct {
	IP       string
	UUID     uuid.UUID
	Username string
}
