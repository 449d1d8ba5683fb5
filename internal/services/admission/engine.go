// Package admission admits authenticated sessions into the world once per
// tick, keeping at most one live session per account.
package admission

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/worldgate/internal/events"
	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/services/auth"
	"github.com/mcoot/worldgate/internal/services/roster"
	"github.com/mcoot/worldgate/internal/session"
)

// ReasonInvalidClientType is the rejection reason recorded for role mismatches
const ReasonInvalidClientType = "invalid_client_type"

// Authenticator starts credential verification
type Authenticator interface {
	BeginVerification(credential string) *auth.PendingLogin
}

// Ledger is the ban, admin and whitelist gate
type Ledger interface {
	CheckLogin(identity model.Identity, ip string) (*model.AdminRole, error)
	ApplyBanOperations() int
}

// SyncSource builds the initial world sync
type SyncSource interface {
	Build(uid model.Uid, player model.Player, role *model.AdminRole, locale *string) model.GameSync
}

// Recorder receives admission metrics
type Recorder interface {
	PlayerConnected()
	LoginRejected(reason string)
}

// Config holds configuration for the admission engine
type Config struct {
	// MaxPlayers caps the visible roster; zero or less means no cap.
	// Admins are not subject to the cap.
	MaxPlayers int
	// Workers is the size of the admission and broadcast worker pool
	Workers int
	// DefaultBattleMode is given to new players until they pick a character
	DefaultBattleMode model.BattleMode
}

// DefaultConfig returns default admission configuration
func DefaultConfig() Config {
	return Config{
		MaxPlayers:        100,
		Workers:           4,
		DefaultBattleMode: model.BattleModePvE,
	}
}

// Deps are the collaborators of the Engine
type Deps struct {
	Sessions    *session.Store
	Roster      *roster.Roster
	Tracker     *Tracker
	Broadcaster *roster.Broadcaster
	Disconnects *events.Bus[model.DisconnectEvent]
	Auth        Authenticator
	Ledger      Ledger
	World       SyncSource
	Recorder    Recorder
}

// Engine runs the per-tick admission pass
type Engine struct {
	cfg Config
	Deps
	logger *slog.Logger
}

// New creates an Engine
func New(cfg Config, deps Deps, logger *slog.Logger) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.DefaultBattleMode == "" {
		cfg.DefaultBattleMode = model.BattleModePvE
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &Engine{
		cfg:    cfg,
		Deps:   deps,
		logger: logger.With(slog.String("component", "admission")),
	}
}

type nopRecorder struct{}

func (nopRecorder) PlayerConnected()     {}
func (nopRecorder) LoginRejected(string) {}

type candidate struct {
	client  *session.Client
	pending *auth.PendingLogin
}

// Tick runs one admission pass: snapshot the roster, take in registration
// messages, resolve every pending login in parallel, merge the admitted
// sessions into the roster, broadcast them, and apply queued ban upgrades.
func (e *Engine) Tick(ctx context.Context) TickReport {
	var report TickReport

	snap := e.Roster.Snapshot()
	report.Intake = e.intake()

	candidates := e.candidates()
	acc := newAccumulator(len(snap.Players), e.cfg.MaxPlayers)
	outcomes := make([]Outcome, len(candidates))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, c := range candidates {
		g.Go(func() error {
			outcomes[i] = e.admitOne(c.client, c.pending, snap, acc)
			return nil
		})
	}
	_ = g.Wait()

	for i, out := range outcomes {
		uid := candidates[i].client.Uid()
		switch out.Kind {
		case OutcomePending:
			report.Pending++
		case OutcomeAdmitted:
			e.Tracker.Remove(uid)
			report.Admitted = append(report.Admitted, uid)
		case OutcomeRejected:
			e.Tracker.Remove(uid)
			report.Rejected = append(report.Rejected, uid)
		case OutcomeRetry:
			e.Tracker.Insert(uid, auth.NewResolvedLogin(out.Identity))
			report.Retried = append(report.Retried, uid)
		}
		if out.Replaced != nil {
			report.Replaced = append(report.Replaced, *out.Replaced)
		}
	}

	adds := e.merge(acc.admitted())
	if len(adds) > 0 {
		e.Broadcaster.Broadcast(ctx, e.boundSessions(), adds)
	}

	report.BanUpgrades = e.Ledger.ApplyBanOperations()
	return report
}

// intake starts verification for one queued registration message per
// session that has no pending login. Further messages stay queued.
func (e *Engine) intake() int {
	n := 0
	for _, c := range e.Sessions.All() {
		if c.Registered() || e.Tracker.Has(c.Uid()) {
			continue
		}
		msg, ok := c.TryRecvRegister()
		if !ok {
			continue
		}
		e.Tracker.Insert(c.Uid(), e.Auth.BeginVerification(msg.TokenOrUsername))
		if msg.Locale != nil {
			c.SetLocale(*msg.Locale)
		}
		n++
	}
	return n
}

// candidates returns sessions with a pending login and no roster entry, by uid
func (e *Engine) candidates() []candidate {
	var out []candidate
	for _, uid := range e.Tracker.Uids() {
		c, ok := e.Sessions.Get(uid)
		if !ok {
			// Disconnected before admission
			e.Tracker.Remove(uid)
			continue
		}
		if _, inRoster := e.Roster.Get(uid); inRoster {
			continue
		}
		pending, ok := e.Tracker.Get(uid)
		if !ok {
			continue
		}
		out = append(out, candidate{client: c, pending: pending})
	}
	return out
}

// admitOne runs the admission state machine for one session. It never holds
// the accumulator lock while sending.
func (e *Engine) admitOne(c *session.Client, pending *auth.PendingLogin, snap roster.Snapshot, acc *accumulator) Outcome {
	state, identity, err := pending.Poll()
	switch state {
	case auth.LoginUnresolved:
		return Outcome{Kind: OutcomePending}
	case auth.LoginFailed:
		return e.reject(c, model.AsRegisterError(err))
	}

	role, err := e.Ledger.CheckLogin(identity, c.IP())
	if err != nil {
		return e.reject(c, model.AsRegisterError(err))
	}

	if !c.Type().IsValidForRole(role) {
		e.send(c, model.Disconnect{Kind: model.DisconnectInvalidClientType})
		e.Disconnects.Emit(model.DisconnectEvent{Uid: c.Uid(), Reason: model.ReasonInvalidClientType})
		e.Recorder.LoginRejected(ReasonInvalidClientType)
		return Outcome{Kind: OutcomeRejected, Reason: ReasonInvalidClientType}
	}

	// Built outside the lock
	player := model.NewPlayer(identity, e.cfg.DefaultBattleMode)
	adm := &admission{
		client: c,
		player: player,
		role:   role,
		info: model.PlayerInfo{
			PlayerAlias: player.Alias,
			IsOnline:    true,
			IsModerator: role != nil,
			UUID:        player.UUID,
		},
	}
	valid := player.IsValid()
	if valid && c.Type().EmitLoginEvents() {
		add, err := session.Prepare(model.PlayerListAdd{Uid: c.Uid(), Info: adm.info})
		if err != nil {
			e.logger.Warn("failed to prepare roster update", slog.Any("error", err))
		} else {
			adm.add = &add
		}
	}
	var old *model.Uid
	if uid, ok := snap.OldByUUID[identity.UUID]; ok {
		old = &uid
	}

	v := acc.claim(adm, old, valid, role != nil)

	switch v.kind {
	case verdictFull:
		return e.reject(c, &model.RegisterError{Code: model.RegisterTooManyPlayers})

	case verdictDuplicate:
		e.replace(v.previous, v.previousClient)
		replaced := v.previous
		return Outcome{Kind: OutcomeRetry, Identity: identity, Replaced: &replaced}

	case verdictInvalid:
		e.send(c, model.RegisterResult{Err: &model.RegisterError{Code: model.RegisterInvalidCharacter}})
		e.Recorder.LoginRejected(string(model.RegisterInvalidCharacter))
		return Outcome{Kind: OutcomeRejected, Reason: string(model.RegisterInvalidCharacter)}
	}

	e.Recorder.PlayerConnected()
	if !e.send(c, model.RegisterResult{}) {
		return Outcome{Kind: OutcomeAdmitted, Identity: identity}
	}
	e.logger.Debug("starting initial sync", slog.Uint64("uid", uint64(c.Uid())))
	if e.send(c, e.World.Build(c.Uid(), player, role, c.Locale())) {
		e.logger.Debug("done initial sync", slog.Uint64("uid", uint64(c.Uid())))
		e.send(c, model.PlayerListInit{Players: snap.Players})
	}
	return Outcome{Kind: OutcomeAdmitted, Identity: identity}
}

// reject reports a register error to the client and disconnects it
func (e *Engine) reject(c *session.Client, rerr *model.RegisterError) Outcome {
	e.logger.Debug("login rejected",
		slog.Uint64("uid", uint64(c.Uid())),
		slog.String("code", string(rerr.Code)))
	e.Disconnects.Emit(model.DisconnectEvent{Uid: c.Uid(), Reason: model.ReasonKicked})
	e.send(c, model.RegisterResult{Err: rerr})
	e.Recorder.LoginRejected(string(rerr.Code))
	return Outcome{Kind: OutcomeRejected, Reason: string(rerr.Code)}
}

// replace disconnects the session previously bound to an account. client is
// known when the previous session was admitted earlier in this tick. A roster
// entry with no session is still torn down, and the new login retries next
// tick like any other duplicate instead of being admitted alongside it.
func (e *Engine) replace(previous model.Uid, client *session.Client) {
	if client == nil {
		var ok bool
		client, ok = e.Sessions.Get(previous)
		if !ok {
			e.logger.Warn("player without client detected", slog.Uint64("uid", uint64(previous)))
		}
	}
	if client != nil {
		e.send(client, model.Disconnect{Kind: model.DisconnectNewerLogin, Message: model.NewerLoginMsg})
	}
	e.Disconnects.Emit(model.DisconnectEvent{Uid: previous, Reason: model.ReasonNewerLogin})
}

// merge adds the tick's admissions to the roster in admission order and
// returns their prepared roster updates. Runs on the tick goroutine only.
func (e *Engine) merge(admitted []*admission) []session.Prepared {
	var adds []session.Prepared
	for _, adm := range admitted {
		uid := adm.client.Uid()
		err := e.Roster.Insert(roster.Entry{
			Uid:        uid,
			ClientType: adm.client.Type(),
			Info:       adm.info,
			Role:       adm.role,
		})
		if err != nil {
			e.logger.Warn("failed to add player to roster",
				slog.Uint64("uid", uint64(uid)),
				slog.Any("error", err))
			continue
		}
		adm.client.SetRegistered(true)

		attrs := []any{
			slog.String("username", adm.player.Alias),
			slog.String("uuid", adm.player.UUID.String()),
			slog.Uint64("uid", uint64(uid)),
		}
		if adm.role != nil {
			attrs = append(attrs, slog.String("role", string(*adm.role)))
		}
		e.logger.Info("new user", attrs...)

		if adm.add != nil {
			adds = append(adds, *adm.add)
		}
	}
	return adds
}

// boundSessions returns every open session with a roster entry
func (e *Engine) boundSessions() []*session.Client {
	var out []*session.Client
	for _, c := range e.Sessions.All() {
		if c.Registered() && !c.Closed() {
			out = append(out, c)
		}
	}
	return out
}

// send delivers msg, logging failures. Returns false if the send failed.
func (e *Engine) send(c *session.Client, msg model.ServerMsg) bool {
	if err := c.Send(msg); err != nil {
		e.logger.Debug("failed to process register",
			slog.Uint64("uid", uint64(c.Uid())),
			slog.String("msg_type", msg.MsgType()),
			slog.Any("error", err))
		return false
	}
	return true
}
