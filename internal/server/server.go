// Package server owns the session store, roster and admission engine and
// drives them from a single tick loop.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/worldgate/internal/dependencies/clock"
	"github.com/mcoot/worldgate/internal/events"
	"github.com/mcoot/worldgate/internal/metrics"
	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/services/admission"
	"github.com/mcoot/worldgate/internal/services/roster"
	"github.com/mcoot/worldgate/internal/session"
)

// Config holds configuration for the tick loop
type Config struct {
	TickRate  time.Duration
	Admission admission.Config
}

// DefaultConfig returns default tick loop configuration
func DefaultConfig() Config {
	return Config{
		TickRate:  50 * time.Millisecond,
		Admission: admission.DefaultConfig(),
	}
}

// Deps are the services the server admits sessions against
type Deps struct {
	Auth    admission.Authenticator
	Ledger  admission.Ledger
	World   admission.SyncSource
	Metrics *metrics.Metrics
	Clock   clock.Clock
}

// TickReport summarises one tick
type TickReport struct {
	admission.TickReport
	Disconnected []model.Uid
}

// Server is the world's connection registry and tick loop
type Server struct {
	cfg         Config
	sessions    *session.Store
	roster      *roster.Roster
	tracker     *admission.Tracker
	broadcaster *roster.Broadcaster
	disconnects *events.Bus[model.DisconnectEvent]
	engine      *admission.Engine
	metrics     *metrics.Metrics
	clock       clock.Clock
	logger      *slog.Logger
}

// New creates a Server with an empty roster
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultConfig().TickRate
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	s := &Server{
		cfg:         cfg,
		sessions:    session.NewStore(),
		roster:      roster.New(),
		tracker:     admission.NewTracker(),
		broadcaster: roster.NewBroadcaster(cfg.Admission.Workers, logger),
		disconnects: events.NewBus[model.DisconnectEvent](),
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		logger:      logger.With(slog.String("component", "server")),
	}
	s.engine = admission.New(cfg.Admission, admission.Deps{
		Sessions:    s.sessions,
		Roster:      s.roster,
		Tracker:     s.tracker,
		Broadcaster: s.broadcaster,
		Disconnects: s.disconnects,
		Auth:        deps.Auth,
		Ledger:      deps.Ledger,
		World:       deps.World,
		Recorder:    deps.Metrics,
	}, logger)
	return s
}

// Accept registers a new connection. The returned session takes part in
// admission from the next tick.
func (s *Server) Accept(transport session.Transport, clientType model.ClientType, ip string) *session.Client {
	c := s.sessions.Create(transport, clientType, ip, s.clock.Now())
	s.logger.Debug("client connected",
		slog.Uint64("uid", uint64(c.Uid())),
		slog.String("client_type", string(clientType.Kind)),
		slog.String("ip", ip))
	return c
}

// Disconnect queues a session for teardown at the end of the current tick.
// Safe for concurrent use.
func (s *Server) Disconnect(uid model.Uid, reason model.DisconnectReason) {
	s.disconnects.Emit(model.DisconnectEvent{Uid: uid, Reason: reason})
}

// Roster returns the current roster entries ordered by uid
func (s *Server) Roster() []roster.Entry {
	return s.roster.Entries()
}

// Sessions returns the number of open sessions
func (s *Server) Sessions() int {
	return s.sessions.Len()
}

// Metrics returns the server's collectors
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Tick runs one admission pass then tears down disconnected sessions
func (s *Server) Tick(ctx context.Context) TickReport {
	start := s.clock.Now()

	report := TickReport{TickReport: s.engine.Tick(ctx)}
	report.Disconnected = s.processDisconnects(ctx)

	s.metrics.SetPlayersOnline(s.roster.Len())
	s.metrics.ObserveTick(s.clock.Since(start))
	return report
}

// processDisconnects drains the disconnect bus, closes and forgets each
// session, and announces departures to the remaining roster
func (s *Server) processDisconnects(ctx context.Context) []model.Uid {
	evs := s.disconnects.Drain()
	if len(evs) == 0 {
		return nil
	}

	var (
		gone    []model.Uid
		removes []session.Prepared
		seen    = make(map[model.Uid]bool, len(evs))
	)
	for _, ev := range evs {
		if seen[ev.Uid] {
			continue
		}
		seen[ev.Uid] = true
		s.tracker.Remove(ev.Uid)

		c, ok := s.sessions.Remove(ev.Uid)
		if ok {
			_ = c.Close()
		}
		entry, inRoster := s.roster.Remove(ev.Uid)
		if !ok && !inRoster {
			continue
		}
		gone = append(gone, ev.Uid)
		s.logger.Info("client disconnected",
			slog.Uint64("uid", uint64(ev.Uid)),
			slog.String("reason", string(ev.Reason)))

		if inRoster && entry.ClientType.EmitLoginEvents() {
			p, err := session.Prepare(model.PlayerListRemove{Uid: ev.Uid})
			if err != nil {
				s.logger.Warn("failed to prepare roster update", slog.Any("error", err))
				continue
			}
			removes = append(removes, p)
		}
	}

	if len(removes) > 0 {
		s.broadcaster.Broadcast(ctx, s.boundSessions(), removes)
	}
	return gone
}

func (s *Server) boundSessions() []*session.Client {
	var out []*session.Client
	for _, c := range s.sessions.All() {
		if c.Registered() && !c.Closed() {
			out = append(out, c)
		}
	}
	return out
}

// Run ticks at the configured rate until ctx is cancelled, then disconnects
// every session
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickRate)
	defer ticker.Stop()

	s.logger.Info("tick loop started", slog.Duration("tick_rate", s.cfg.TickRate))
	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Shutdown tells every session the server is going away and closes it
func (s *Server) Shutdown() {
	clients := s.sessions.All()
	for _, c := range clients {
		if err := c.Send(model.Disconnect{Kind: model.DisconnectShutdown}); err != nil {
			s.logger.Debug("failed to send shutdown notice",
				slog.Uint64("uid", uint64(c.Uid())),
				slog.Any("error", err))
		}
		_ = c.Close()
		s.sessions.Remove(c.Uid())
		s.roster.Remove(c.Uid())
		s.tracker.Remove(c.Uid())
	}
	s.metrics.SetPlayersOnline(0)
	s.logger.Info("tick loop stopped", slog.Int("sessions_closed", len(clients)))
}
