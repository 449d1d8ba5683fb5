package roster

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/worldgate/internal/session"
)

// Broadcaster delivers roster updates to many sessions using a fixed number
// of workers
type Broadcaster struct {
	workers int
	logger  *slog.Logger
}

// NewBroadcaster creates a Broadcaster. workers below one means one.
func NewBroadcaster(workers int, logger *slog.Logger) *Broadcaster {
	if workers < 1 {
		workers = 1
	}
	return &Broadcaster{
		workers: workers,
		logger:  logger.With(slog.String("component", "roster")),
	}
}

// Broadcast sends msgs to every target. Targets are served in parallel; each
// target gets msgs in order. A failed send only affects its own target.
// Returns the number of failed sends.
func (b *Broadcaster) Broadcast(ctx context.Context, targets []*session.Client, msgs []session.Prepared) int {
	if len(targets) == 0 || len(msgs) == 0 {
		return 0
	}

	failures := make([]int, len(targets))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, c := range targets {
		g.Go(func() error {
			for _, msg := range msgs {
				if err := c.SendPrepared(msg); err != nil {
					failures[i]++
					b.logger.Debug("roster update not delivered",
						slog.Uint64("uid", uint64(c.Uid())),
						slog.String("msg_type", msg.MsgType()),
						slog.Any("error", err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, n := range failures {
		total += n
	}
	if total > 0 {
		b.logger.Warn("roster broadcast partial failure",
			slog.Int("targets", len(targets)),
			slog.Int("failed_sends", total))
	}
	return total
}
