// ABOUTME: Daily publisher producing and delivering the standing digests
// ABOUTME: Computes the next local publish time for the serve loop

package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/farescout/farescout/config"
)

// Publisher runs the standing daily digests (Tokyo and Osaka) and hands
// each rendered message to the notifier.
type Publisher struct {
	cfg      *config.Config
	flights  *FlightsService
	notifier Notifier
}

func NewPublisher(cfg *config.Config, flights *FlightsService, notifier Notifier) *Publisher {
	return &Publisher{cfg: cfg, flights: flights, notifier: notifier}
}

// PublishDaily produces and delivers the daily groups. A failure on one
// group does not stop the others.
func (p *Publisher) PublishDaily(ctx context.Context) {
	for _, name := range []string{"tokyo", "osaka"} {
		group, ok := GroupByName(p.cfg, name)
		if !ok {
			continue
		}
		msg, err := p.flights.GroupDeals(ctx, group)
		if err != nil {
			slog.Warn("Daily digest failed", "group", name, "error", err)
			continue
		}
		if p.notifier == nil {
			slog.Warn("No notifier configured, dropping digest", "group", name)
			continue
		}
		if err := p.notifier.Send(ctx, msg); err != nil {
			slog.Error("Digest delivery failed", "group", name, "error", err)
			continue
		}
		slog.Info("Digest delivered", "group", name)
	}
}

// NextRun returns the next occurrence of the configured publish hour in the
// configured timezone, strictly after now.
func (p *Publisher) NextRun(now time.Time) time.Time {
	loc := p.cfg.Location()
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), p.cfg.PublishHour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunSchedule publishes at the configured hour every day until ctx is done.
func (p *Publisher) RunSchedule(ctx context.Context) {
	for {
		next := p.NextRun(time.Now())
		slog.Info("Next scheduled publish", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.PublishDaily(ctx)
		}
	}
}
