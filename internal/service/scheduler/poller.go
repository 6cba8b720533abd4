package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Thykp/SPM-Team2-sub002/internal/model"
	"github.com/Thykp/SPM-Team2-sub002/internal/repository"
	"github.com/Thykp/SPM-Team2-sub002/pkg/logger"
	"github.com/Thykp/SPM-Team2-sub002/pkg/metrics"
)

// Deliverer is the downstream the poller hands due entries to.
type Deliverer interface {
	Deliver(ctx context.Context, event *model.NotificationEvent) error
}

// Poller scans the scheduled-delivery store on a fixed interval and feeds due
// entries to the delivery worker.
type Poller struct {
	store     repository.ScheduleRepository
	deliverer Deliverer
	interval  time.Duration
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewPoller(store repository.ScheduleRepository, deliverer Deliverer, interval time.Duration, l *logger.Logger, m *metrics.Metrics) *Poller {
	return &Poller{
		store:     store,
		deliverer: deliverer,
		interval:  interval,
		logger:    l.WithComponent("scheduler"),
		metrics:   m,
	}
}

// Run ticks until ctx is cancelled. Ticks never abort the loop.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("scheduler started", "interval", p.interval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				p.logger.Error(err, "poll cycle failed")
			}
		}
	}
}

// Tick fetches all entries due by now in ascending fire-time order, delivers
// each and then removes it. The entry is removed even when delivery fails:
// best-effort, no redelivery loop.
func (p *Poller) Tick(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.SchedulerLatency)
	defer timer.ObserveDuration()

	due, err := p.store.Due(ctx, time.Now())
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	p.logger.Info("processing due entries", "count", len(due))

	for _, entry := range due {
		if entry.Event.ToUser == uuid.Nil {
			p.logger.Warn("dropping malformed scheduled entry")
			p.remove(ctx, entry)
			continue
		}

		p.metrics.ScheduledDue.Inc()
		if err := p.deliverer.Deliver(ctx, &entry.Event); err != nil {
			p.logger.Error(err, "scheduled delivery failed", "to_user", entry.Event.ToUser.String())
		}

		p.remove(ctx, entry)
	}

	return nil
}

func (p *Poller) remove(ctx context.Context, entry *model.ScheduledEntry) {
	if err := p.store.Remove(ctx, entry); err != nil {
		p.logger.Error(err, "failed to remove scheduled entry")
	}
}
