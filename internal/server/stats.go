package server

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Tyrowin/livechat/internal/chat"
)

// Stats is a point-in-time view of hub presence.
type Stats struct {
	Online int `json:"online"`
	Joined int `json:"joined"`
}

func snapshotStats(hub *chat.Hub) Stats {
	return Stats{Online: hub.Online(), Joined: hub.Joined()}
}

// StatsReporter periodically logs presence counts on a cron schedule.
type StatsReporter struct {
	cron   *cron.Cron
	hub    *chat.Hub
	logger *zap.Logger
}

// NewStatsReporter validates schedule (standard cron spec or descriptor such
// as "@every 1m") and returns a stopped reporter.
func NewStatsReporter(schedule string, hub *chat.Hub, logger *zap.Logger) (*StatsReporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &StatsReporter{
		cron:   cron.New(),
		hub:    hub,
		logger: logger.Named("stats"),
	}
	if _, err := r.cron.AddFunc(schedule, r.Report); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs the schedule in the background.
func (r *StatsReporter) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running report to finish.
func (r *StatsReporter) Stop() {
	<-r.cron.Stop().Done()
}

// Report logs the current counts once.
func (r *StatsReporter) Report() {
	s := snapshotStats(r.hub)
	r.logger.Info("presence", zap.Int("online", s.Online), zap.Int("joined", s.Joined))
}
