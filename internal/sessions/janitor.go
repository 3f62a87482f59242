package sessions

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

// DefaultJanitorSchedule runs eviction every five minutes.
const DefaultJanitorSchedule = "@every 5m"

// Janitor periodically evicts idle sessions.
type Janitor struct {
	cron    *cron.Cron
	manager *Manager
	logger  *logging.Logger
}

// NewJanitor schedules m.EvictIdle on schedule (standard five-field cron
// syntax or descriptors such as "@every 1m").
func NewJanitor(m *Manager, schedule string, logger *logging.Logger) (*Janitor, error) {
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}
	if logger == nil {
		logger = logging.Default()
	}
	j := &Janitor{manager: m, logger: logger.Component("session_janitor")}
	cl := cronLogger{j.logger}
	j.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return nil, fmt.Errorf("sessions: invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// RunOnce evicts idle sessions now.
func (j *Janitor) RunOnce() {
	evicted := j.manager.EvictIdle(j.manager.now())
	if len(evicted) > 0 {
		j.logger.Info("evicted idle sessions", "count", len(evicted), "remaining", j.manager.Len())
	}
}

// Start runs the schedule in the background.
func (j *Janitor) Start() { j.cron.Start() }

// Stop halts the schedule and waits for a running eviction or ctx.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
