// Package scheduler runs the service's periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/money-dashboard/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// jobTimeout bounds a single run of any job
const jobTimeout = 10 * time.Minute

// Jobs is the work the scheduler triggers
type Jobs interface {
	RunAlertJobs(ctx context.Context) error
	RunScheduledAnalyses(ctx context.Context) error
	SweepExpired(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner with the dashboard's jobs
type Scheduler struct {
	cron *cron.Cron
	jobs Jobs
	log  *logrus.Logger
}

// New registers the jobs under the schedules from cfg. Overlapping runs of
// the same job are skipped.
func New(cfg *config.Config, jobs Jobs, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		jobs: jobs,
		log:  log,
	}

	entries := []struct {
		name string
		spec string
		fn   func(ctx context.Context) error
	}{
		{"alerts", cfg.CronAlerts, jobs.RunAlertJobs},
		{"analysis", cfg.CronAnalysis, jobs.RunScheduledAnalyses},
		{"sweep", cfg.CronSweep, s.sweep},
	}
	for _, e := range entries {
		if e.spec == "" {
			log.Infof("Job %s disabled", e.name)
			continue
		}
		if _, err := s.cron.AddFunc(e.spec, s.wrap(e.name, e.fn)); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for job %s: %w", e.spec, e.name, err)
		}
	}
	return s, nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Infof("Scheduler started with %d jobs", len(s.cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs or ctx, whichever ends first
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stopped before running jobs finished")
	}
}

func (s *Scheduler) sweep(ctx context.Context) error {
	_, err := s.jobs.SweepExpired(ctx)
	return err
}

func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		err := fn(ctx)
		entry := s.log.WithFields(logrus.Fields{
			"job":      name,
			"duration": time.Since(start).String(),
		})
		if err != nil {
			entry.Errorf("Job failed: %v", err)
			return
		}
		entry.Info("Job finished")
	}
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	log *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
