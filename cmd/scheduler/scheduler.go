package scheduler

import (
	"context"
	"time"

	"sectorsguard/src/model"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Runner validates every registered dataset.
type Runner interface {
	ValidateAll(ctx context.Context, start, end string) *model.BatchSummary
}

// Scheduler runs validate-all passes on a cron schedule.
type Scheduler struct {
	cron   *gocron.Scheduler
	runner Runner
	config *Config
	log    *logrus.Entry
}

func NewScheduler(runner Runner, config *Config) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:   cron,
		runner: runner,
		config: config,
		log:    logrus.WithField("cmd", "schedule"),
	}
}

// RunOnce executes a single validate-all pass with the default windows.
func (s *Scheduler) RunOnce(ctx context.Context) *model.BatchSummary {
	began := time.Now()
	summary := s.runner.ValidateAll(ctx, "", "")
	s.log.WithFields(logrus.Fields{
		"tables":     summary.TotalTables,
		"successful": summary.SuccessfulValidations,
		"anomalies":  summary.TotalAnomalies,
		"took":       time.Since(began).String(),
	}).Info("Scheduled validation finished")
	return summary
}

// Start registers the job and blocks until ctx is done. Runs never overlap,
// including the optional run on start.
func (s *Scheduler) Start(ctx context.Context) error {
	job := s.cron.Cron(s.config.Schedule)
	if s.config.RunOnStart {
		job = job.StartImmediately()
	}
	if _, err := job.Do(func() { s.RunOnce(ctx) }); err != nil {
		return err
	}
	s.cron.StartAsync()
	s.log.WithFields(logrus.Fields{
		"schedule":     s.config.Schedule,
		"run_on_start": s.config.RunOnStart,
	}).Info("Scheduler started")

	<-ctx.Done()
	s.cron.Stop()
	s.log.Info("Scheduler stopped")
	return nil
}
