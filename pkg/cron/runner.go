package cron

import (
	"context"

	"github.com/robfig/cron/v3"

	"SigFuse/pkg/logger"
)

// Runner wraps the cron scheduler with a base context and structured logging.
type Runner struct {
	cron    *cron.Cron
	logger  *logger.Logger
	baseCtx context.Context
}

func New(lgr *logger.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(),
		logger:  lgr,
		baseCtx: baseCtx,
	}
}

// Add schedules a job. The job receives the runner's base context so it stops
// blocking work on shutdown.
func (r *Runner) Add(spec, name string, job func(context.Context) error) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		if err := job(r.baseCtx); err != nil && r.logger != nil {
			r.logger.Error("cron job failed",
				logger.String("job", name),
				logger.Error(err),
			)
		}
	})
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started")
	}
	r.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
