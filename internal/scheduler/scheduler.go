package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/lending-engine/internal/metrics"
	"github.com/segyhp/lending-engine/pkg/utils"
)

const (
	jobMarkOverdue     = "mark_overdue"
	jobCompleteSettled = "complete_settled"
)

// LoanSweeper is the part of the loan service the scheduled jobs drive
type LoanSweeper interface {
	MarkOverdueInstallments(ctx context.Context, asOf time.Time) (int, error)
	CompleteSettledLoans(ctx context.Context) (int, error)
}

type Jobs struct {
	sweeper  LoanSweeper
	logger   *zap.Logger
	location *time.Location
	timeout  time.Duration
	now      func() time.Time
}

func NewJobs(sweeper LoanSweeper, logger *zap.Logger, location *time.Location, timeout time.Duration) *Jobs {
	return &Jobs{
		sweeper:  sweeper,
		logger:   logger,
		location: location,
		timeout:  timeout,
		now:      time.Now,
	}
}

// NewCron builds a seconds-enabled cron that evaluates specs in location,
// skips a run while the previous one is still going and recovers panics.
func NewCron(logger *zap.Logger, location *time.Location) *cron.Cron {
	cl := cronLogger{logger.Sugar()}
	return cron.New(
		cron.WithSeconds(),
		cron.WithLocation(location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
}

// Register schedules the daily sweep on c
func (j *Jobs) Register(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, j.RunDailySweep)
}

// RunDailySweep flags overdue installments as of today, then completes loans
// that are fully settled
func (j *Jobs) RunDailySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.MarkOverdue(ctx)
	j.CompleteSettled(ctx)
}

func (j *Jobs) MarkOverdue(ctx context.Context) {
	asOf := utils.DateOnly(j.now().In(j.location))
	marked, err := j.sweeper.MarkOverdueInstallments(ctx, asOf)
	metrics.ObserveSchedulerRun(jobMarkOverdue, err)
	if err != nil {
		j.logger.Error("overdue sweep finished with errors",
			zap.String("as_of", asOf.Format("2006-01-02")),
			zap.Int("marked", marked),
			zap.Error(err),
		)
		return
	}
	j.logger.Info("overdue sweep finished",
		zap.String("as_of", asOf.Format("2006-01-02")),
		zap.Int("marked", marked),
	)
}

func (j *Jobs) CompleteSettled(ctx context.Context) {
	completed, err := j.sweeper.CompleteSettledLoans(ctx)
	metrics.ObserveSchedulerRun(jobCompleteSettled, err)
	if err != nil {
		j.logger.Error("completion sweep finished with errors", zap.Int("completed", completed), zap.Error(err))
		return
	}
	j.logger.Info("completion sweep finished", zap.Int("completed", completed))
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
