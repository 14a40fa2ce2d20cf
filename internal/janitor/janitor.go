// Package janitor runs the periodic maintenance jobs of the server: purging
// contracts that stayed in the trash longer than the retention period and
// redelivering buffered events.
package janitor

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// jobTimeout bounds a single run of a job
const jobTimeout = 5 * time.Minute

// Cleaner removes soft-deleted contracts older than the retention period
type Cleaner interface {
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// Flusher redelivers buffered events
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// Config configures a Janitor; an empty schedule disables the job
type Config struct {
	RetentionDays   int
	CleanupSchedule string
	FlushSchedule   string
}

// Janitor schedules the maintenance jobs
type Janitor struct {
	cron    *cron.Cron
	cleaner Cleaner
	flusher Flusher
	days    int
}

// New creates a Janitor. flusher may be nil.
func New(conf Config, cleaner Cleaner, flusher Flusher) (*Janitor, error) {
	j := &Janitor{
		cron:    cron.New(),
		cleaner: cleaner,
		flusher: flusher,
		days:    conf.RetentionDays,
	}
	if conf.CleanupSchedule != "" && cleaner != nil {
		if _, err := j.cron.AddFunc(conf.CleanupSchedule, j.runCleanup); err != nil {
			return nil, errors.Wrapf(err, "janitor: invalid cleanup schedule '%s'", conf.CleanupSchedule)
		}
	}
	if conf.FlushSchedule != "" && flusher != nil {
		if _, err := j.cron.AddFunc(conf.FlushSchedule, j.runFlush); err != nil {
			return nil, errors.Wrapf(err, "janitor: invalid flush schedule '%s'", conf.FlushSchedule)
		}
	}
	return j, nil
}

// Jobs returns the number of scheduled jobs
func (j *Janitor) Jobs() int {
	return len(j.cron.Entries())
}

// Start starts the scheduler in the background
func (j *Janitor) Start() {
	j.cron.Start()
	log.WithField("jobs", j.Jobs()).Info("janitor started")
}

// Stop stops the scheduler and waits for running jobs until ctx is done
func (j *Janitor) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn("janitor: stopped without waiting for running jobs")
	}
}

// RunCleanup purges the contracts whose retention period has passed
func (j *Janitor) RunCleanup(ctx context.Context) (int64, error) {
	n, err := j.cleaner.Cleanup(ctx, j.days)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"retention_days": j.days, "contracts": n}).Info("janitor: cleanup finished")
	return n, nil
}

// RunFlush redelivers buffered events
func (j *Janitor) RunFlush(ctx context.Context) (int, error) {
	if j.flusher == nil {
		return 0, nil
	}
	n, err := j.flusher.Flush(ctx)
	if n > 0 {
		log.WithField("events", n).Info("janitor: redelivered buffered events")
	}
	return n, err
}

func (j *Janitor) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := j.RunCleanup(ctx); err != nil {
		log.WithError(err).Error("janitor: cleanup failed")
	}
}

func (j *Janitor) runFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := j.RunFlush(ctx); err != nil {
		log.WithError(err).Warn("janitor: redelivering events failed")
	}
}
