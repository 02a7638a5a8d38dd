package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/acis-toolkit/internal/climate"
)

// Fetcher runs one job. climate.Service implements it.
type Fetcher interface {
	FetchAndStore(ctx context.Context, job climate.Job) error
}

// Scheduler periodically fetches climate data for configured jobs.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	fetcher    Fetcher
	jobs       []climate.Job
	interval   time.Duration
	jobTimeout time.Duration
	logger     logrus.FieldLogger
}

// New creates a new Scheduler.
func New(jobs []climate.Job, interval time.Duration, fetcher Fetcher, logger logrus.FieldLogger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:  s,
		fetcher:    fetcher,
		jobs:       jobs,
		interval:   interval,
		jobTimeout: 30 * time.Second,
		logger:     logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.jobs) == 0 {
		s.logger.Info("scheduler: no jobs configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce fetches every job concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	s.logger.Info("scheduler: running climate fetch")

	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
			defer cancel()

			if err := s.fetcher.FetchAndStore(ctx, job); err != nil {
				s.logger.WithField("job", job.Name).WithError(err).Warn("scheduler: fetch failed")
			}
		}()
	}
	wg.Wait()
	s.logger.Info("scheduler: completed climate fetch")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
