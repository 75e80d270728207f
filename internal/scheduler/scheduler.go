// Package scheduler owns the background jobs of the inventory service: the
// reservation expiry sweep and the purge of resolved reservations.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
)

// Job names. They double as distributed lock keys.
const (
	JobReleaseExpired    = "release-expired-reservations"
	JobPurgeReservations = "purge-reservations"
)

// ReservationSweeper is the part of the inventory service driven by the scheduler.
type ReservationSweeper interface {
	ReleaseExpiredReservations(ctx context.Context) (*domain.SweepResult, error)
	PurgeReservations(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config controls job intervals.
type Config struct {
	SweepInterval   time.Duration
	SweepTimeout    time.Duration
	PurgeInterval   time.Duration
	RetentionPeriod time.Duration
}

func (c *Config) applyDefaults() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.SweepTimeout <= 0 || c.SweepTimeout > c.SweepInterval {
		c.SweepTimeout = c.SweepInterval
	}
	if c.PurgeInterval <= 0 {
		c.PurgeInterval = 24 * time.Hour
	}
	if c.RetentionPeriod <= 0 {
		c.RetentionPeriod = 30 * 24 * time.Hour
	}
}

// Scheduler runs the reservation jobs on fixed intervals. Each job runs in
// singleton mode so a slow sweep is never overlapped by the next tick.
type Scheduler struct {
	cron    gocron.Scheduler
	sweeper ReservationSweeper
	cfg     Config
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

// New creates the scheduler and registers its jobs. A nil locker runs the
// jobs on every instance.
func New(sweeper ReservationSweeper, cfg Config, locker gocron.Locker, logger *slog.Logger) (*Scheduler, error) {
	cfg.applyDefaults()

	opts := []gocron.SchedulerOption{
		gocron.WithLogger(logger),
		gocron.WithStopTimeout(cfg.SweepTimeout),
	}
	if locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(locker))
	}
	cron, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron,
		sweeper: sweeper,
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		now:     func() time.Time { return time.Now().UTC() },
	}

	if err := s.register(JobReleaseExpired, cfg.SweepInterval, s.sweep); err != nil {
		cancel()
		return nil, err
	}
	if err := s.register(JobPurgeReservations, cfg.PurgeInterval, s.purge); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) register(name string, every time.Duration, fn func()) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	return nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler",
		slog.Duration("sweep_interval", s.cfg.SweepInterval),
		slog.Duration("purge_interval", s.cfg.PurgeInterval),
	)
	s.cron.Start()
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

// RunNow triggers the named job immediately.
func (s *Scheduler) RunNow(name string) error {
	for _, j := range s.cron.Jobs() {
		if j.Name() == name {
			return j.RunNow()
		}
	}
	return fmt.Errorf("job %s not registered", name)
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.cron.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SweepTimeout)
	defer cancel()

	result, err := s.sweeper.ReleaseExpiredReservations(ctx)
	if err != nil {
		s.logger.Error("reservation sweep failed", slog.String("error", err.Error()))
		return
	}
	if result.Released > 0 || result.Failed > 0 {
		s.logger.Debug("reservation sweep finished",
			slog.Int("released", result.Released),
			slog.Int("failed", result.Failed),
		)
	}
}

func (s *Scheduler) purge() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SweepTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.cfg.RetentionPeriod)
	if _, err := s.sweeper.PurgeReservations(ctx, cutoff); err != nil {
		s.logger.Error("reservation purge failed",
			slog.Time("cutoff", cutoff),
			slog.String("error", err.Error()),
		)
	}
}
