package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Dosada05/roster-system/db"
	"github.com/Dosada05/roster-system/models"
)

const jobTimeout = 10 * time.Second

// PoolChecker is implemented by *db.Pool.
type PoolChecker interface {
	Ping(ctx context.Context) error
	State() db.State
}

type DriftReporter interface {
	ReportDangling(ctx context.Context) ([]models.DanglingTeamRef, error)
}

type Intervals struct {
	HealthCheck time.Duration
	DriftReport time.Duration
}

// Scheduler runs the periodic pool health check and drift report.
type Scheduler struct {
	sched    gocron.Scheduler
	pool     PoolChecker
	reporter DriftReporter
	logger   *slog.Logger

	mu        sync.Mutex
	lastState db.State
}

func NewScheduler(pool PoolChecker, reporter DriftReporter, intervals Intervals, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{
		sched:     sched,
		pool:      pool,
		reporter:  reporter,
		logger:    logger.With(slog.String("component", "jobs")),
		lastState: pool.State(),
	}

	if intervals.HealthCheck > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(intervals.HealthCheck),
			gocron.NewTask(s.runWithTimeout(s.CheckPool)),
			gocron.WithName("pool-health-check"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("failed to schedule pool health check: %w", err)
		}
	}

	if intervals.DriftReport > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(intervals.DriftReport),
			gocron.NewTask(s.runWithTimeout(s.ReportDrift)),
			gocron.WithName("drift-report"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("failed to schedule drift report: %w", err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.sched.Jobs())))
}

// Shutdown waits for running jobs to finish.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) runWithTimeout(fn func(ctx context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		fn(ctx)
	}
}

// CheckPool pings the database and logs pool state transitions.
func (s *Scheduler) CheckPool(ctx context.Context) {
	err := s.pool.Ping(ctx)
	state := s.pool.State()

	s.mu.Lock()
	previous := s.lastState
	s.lastState = state
	s.mu.Unlock()

	if state != previous {
		level := slog.LevelInfo
		if state == db.StateFailed {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "database pool state changed",
			slog.String("from", previous.String()),
			slog.String("to", state.String()))
	}

	if err != nil {
		s.logger.Debug("database health check failed", slog.Any("error", err))
	}
}

// ReportDrift logs players whose team reference resolves to no team.
func (s *Scheduler) ReportDrift(ctx context.Context) {
	refs, err := s.reporter.ReportDangling(ctx)
	if err != nil {
		s.logger.Warn("drift report failed", slog.Any("error", err))
		return
	}
	if len(refs) == 0 {
		return
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.PlayerID)
	}
	s.logger.Warn("players reference unknown teams",
		slog.Int("count", len(refs)),
		slog.Any("player_ids", ids))
}
