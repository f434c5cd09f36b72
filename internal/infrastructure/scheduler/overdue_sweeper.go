package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OverdueSweeper periodically marks payment plans with missed installments
// as overdue. One sweep runs at a time; a slow sweep delays the next tick
// rather than overlapping it.
type OverdueSweeper struct {
	sweep    SweepFunc
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	lastRunAt   *time.Time
	lastMarked  int
	lastRunErr  error
	totalMarked int64
}

// SweepFunc marks plans overdue as of the given cutoff and returns how
// many plans were marked.
type SweepFunc func(ctx context.Context, cutoff time.Time) (int, error)

// NewOverdueSweeper creates a sweeper that calls sweep every interval
func NewOverdueSweeper(sweep SweepFunc, interval time.Duration, logger *zap.Logger) (*OverdueSweeper, error) {
	if sweep == nil || interval <= 0 {
		return nil, ErrInvalidConfig
	}
	return &OverdueSweeper{
		sweep:    sweep,
		interval: interval,
		logger:   logger.Named("overdue-sweeper"),
	}, nil
}

// Start launches the sweep loop. The first sweep runs immediately.
func (s *OverdueSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return ErrSweeperAlreadyRunning
	}
	s.isRunning = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Overdue sweeper started", zap.Duration("interval", s.interval))
	return nil
}

// Stop shuts the loop down, waiting for an in-flight sweep to finish
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overdue sweeper stop timed out")
		return ctx.Err()
	}
}

// RunOnce performs a single sweep outside the loop schedule
func (s *OverdueSweeper) RunOnce(ctx context.Context) (int, error) {
	return s.runSweep(ctx)
}

// Stats reports the outcome of the most recent sweep
func (s *OverdueSweeper) Stats() (lastRunAt *time.Time, lastMarked int, totalMarked int64, lastErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt, s.lastMarked, s.totalMarked, s.lastRunErr
}

func (s *OverdueSweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	if _, err := s.runSweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("Initial overdue sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.runSweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Overdue sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *OverdueSweeper) runSweep(ctx context.Context) (int, error) {
	now := time.Now()
	marked, err := s.sweep(ctx, now)

	s.mu.Lock()
	s.lastRunAt = &now
	s.lastMarked = marked
	s.lastRunErr = err
	s.totalMarked += int64(marked)
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}

	if marked > 0 {
		s.logger.Info("Marked plans overdue", zap.Int("count", marked))
	} else {
		s.logger.Debug("Overdue sweep found nothing to mark")
	}
	return marked, nil
}
