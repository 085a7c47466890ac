package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"go.uber.org/zap"
)

// ErrInvalidConfig is returned when the replay configuration is unusable
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// CreditReplayer settles overpayments whose credit was not written in the
// payment transaction
type CreditReplayer interface {
	ReplayPendingCredits(ctx context.Context, limit int) (*appfinance.ReplayResult, error)
}

// CreditReplayConfig holds configuration for the pending credit replayer
type CreditReplayConfig struct {
	Interval  time.Duration
	BatchSize int
}

// CreditReplayScheduler periodically drains the pending credit queue
type CreditReplayScheduler struct {
	config   CreditReplayConfig
	replayer CreditReplayer
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	runs      int
}

// NewCreditReplayScheduler creates a new scheduler
func NewCreditReplayScheduler(config CreditReplayConfig, replayer CreditReplayer, logger *zap.Logger) (*CreditReplayScheduler, error) {
	if config.Interval <= 0 || config.BatchSize <= 0 || replayer == nil {
		return nil, ErrInvalidConfig
	}
	return &CreditReplayScheduler{
		config:   config,
		replayer: replayer,
		logger:   logger.Named("credit_replay"),
	}, nil
}

// Start starts the replay loop. Calling it twice is a no-op.
func (s *CreditReplayScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Credit replay scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
	)
	return nil
}

// Stop stops the loop and waits for an in-flight run, bounded by ctx
func (s *CreditReplayScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Credit replay scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runs returns how many replay passes have completed
func (s *CreditReplayScheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *CreditReplayScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single replay pass
func (s *CreditReplayScheduler) RunOnce(ctx context.Context) {
	result, err := s.replayer.ReplayPendingCredits(ctx, s.config.BatchSize)

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Pending credit replay failed", zap.Error(err))
		}
		return
	}
	if result.Applied > 0 || result.Failed > 0 {
		s.logger.Info("Pending credits replayed",
			zap.Int("applied", result.Applied),
			zap.Int("failed", result.Failed),
		)
	}
}
