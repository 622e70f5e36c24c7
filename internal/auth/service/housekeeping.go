package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

// ExpirySweeper expires undecided backchannel requests.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// HousekeepingService periodically expires lapsed backchannel requests and
// deletes token records past their expiry.
type HousekeepingService struct {
	Store    store.Store
	Sweeper  ExpirySweeper
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 30 seconds.
func NewHousekeepingService(s store.Store, sweeper ExpirySweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Store:    s,
		Sweeper:  sweeper,
		Logger:   logger,
		Interval: interval,
	}
}

// Start runs the worker in the background until Stop is called. Calling
// it on a running service does nothing.
func (s *HousekeepingService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)

	s.Logger.Info("housekeeping service started", slog.Duration("interval", s.Interval))
}

// Stop cancels the worker and waits for it to return. It is a no-op when
// the service is not running.
func (s *HousekeepingService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs one pass. The two cleanups are independent; a failure
// in one does not skip the other.
func (s *HousekeepingService) RunOnce(ctx context.Context) {
	ctx = slogx.WithContext(ctx, s.Logger)

	if s.Sweeper != nil {
		n, err := s.Sweeper.SweepExpired(ctx)
		if err != nil {
			s.Logger.Error("failed to sweep expired backchannel requests", slog.Any("err", err))
		} else if n > 0 {
			s.Logger.Info("expired backchannel requests", slog.Int("count", n))
		}
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	n, err := s.Store.Tokens().DeleteExpiredTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired tokens", slog.Any("err", err))
		return
	}
	s.Logger.Debug("deleted expired tokens", slog.Int64("count", n))
}
