package application

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	"go.uber.org/zap"
)

type Poller interface {
	PollOnce(ctx context.Context) (domain.Snapshot, error)
}

type Scheduler struct {
	log       *zap.Logger
	use       Poller
	every     time.Duration
	pauseFile string

	trigger  chan struct{}
	inFlight atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(l *zap.Logger, u Poller, every time.Duration, pauseFile string) *Scheduler {
	return &Scheduler{
		log: l, use: u, every: every, pauseFile: pauseFile,
		trigger: make(chan struct{}, 1),
	}
}

// Start runs the loop in the background until Stop is called or ctx ends.
// Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)

	s.log.Info("scheduler started", zap.Duration("interval", s.every))
}

// Stop cancels the loop and waits for an in-flight poll to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("scheduler stopped")
}

// Trigger requests an immediate poll. Requests coalesce while one is pending.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.every)
	defer t.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		case <-s.trigger:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.isPaused() {
		s.log.Debug("paused: skipping poll")
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Debug("poll in flight: skipping")
		return
	}
	defer s.inFlight.Store(false)

	snap, err := s.use.PollOnce(ctx)
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		s.log.Debug("poll skipped", zap.Error(err))
	case err != nil:
		s.log.Warn("poll failed", zap.Error(err))
	default:
		s.log.Debug("poll done",
			zap.Int("pipelines", snap.Total),
			zap.Int("failures", len(snap.Failures)),
		)
	}
}

func (s *Scheduler) isPaused() bool {
	if s.pauseFile == "" {
		return false
	}
	_, err := os.Stat(s.pauseFile)
	return err == nil
}
