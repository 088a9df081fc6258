package application

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingPoller struct {
	calls atomic.Int32
	block chan struct{}
}

func (p *countingPoller) PollOnce(ctx context.Context) (domain.Snapshot, error) {
	p.calls.Add(1)
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
		}
	}
	return domain.Snapshot{}, nil
}

func TestScheduler_PollsImmediatelyAndOnTrigger(t *testing.T) {
	p := &countingPoller{}
	s := NewScheduler(zap.NewNop(), p, time.Hour, "")

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Trigger()
	require.Eventually(t, func() bool { return p.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	p := &countingPoller{}
	s := NewScheduler(zap.NewNop(), p, time.Hour, "")

	s.Stop()
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()

	calls := p.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, p.calls.Load())
}

func TestScheduler_SkipsOverlappingTick(t *testing.T) {
	p := &countingPoller{block: make(chan struct{})}
	s := NewScheduler(zap.NewNop(), p, time.Hour, "")

	go s.tick(context.Background())
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.tick(context.Background())
	assert.Equal(t, int32(1), p.calls.Load())

	close(p.block)
	require.Eventually(t, func() bool { return !s.inFlight.Load() }, time.Second, 5*time.Millisecond)
}

func TestScheduler_PauseFile(t *testing.T) {
	pause := filepath.Join(t.TempDir(), "pause")
	require.NoError(t, os.WriteFile(pause, nil, 0o644))

	p := &countingPoller{}
	s := NewScheduler(zap.NewNop(), p, time.Hour, pause)

	s.tick(context.Background())
	assert.Equal(t, int32(0), p.calls.Load())

	require.NoError(t, os.Remove(pause))
	s.tick(context.Background())
	assert.Equal(t, int32(1), p.calls.Load())
}
