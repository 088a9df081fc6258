package application

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	"go.uber.org/zap"
)

type PollUseCase struct {
	log      *zap.Logger
	settings domain.SettingsStore
	agg      *Aggregator
	note     *Notifier
	cache    domain.StatusCache

	notifyChanges bool

	mu       sync.RWMutex
	baseline bool
	last     map[int64]seen
	latest   domain.Snapshot
}

// NewPollUseCase wires one aggregation pass per tick. cache may be nil.
func NewPollUseCase(l *zap.Logger, st domain.SettingsStore, agg *Aggregator, note *Notifier, cache domain.StatusCache, notifyChanges bool) *PollUseCase {
	return &PollUseCase{
		log: l, settings: st, agg: agg, note: note, cache: cache,
		notifyChanges: notifyChanges,
		last:          make(map[int64]seen),
	}
}

func (uc *PollUseCase) PollOnce(ctx context.Context) (domain.Snapshot, error) {
	s, err := uc.settings.Load(ctx)
	if err != nil {
		return uc.fail(err), err
	}

	batch, err := uc.agg.ListPipelines(ctx, s)
	if err != nil {
		return uc.fail(err), err
	}

	snap := snapshotOf(batch, time.Now())

	uc.mu.Lock()
	uc.latest = snap
	changed := uc.diff(batch.Items, batch.Failures)
	uc.mu.Unlock()

	if uc.cache != nil {
		if err := uc.cache.Write(ctx, snap); err != nil {
			uc.log.Warn("cache write failed", zap.Error(err))
		}
	}

	if uc.notifyChanges {
		for _, p := range changed {
			res := uc.note.Notify(ctx, p, s.Notifications)
			if !res.Skipped {
				uc.log.Info("status change notified",
					zap.Int64("pipeline", p.ID),
					zap.String("status", string(p.Status)),
				)
			}
		}
	}

	return snap, nil
}

// Latest returns the snapshot of the most recent poll.
func (uc *PollUseCase) Latest() domain.Snapshot {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.latest
}

func (uc *PollUseCase) fail(err error) domain.Snapshot {
	snap := domain.Snapshot{
		Retrieved: time.Now(),
		Counts:    map[domain.PipelineStatus]int{},
		Error:     err.Error(),
	}
	uc.mu.Lock()
	uc.latest = snap
	uc.mu.Unlock()
	return snap
}

type seen struct {
	status domain.PipelineStatus
	repo   domain.Repository
}

// diff records the statuses of ps and returns the pipelines that are new or
// changed since the previous call. The first call only records a baseline.
// Entries of repositories that failed this pass are kept as they were.
func (uc *PollUseCase) diff(ps []domain.Pipeline, failures []domain.FetchFailure) []domain.Pipeline {
	var changed []domain.Pipeline
	next := make(map[int64]seen, len(ps))
	for _, p := range ps {
		next[p.ID] = seen{status: p.Status, repo: p.Repository}
		if !uc.baseline {
			continue
		}
		if prev, ok := uc.last[p.ID]; !ok || prev.status != p.Status {
			changed = append(changed, p)
		}
	}

	if len(failures) > 0 {
		failed := make(map[string]bool, len(failures))
		for _, f := range failures {
			failed[f.Repository] = true
		}
		for id, prev := range uc.last {
			if _, ok := next[id]; ok {
				continue
			}
			if failed[strconv.FormatInt(prev.repo.ID, 10)] || (prev.repo.PathWithNamespace != "" && failed[prev.repo.PathWithNamespace]) {
				next[id] = prev
			}
		}
	}

	uc.last = next
	uc.baseline = true
	return changed
}

func snapshotOf(b domain.Batch[domain.Pipeline], now time.Time) domain.Snapshot {
	snap := domain.Snapshot{
		Retrieved: now,
		Total:     len(b.Items),
		Counts:    make(map[domain.PipelineStatus]int),
		Failures:  b.Failures,
	}
	for _, p := range b.Items {
		snap.Counts[p.Status]++
	}
	if len(b.Items) > 0 {
		latest := b.Items[0]
		snap.Latest = &latest
	}
	return snap
}
