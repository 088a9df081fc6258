package application

import (
	"context"
	"sort"
	"strconv"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

type Aggregator struct {
	log         *zap.Logger
	gl          domain.GitlabClient
	perPage     int
	concurrency int
}

func NewAggregator(l *zap.Logger, gl domain.GitlabClient, perPage, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Aggregator{log: l, gl: gl, perPage: perPage, concurrency: concurrency}
}

// ListRepositories resolves every configured identifier. Identifiers that
// fail to resolve are reported in Failures, never as an error.
func (a *Aggregator) ListRepositories(ctx context.Context, s domain.Settings) (domain.Batch[domain.Repository], error) {
	if !s.GitLab.Configured() {
		return domain.Batch[domain.Repository]{}, domain.ErrNotConfigured
	}

	ids := domain.ParseRepositoryIDs(s.GitLab.Repositories)
	if len(ids) == 0 {
		return domain.Batch[domain.Repository]{Items: []domain.Repository{}}, nil
	}

	type slot struct {
		repo domain.Repository
		err  error
	}
	slots := make([]slot, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			r, err := a.gl.FetchRepository(gctx, s.GitLab.URL, s.GitLab.Token, id)
			slots[i] = slot{repo: r, err: err}
			// per-item failures stay in the slot so the batch keeps going
			return nil
		})
	}
	_ = g.Wait()

	out := domain.Batch[domain.Repository]{Items: make([]domain.Repository, 0, len(ids))}
	for i, sl := range slots {
		if sl.err != nil {
			a.log.Warn("repository skipped",
				zap.String("repository", ids[i]),
				zap.Error(sl.err),
			)
			out.Failures = append(out.Failures, domain.FetchFailure{
				Repository: ids[i],
				Stage:      domain.StageRepository,
				Error:      sl.err.Error(),
			})
			continue
		}
		out.Items = append(out.Items, sl.repo)
	}

	a.log.Debug("repositories resolved",
		zap.Int("configured", len(ids)),
		zap.Int("resolved", len(out.Items)),
	)

	return out, nil
}

// ListPipelines runs one aggregation pass: resolve repositories, fetch a page
// of pipelines for each, tag them with their repository and sort newest first.
func (a *Aggregator) ListPipelines(ctx context.Context, s domain.Settings) (domain.Batch[domain.Pipeline], error) {
	repos, err := a.ListRepositories(ctx, s)
	if err != nil {
		return domain.Batch[domain.Pipeline]{}, err
	}

	out := domain.Batch[domain.Pipeline]{
		Items:    []domain.Pipeline{},
		Failures: repos.Failures,
	}
	if len(repos.Items) == 0 {
		return out, nil
	}

	type slot struct {
		pipelines []domain.Pipeline
		err       error
	}
	slots := make([]slot, len(repos.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, repo := range repos.Items {
		i, repo := i, repo
		g.Go(func() error {
			ps, err := a.gl.FetchPipelines(gctx, s.GitLab.URL, s.GitLab.Token, repo.ID, a.perPage)
			slots[i] = slot{pipelines: ps, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, sl := range slots {
		repo := repos.Items[i]
		if sl.err != nil {
			a.log.Warn("pipelines skipped",
				zap.Int64("repository", repo.ID),
				zap.String("name", repo.Name),
				zap.Error(sl.err),
			)
			out.Failures = append(out.Failures, domain.FetchFailure{
				Repository: strconv.FormatInt(repo.ID, 10),
				Stage:      domain.StagePipelines,
				Error:      sl.err.Error(),
			})
			continue
		}
		for _, p := range sl.pipelines {
			p.Repository = repo
			out.Items = append(out.Items, p)
		}
	}

	SortPipelines(out.Items)

	a.log.Debug("pipelines aggregated",
		zap.Int("repositories", len(repos.Items)),
		zap.Int("pipelines", len(out.Items)),
		zap.Int("failures", len(out.Failures)),
	)

	return out, nil
}

// SortPipelines orders newest first; equal timestamps keep fetch order.
func SortPipelines(ps []domain.Pipeline) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].CreatedAt.After(ps[j].CreatedAt)
	})
}
