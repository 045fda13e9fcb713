// Package pipeline runs batches of searches through a provider with bounded
// concurrency and persists every attempt.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/serp"
	"github.com/FranksOps/newsprobe/internal/storage"
)

const defaultConcurrency = 3

var (
	// ErrHardBlocked stops a run configured with StopOnBlock.
	ErrHardBlocked = errors.New("provider hard-blocked the client")
	// ErrSkipped marks queries that never ran because the run stopped early.
	ErrSkipped = errors.New("query skipped")
)

// Config controls a Runner. Pacing is the fetcher's job (its Limiter), not
// the runner's.
type Config struct {
	// Concurrency bounds in-flight searches. Defaults to 3.
	Concurrency int
	// Limit caps results per search; <= 0 keeps all.
	Limit int
	// Backend, when set, receives every record including failed ones.
	Backend storage.Backend
	// StopOnBlock cancels the remaining queries after a hard block.
	StopOnBlock bool
	Logger      *slog.Logger
}

// Outcome is the result of one query of a batch.
type Outcome struct {
	Query  gnews.Query
	Record *storage.SearchRecord
	Err    error
}

// Runner executes query batches against one provider.
type Runner struct {
	provider serp.Provider
	cfg      Config
	logger   *slog.Logger
}

// New returns a Runner for provider.
func New(provider serp.Provider, cfg Config) (*Runner, error) {
	if provider == nil {
		return nil, errors.New("pipeline: provider is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		provider: provider,
		cfg:      cfg,
		logger:   cfg.Logger.With("provider", provider.Name()),
	}, nil
}

// Run searches every query and returns one Outcome per query, in input
// order. Individual search failures are reported on their Outcome; Run itself
// only fails when the context is canceled or StopOnBlock triggers, and still
// returns the outcomes gathered so far.
func (r *Runner) Run(ctx context.Context, queries []gnews.Query) ([]Outcome, error) {
	outcomes := make([]Outcome, len(queries))
	for i, q := range queries {
		outcomes[i].Query = q
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, q := range queries {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gCtx.Err() != nil {
				return nil
			}
			rec, err := r.provider.Search(gCtx, q, r.cfg.Limit)
			outcomes[i].Record = rec
			outcomes[i].Err = err
			r.persist(ctx, rec)

			switch {
			case err == nil:
				r.logger.Debug("query done", "terms", q.Terms, "results", len(rec.Results))
			case gnews.IsHardBlock(err):
				r.logger.Warn("query hard-blocked", "terms", q.Terms, "err", err)
				if r.cfg.StopOnBlock {
					return fmt.Errorf("%w (terms %q)", ErrHardBlocked, q.Terms)
				}
			default:
				r.logger.Warn("query failed", "terms", q.Terms, "err", err)
			}
			return nil
		})
	}

	err := g.Wait()
	for i := range outcomes {
		if outcomes[i].Record == nil && outcomes[i].Err == nil {
			outcomes[i].Err = ErrSkipped
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return outcomes, fmt.Errorf("run batch: %w", err)
	}
	return outcomes, nil
}

// persist uses the caller's context so that records of in-flight searches
// are still written after a StopOnBlock cancellation.
func (r *Runner) persist(ctx context.Context, rec *storage.SearchRecord) {
	if r.cfg.Backend == nil || rec == nil {
		return
	}
	if err := r.cfg.Backend.Save(ctx, rec); err != nil {
		r.logger.Error("failed to save record", "id", rec.ID, "terms", rec.Terms, "err", err)
	}
}

// Records collects the non-nil records of outcomes.
func Records(outcomes []Outcome) []*storage.SearchRecord {
	records := make([]*storage.SearchRecord, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Record != nil {
			records = append(records, o.Record)
		}
	}
	return records
}
