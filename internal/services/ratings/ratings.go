package ratings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/metrics"
	"github.com/lealre/community-backend/internal/mongodb"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Aggregator derives community ratings from review ledgers. It always reads
// the current ledger, so handling the same change twice or out of order
// converges on the same rating.
type Aggregator struct {
	store   Store
	breaker *gobreaker.CircuitBreaker[any]
	opts    Options
}

func NewAggregator(store Store, opts Options) *Aggregator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}

	return &Aggregator{
		store:   store,
		breaker: newBreaker(opts),
		opts:    opts,
	}
}

// HandleLedgerChange recomputes the rating of tag from its full ledger and
// commits it with a single conditional update. A deleted community or ledger
// is not an error.
func (a *Aggregator) HandleLedgerChange(ctx context.Context, tag string) (Outcome, error) {
	if a.opts.HandleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.HandleTimeout)
		defer cancel()
	}

	ledger, err := guarded(a.breaker, func() (mongodb.ReviewLedgerDb, error) {
		return a.store.GetReviewLedger(ctx, tag)
	})
	if err != nil {
		if errors.Is(err, mongodb.ErrRecordNotFound) {
			metrics.RatingRecomputations.WithLabelValues(string(OutcomeMissing)).Inc()
			logx.FromContext(ctx).Debug().Str("tag", tag).Msg("ledger gone, skipping rating")
			return OutcomeMissing, nil
		}
		metrics.RatingRecomputations.WithLabelValues("error").Inc()
		return "", fmt.Errorf("read ledger %q: %w", tag, err)
	}

	rating := ComputeRating(ledger.Reviews)
	count := len(ledger.Reviews)

	matched, err := guarded(a.breaker, func() (bool, error) {
		return a.store.SetCommunityRating(ctx, tag, rating, count)
	})
	if err != nil {
		metrics.RatingRecomputations.WithLabelValues("error").Inc()
		return "", fmt.Errorf("set rating %q: %w", tag, err)
	}

	outcome := OutcomeUpdated
	if !matched {
		outcome = OutcomeSkipped
	}
	metrics.RatingRecomputations.WithLabelValues(string(outcome)).Inc()

	logx.FromContext(ctx).Debug().
		Str("tag", tag).
		Int("rating", rating).
		Int("review_count", count).
		Str("outcome", string(outcome)).
		Msg("rating recomputed")

	return outcome, nil
}

// ReconcileAll recomputes the rating of every community that has a ledger.
// A failure on a single ledger is counted and logged without failing the
// run. Only listing failures and store-level failures are returned, the
// latter after every ledger has been tried.
func (a *Aggregator) ReconcileAll(ctx context.Context) (ReconcileResult, error) {
	logger := logx.FromContext(ctx)

	tags, err := guarded(a.breaker, func() ([]string, error) {
		return a.store.GetReviewLedgerTags(ctx)
	})
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list ledgers: %w", err)
	}

	logger.Info().Int("ledgers", len(tags)).Msg("reconciling community ratings")
	start := time.Now()

	var (
		mu       sync.Mutex
		result   = ReconcileResult{Total: len(tags)}
		firstErr error
	)

	jobs := make(chan string, len(tags))
	wg := sync.WaitGroup{}

	for i := 0; i < a.opts.Workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for tag := range jobs {
				if ctx.Err() != nil {
					return
				}

				outcome, err := a.HandleLedgerChange(ctx, tag)

				mu.Lock()
				switch {
				case err != nil:
					result.Failed++
					if firstErr == nil && isStoreFailure(err) {
						firstErr = err
					}
				case outcome == OutcomeUpdated:
					result.Updated++
				case outcome == OutcomeSkipped:
					result.Skipped++
				case outcome == OutcomeMissing:
					result.Missing++
				}
				mu.Unlock()

				if err != nil {
					logger.Error().Err(err).Str("tag", tag).Msg("failed to reconcile rating")
				}
			}
		}()
	}

	for _, tag := range tags {
		jobs <- tag
	}
	close(jobs)
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}

	logger.Info().
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("missing", result.Missing).
		Int("failed", result.Failed).
		Dur("took", time.Since(start)).
		Msg("reconciliation finished")

	return result, firstErr
}

// isStoreFailure reports whether err concerns the database as a whole
// rather than a single ledger.
func isStoreFailure(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || mongodb.IsUnavailable(err)
}
