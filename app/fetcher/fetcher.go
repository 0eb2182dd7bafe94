package fetcher

import (
	"context"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/kafkapull/go-msk-worker/app/logger"
	"github.com/kafkapull/go-msk-worker/app/provider"
)

type (
	Config struct {
		Workers     int
		MaxPages    int
		MaxAttempts int
		BaseDelay   time.Duration
		MaxDelay    time.Duration
	}

	// Result is the outcome for one (entity, metric, statistic) pair. Err is
	// set when the pair failed after exhausting retries; the run continues
	// with the remaining pairs either way.
	Result struct {
		Query     provider.MetricQuery
		Samples   []provider.RawSample
		Retries   int
		Truncated bool
		Err       error
	}

	Fetcher struct {
		provider provider.Provider
		cfg      Config
	}
)

func New(p provider.Provider, cfg Config) *Fetcher {
	return &Fetcher{
		provider: p,
		cfg:      cfg,
	}
}

// Fetch retrieves every page for the query, following continuation tokens up
// to the configured page cap, and hands samples off sorted by timestamp.
func (f *Fetcher) Fetch(ctx context.Context, query provider.MetricQuery) Result {
	result := Result{Query: query}

	token := ""
	for page := 0; ; page++ {
		if page >= f.cfg.MaxPages {
			// Provider pagination bug guard: the token chain never ended.
			logger.Warnf("[Fetcher] Pagination cap of %d pages reached for %v, truncating", f.cfg.MaxPages, query.PairKey())
			result.Truncated = true
			break
		}

		metricPage, retries, err := f.fetchPage(ctx, query, token)
		result.Retries += retries
		if err != nil {
			result.Err = err
			return result
		}

		result.Samples = append(result.Samples, metricPage.Samples...)

		if metricPage.NextToken == "" {
			break
		}

		token = metricPage.NextToken
	}

	sort.SliceStable(result.Samples, func(i, j int) bool {
		return result.Samples[i].Timestamp.Before(result.Samples[j].Timestamp)
	})

	return result
}

// fetchPage issues one paginated call, retrying throttled/unavailable
// responses with jittered exponential backoff up to the attempt ceiling.
// The query plus token is stateless, so a retry re-issues it verbatim.
func (f *Fetcher) fetchPage(ctx context.Context, query provider.MetricQuery, token string) (provider.MetricPage, int, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.cfg.BaseDelay
	bo.MaxInterval = f.cfg.MaxDelay
	bo.MaxElapsedTime = 0

	var page provider.MetricPage

	attempts := 0
	operation := func() error {
		attempts++

		p, err := f.provider.QueryMetric(ctx, query, token)
		if err != nil {
			if provider.IsRetryable(err) {
				logger.Debugf("[Fetcher] Retryable failure for %v (attempt %d): %v", query.PairKey(), attempts, err)
				return err
			}

			return backoff.Permanent(err)
		}

		page = p
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(f.cfg.MaxAttempts-1)), ctx))

	return page, attempts - 1, err
}

// FetchAll runs the queries over a bounded worker pool and returns once
// every pair has finished: the caller can flush knowing no fetch is still in
// flight. Per-pair failures are recorded, not propagated; an auth failure
// stops new calls from being issued since the whole run is doomed anyway.
func (f *Fetcher) FetchAll(ctx context.Context, queries []provider.MetricQuery) []Result {
	results := make([]Result, len(queries))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(f.cfg.Workers)

	for i := range queries {
		i := i
		query := queries[i]

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Query: query, Err: err}
				return nil
			}

			result := f.Fetch(ctx, query)
			if provider.IsAuth(result.Err) {
				cancel()
			}

			results[i] = result
			return nil
		})
	}

	g.Wait()

	return results
}
