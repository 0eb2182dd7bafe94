package extractor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kafkapull/go-msk-worker/app/config"
	"github.com/kafkapull/go-msk-worker/app/fetcher"
	"github.com/kafkapull/go-msk-worker/app/logger"
	"github.com/kafkapull/go-msk-worker/app/normalizer"
	"github.com/kafkapull/go-msk-worker/app/provider"
	"github.com/kafkapull/go-msk-worker/app/sink"
)

// Extractor drives one or more extraction runs against a backend: discover
// topology, fetch metrics, normalize, write. It is backend-agnostic; any
// provider.Provider plugs in.
type Extractor struct {
	cfg      config.Config
	provider provider.Provider
	region   string
	fetcher  *fetcher.Fetcher
	writer   *sink.Writer
	table    normalizer.Table

	mu   sync.Mutex
	last *Summary
}

func New(cfg config.Config, p provider.Provider, region string, table normalizer.Table) *Extractor {
	f := fetcher.New(p, fetcher.Config{
		Workers:     cfg.Fetch.Workers,
		MaxPages:    cfg.Fetch.MaxPages,
		MaxAttempts: cfg.Fetch.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Fetch.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Fetch.MaxDelayMS) * time.Millisecond,
	})

	return &Extractor{
		cfg:      cfg,
		provider: p,
		region:   region,
		fetcher:  f,
		writer:   sink.NewWriter(cfg.Output.Directory),
		table:    table,
	}
}

// LastSummary returns the most recent run report, if any run has finished.
func (e *Extractor) LastSummary() (Summary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.last == nil {
		return Summary{}, false
	}

	return *e.last, true
}

func (e *Extractor) storeSummary(s Summary) {
	e.mu.Lock()
	e.last = &s
	e.mu.Unlock()
}

// Run executes a single pull, or keeps pulling on the configured interval
// until the context is cancelled. In interval mode a failed pull is logged
// and the next tick proceeds.
func (e *Extractor) Run(ctx context.Context) error {
	if e.cfg.Interval() == 0 {
		_, err := e.Execute(ctx)
		return err
	}

	if _, err := e.Execute(ctx); err != nil {
		logger.Errorf("[Extractor] Extraction failed: %v", err)
	}

	ticker := time.NewTicker(e.cfg.Interval())
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			if _, err := e.Execute(ctx); err != nil {
				logger.Errorf("[Extractor] Extraction failed: %v", err)
			}
		}
	}

	logger.Info("[Extractor] Gracefully terminated")

	return nil
}

// Execute performs one full extraction run. The returned error is non-nil
// only for run-global failures (auth, sink, cancellation); per-entity and
// per-metric failures are absorbed into the summary's tallies.
func (e *Extractor) Execute(ctx context.Context) (Summary, error) {
	start := time.Now().UTC()
	run := newRun(e.provider.Name(), e.region, start)

	summary, err := e.execute(ctx, run, start)
	e.storeSummary(summary)

	return summary, err
}

func (e *Extractor) execute(ctx context.Context, run *Run, start time.Time) (Summary, error) {
	runName := fmt.Sprintf("%s-%s-%s", e.provider.Name(), e.region, start.Format("20060102T150405Z"))

	logger.Infof("[Extractor] Starting extraction run %v", runName)

	run.transition(StateDiscovering)

	clusters, err := e.provider.ListClusters(ctx)
	if err != nil {
		run.fail(err)
		return run.Summary(), err
	}

	queries := make([]provider.MetricQuery, 0)
	entityKeys := make(map[string]bool)
	scopedClusters := make([]provider.ClusterRef, 0)

	windowEnd := start
	windowStart := windowEnd.Add(-e.cfg.WindowDuration())
	period := e.cfg.AggregationPeriod()

	for _, cluster := range clusters {
		if !e.cfg.InScope(cluster.Name) {
			continue
		}

		scopedClusters = append(scopedClusters, cluster)
		logger.Infof("[Extractor] Processing cluster %v (%v)", cluster.Name, cluster.ClusterType)

		entities, err := e.discoverEntities(ctx, cluster)
		if err != nil {
			if provider.IsAuth(err) {
				run.fail(err)
				return run.Summary(), err
			}

			// One cluster failing enumeration must not abort the others.
			run.recordFailure(cluster.Name, err)
			logger.Errorf("[Extractor] Failed to enumerate cluster %v: %v", cluster.Name, err)
			continue
		}

		for _, entity := range entities {
			entityKeys[entity.Key()] = true

			for _, metric := range e.cfg.Metrics {
				info, ok := config.MetricModel[metric.MetricName]
				if !ok {
					continue
				}

				if !applies(info, entity) {
					continue
				}

				for _, statistic := range metric.Statistics {
					queries = append(queries, provider.MetricQuery{
						Entity:    entity,
						Metric:    metric.MetricName,
						Statistic: statistic,
						Start:     windowStart,
						End:       windowEnd,
						Period:    period,
					})
				}
			}
		}
	}

	run.mu.Lock()
	run.summary.Clusters = len(scopedClusters)
	run.summary.Entities = len(entityKeys)
	run.mu.Unlock()

	run.transition(StateFetching)

	results := e.fetcher.FetchAll(ctx, queries)

	if err := ctx.Err(); err != nil {
		// Cancellation: report partial completion, write nothing.
		e.tally(run, results, nil)
		run.fail(err)
		return run.Summary(), err
	}

	for _, result := range results {
		if provider.IsAuth(result.Err) {
			e.tally(run, results, nil)
			run.fail(result.Err)
			return run.Summary(), result.Err
		}
	}

	run.transition(StateNormalizing)

	norm := normalizer.New(e.table)

	samples := make([]normalizer.Sample, 0)
	for _, result := range results {
		if result.Err != nil {
			continue
		}

		samples = append(samples, norm.Normalize(result.Query, result.Samples)...)
	}

	e.tally(run, results, norm)

	run.transition(StateWriting)

	if err := ctx.Err(); err != nil {
		run.fail(err)
		return run.Summary(), err
	}

	outputPath, err := e.writer.WriteSamples(runName, samples)
	if err != nil {
		run.fail(err)
		return run.Summary(), err
	}

	clustersPath, err := e.writer.WriteClusters(runName, scopedClusters)
	if err != nil {
		run.fail(err)
		return run.Summary(), err
	}

	run.mu.Lock()
	run.summary.OutputPath = outputPath
	run.summary.ClustersPath = clustersPath
	run.summary.SamplesWritten = len(samples)
	run.mu.Unlock()

	e.writeCosts(ctx, run, runName, start)

	run.transition(StateCompleted)

	summary := run.Summary()
	logger.Infof("[Extractor] Run %v completed: %d/%d pairs succeeded, %d samples written to %v",
		runName, summary.PairsSucceeded, summary.PairsSucceeded+summary.PairsFailed, summary.SamplesWritten, outputPath)

	return summary, nil
}

// discoverEntities enumerates the metric-bearing entities of one cluster:
// brokers plus the cluster itself for provisioned clusters, topics for
// serverless ones.
func (e *Extractor) discoverEntities(ctx context.Context, cluster provider.ClusterRef) ([]provider.EntityRef, error) {
	entities := make([]provider.EntityRef, 0)

	if cluster.ClusterType == provider.ClusterTypeServerless {
		topics, err := e.provider.ListTopics(ctx, cluster)
		if err != nil {
			return nil, err
		}

		for _, topic := range topics {
			entities = append(entities, provider.EntityRef{
				Cluster: cluster,
				Kind:    provider.EntityTopic,
				Topic:   topic.Name,
			})
		}

		return entities, nil
	}

	brokers, err := e.provider.ListBrokers(ctx, cluster)
	if err != nil {
		return nil, err
	}

	for _, broker := range brokers {
		entities = append(entities, provider.EntityRef{
			Cluster:  cluster,
			Kind:     provider.EntityBroker,
			BrokerID: broker.ID,
		})
	}

	entities = append(entities, provider.EntityRef{
		Cluster: cluster,
		Kind:    provider.EntityCluster,
	})

	return entities, nil
}

func applies(info *config.MetricInfo, entity provider.EntityRef) bool {
	switch entity.Kind {
	case provider.EntityBroker:
		return info.BrokerLevel
	case provider.EntityTopic:
		return info.Serverless
	default:
		// Cluster-level slot carries the metrics without a broker dimension.
		return !info.BrokerLevel
	}
}

func (e *Extractor) tally(run *Run, results []fetcher.Result, norm *normalizer.Normalizer) {
	run.mu.Lock()
	defer run.mu.Unlock()

	for _, result := range results {
		run.summary.Retries += result.Retries

		if result.Truncated {
			run.summary.Truncations++
		}

		if result.Err != nil {
			run.summary.PairsFailed++
			run.summary.Failures = append(run.summary.Failures, Failure{
				Scope:  result.Query.PairKey(),
				Detail: result.Err.Error(),
			})
		} else {
			run.summary.PairsSucceeded++
		}
	}

	if norm != nil {
		counters := norm.Counters()
		run.summary.Duplicates = counters.Duplicates
		run.summary.OutOfRange = counters.OutOfRange
		run.summary.Unmapped = counters.Unmapped
	}
}

// writeCosts writes the previous month's cost report when the backend
// supports it. Cost failures never fail the metrics run.
func (e *Extractor) writeCosts(ctx context.Context, run *Run, runName string, now time.Time) {
	if !e.cfg.IncludeCosts {
		return
	}

	reporter, ok := e.provider.(provider.CostReporter)
	if !ok {
		return
	}

	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	firstOfLastMonth := firstOfThisMonth.AddDate(0, -1, 0)

	records, err := reporter.CostUsage(ctx, firstOfLastMonth, firstOfThisMonth)
	if err != nil {
		run.recordFailure("costs", err)
		logger.Errorf("[Extractor] Failed to fetch cost report: %v", err)
		return
	}

	costsPath, err := e.writer.WriteCosts(runName, records)
	if err != nil {
		run.recordFailure("costs", err)
		logger.Errorf("[Extractor] Failed to write cost report: %v", err)
		return
	}

	run.mu.Lock()
	run.summary.CostsPath = costsPath
	run.mu.Unlock()
}
