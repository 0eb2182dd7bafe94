package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kafkapull/go-msk-worker/app/provider"
)

// fakeBackend serves canned metric pages keyed by continuation token and can
// inject classified failures per (entity, metric, statistic) pair.
type fakeBackend struct {
	mu        sync.Mutex
	pages     map[string]provider.MetricPage
	throttles map[string]int
	authFail  bool
	calls     int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) ListClusters(ctx context.Context) ([]provider.ClusterRef, error) {
	return nil, nil
}

func (f *fakeBackend) ListBrokers(ctx context.Context, c provider.ClusterRef) ([]provider.BrokerRef, error) {
	return nil, nil
}

func (f *fakeBackend) ListTopics(ctx context.Context, c provider.ClusterRef) ([]provider.TopicRef, error) {
	return nil, nil
}

func (f *fakeBackend) QueryMetric(ctx context.Context, q provider.MetricQuery, token string) (provider.MetricPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if f.authFail {
		return provider.MetricPage{}, provider.NewError(provider.KindAuth, "fake.QueryMetric", errors.New("bad credentials"))
	}

	if f.throttles[q.PairKey()] > 0 {
		f.throttles[q.PairKey()]--
		return provider.MetricPage{}, provider.NewError(provider.KindThrottled, "fake.QueryMetric", errors.New("rate exceeded"))
	}

	page, ok := f.pages[token]
	if !ok {
		return provider.MetricPage{}, provider.NewError(provider.KindOther, "fake.QueryMetric", errors.New("unknown token"))
	}

	return page, nil
}

func testConfig() Config {
	return Config{
		Workers:     2,
		MaxPages:    10,
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func brokerQuery(metric string) provider.MetricQuery {
	return provider.MetricQuery{
		Entity: provider.EntityRef{
			Cluster:  provider.ClusterRef{Provider: "fake", Name: "cluster-a", Region: "us-east-1"},
			Kind:     provider.EntityBroker,
			BrokerID: 1,
		},
		Metric:    metric,
		Statistic: provider.StatisticAverage,
		Start:     time.Unix(0, 0),
		End:       time.Unix(3600, 0),
		Period:    time.Minute,
	}
}

func samplesAt(seconds ...int64) []provider.RawSample {
	out := make([]provider.RawSample, 0, len(seconds))
	for _, s := range seconds {
		out = append(out, provider.RawSample{Timestamp: time.Unix(s, 0), Value: float64(s)})
	}

	return out
}

func TestFetchMergesPages(t *testing.T) {
	backend := &fakeBackend{
		pages: map[string]provider.MetricPage{
			"":   {Samples: samplesAt(10, 20), NextToken: "t1"},
			"t1": {Samples: samplesAt(30, 40), NextToken: "t2"},
			"t2": {Samples: samplesAt(50), NextToken: ""},
		},
	}

	f := New(backend, testConfig())
	result := f.Fetch(context.Background(), brokerQuery("BytesInPerSec"))

	if result.Err != nil {
		t.Fatalf("Unexpected error: %v", result.Err)
	}

	if len(result.Samples) != 5 {
		t.Fatalf("Expected 5 samples, got %d", len(result.Samples))
	}

	for i := 1; i < len(result.Samples); i++ {
		prev, cur := result.Samples[i-1].Timestamp, result.Samples[i].Timestamp
		if cur.Before(prev) {
			t.Errorf("Samples out of order: %v before %v", cur, prev)
		}
		if cur.Equal(prev) {
			t.Errorf("Duplicate timestamp %v", cur)
		}
	}

	if result.Truncated {
		t.Error("Unexpected truncation")
	}
}

func TestFetchSortsOutOfOrderPages(t *testing.T) {
	backend := &fakeBackend{
		pages: map[string]provider.MetricPage{
			"":   {Samples: samplesAt(40, 50), NextToken: "t1"},
			"t1": {Samples: samplesAt(10, 20), NextToken: ""},
		},
	}

	f := New(backend, testConfig())
	result := f.Fetch(context.Background(), brokerQuery("BytesInPerSec"))

	if result.Err != nil {
		t.Fatalf("Unexpected error: %v", result.Err)
	}

	for i := 1; i < len(result.Samples); i++ {
		if result.Samples[i].Timestamp.Before(result.Samples[i-1].Timestamp) {
			t.Fatalf("Samples not sorted: %v", result.Samples)
		}
	}
}

func TestFetchThrottledRetryTransparency(t *testing.T) {
	pages := map[string]provider.MetricPage{
		"": {Samples: samplesAt(10, 20, 30), NextToken: ""},
	}

	immediate := New(&fakeBackend{pages: pages}, testConfig())
	immediateResult := immediate.Fetch(context.Background(), brokerQuery("MessagesInPerSec"))

	query := brokerQuery("MessagesInPerSec")
	throttled := New(&fakeBackend{
		pages:     pages,
		throttles: map[string]int{query.PairKey(): 2},
	}, testConfig())
	throttledResult := throttled.Fetch(context.Background(), query)

	if throttledResult.Err != nil {
		t.Fatalf("Unexpected error: %v", throttledResult.Err)
	}

	if throttledResult.Retries != 2 {
		t.Errorf("Expected 2 retries, got %d", throttledResult.Retries)
	}

	if len(throttledResult.Samples) != len(immediateResult.Samples) {
		t.Fatalf("Expected %d samples, got %d", len(immediateResult.Samples), len(throttledResult.Samples))
	}

	for i := range immediateResult.Samples {
		if throttledResult.Samples[i] != immediateResult.Samples[i] {
			t.Errorf("Sample %d differs: %v vs %v", i, throttledResult.Samples[i], immediateResult.Samples[i])
		}
	}
}

func TestFetchRetryCeiling(t *testing.T) {
	query := brokerQuery("BytesOutPerSec")
	backend := &fakeBackend{
		pages:     map[string]provider.MetricPage{},
		throttles: map[string]int{query.PairKey(): 1000},
	}

	cfg := testConfig()
	f := New(backend, cfg)
	result := f.Fetch(context.Background(), query)

	if result.Err == nil {
		t.Fatal("Expected error after exceeding retry ceiling")
	}

	if !provider.IsThrottled(result.Err) {
		t.Errorf("Expected throttled classification, got %v", provider.KindOf(result.Err))
	}

	if backend.calls != cfg.MaxAttempts {
		t.Errorf("Expected %d attempts, got %d", cfg.MaxAttempts, backend.calls)
	}
}

func TestFetchPaginationCap(t *testing.T) {
	// The provider never stops returning continuation tokens.
	backend := &fakeBackend{
		pages: map[string]provider.MetricPage{
			"":     {Samples: samplesAt(10), NextToken: "loop"},
			"loop": {Samples: samplesAt(20), NextToken: "loop"},
		},
	}

	cfg := testConfig()
	cfg.MaxPages = 3

	f := New(backend, cfg)
	result := f.Fetch(context.Background(), brokerQuery("BytesInPerSec"))

	if result.Err != nil {
		t.Fatalf("Unexpected error: %v", result.Err)
	}

	if !result.Truncated {
		t.Error("Expected truncation after pagination cap")
	}

	if backend.calls != cfg.MaxPages {
		t.Errorf("Expected %d calls, got %d", cfg.MaxPages, backend.calls)
	}
}

func TestFetchAllFailureIsolation(t *testing.T) {
	doomed := brokerQuery("KafkaDataLogsDiskUsed")

	backend := &fakeBackend{
		pages: map[string]provider.MetricPage{
			"": {Samples: samplesAt(10, 20), NextToken: ""},
		},
		throttles: map[string]int{doomed.PairKey(): 1000},
	}

	f := New(backend, testConfig())

	queries := []provider.MetricQuery{
		brokerQuery("BytesInPerSec"),
		doomed,
		brokerQuery("BytesOutPerSec"),
	}

	results := f.FetchAll(context.Background(), queries)

	if len(results) != len(queries) {
		t.Fatalf("Expected %d results, got %d", len(queries), len(results))
	}

	var failed, succeeded int
	for _, result := range results {
		if result.Err != nil {
			failed++
		} else {
			succeeded++
			if len(result.Samples) != 2 {
				t.Errorf("Expected 2 samples for %v, got %d", result.Query.PairKey(), len(result.Samples))
			}
		}
	}

	if failed != 1 || succeeded != 2 {
		t.Errorf("Expected 1 failed / 2 succeeded, got %d / %d", failed, succeeded)
	}
}

func TestFetchAllCancelledContext(t *testing.T) {
	backend := &fakeBackend{
		pages: map[string]provider.MetricPage{
			"": {Samples: samplesAt(10), NextToken: ""},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(backend, testConfig())
	results := f.FetchAll(ctx, []provider.MetricQuery{brokerQuery("BytesInPerSec")})

	if results[0].Err == nil {
		t.Error("Expected error for cancelled context")
	}
}
