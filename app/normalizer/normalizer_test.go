package normalizer

import (
	"testing"
	"time"

	"github.com/kafkapull/go-msk-worker/app/provider"
)

func testQuery(metric string) provider.MetricQuery {
	return provider.MetricQuery{
		Entity: provider.EntityRef{
			Cluster:  provider.ClusterRef{Provider: "msk", Name: "cluster-a", Region: "eu-west-1"},
			Kind:     provider.EntityBroker,
			BrokerID: 2,
		},
		Metric:    metric,
		Statistic: provider.StatisticAverage,
	}
}

func TestNormalizeCanonicalFields(t *testing.T) {
	n := New(MSKTable())

	samples := n.Normalize(testQuery("BytesInPerSec"), []provider.RawSample{
		{Timestamp: time.Unix(100, 0), Value: 1024},
	})

	if len(samples) != 1 {
		t.Fatalf("Expected 1 sample, got %d", len(samples))
	}

	s := samples[0]

	if s.Metric != "kafka.bytes_in_per_sec" {
		t.Errorf("Unexpected canonical name: %v", s.Metric)
	}

	if s.Unit != "bytes/second" {
		t.Errorf("Unexpected unit: %v", s.Unit)
	}

	if s.Value != 1024 {
		t.Errorf("Unexpected value: %v", s.Value)
	}

	if s.Cluster != "cluster-a" || s.EntityKind != "broker" || s.Entity != "2" {
		t.Errorf("Unexpected entity fields: %+v", s)
	}

	if !s.Timestamp.Equal(time.Unix(100, 0)) {
		t.Errorf("Unexpected timestamp: %v", s.Timestamp)
	}
}

func TestNormalizeConversionFactor(t *testing.T) {
	table := Table{
		"BytesInPerSec": {Canonical: "kafka.kilobytes_in_per_sec", Unit: "kilobytes/second", Factor: 0.001},
	}

	n := New(table)

	samples := n.Normalize(testQuery("BytesInPerSec"), []provider.RawSample{
		{Timestamp: time.Unix(100, 0), Value: 2000},
	})

	if len(samples) != 1 {
		t.Fatalf("Expected 1 sample, got %d", len(samples))
	}

	if samples[0].Value != 2 {
		t.Errorf("Expected converted value 2, got %v", samples[0].Value)
	}
}

func TestNormalizeRejectsDuplicateTimestamps(t *testing.T) {
	n := New(MSKTable())

	samples := n.Normalize(testQuery("BytesInPerSec"), []provider.RawSample{
		{Timestamp: time.Unix(100, 0), Value: 10},
		{Timestamp: time.Unix(100, 0), Value: 99},
		{Timestamp: time.Unix(200, 0), Value: 20},
	})

	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}

	// First occurrence wins; last-write-wins is a provider anomaly.
	if samples[0].Value != 10 {
		t.Errorf("Expected first occurrence to win, got %v", samples[0].Value)
	}

	if n.Counters().Duplicates != 1 {
		t.Errorf("Expected 1 duplicate counted, got %d", n.Counters().Duplicates)
	}
}

func TestNormalizeDropsOutOfRangeValues(t *testing.T) {
	n := New(MSKTable())

	samples := n.Normalize(testQuery("KafkaDataLogsDiskUsed"), []provider.RawSample{
		{Timestamp: time.Unix(100, 0), Value: 42},
		{Timestamp: time.Unix(200, 0), Value: -3},
		{Timestamp: time.Unix(300, 0), Value: 117},
	})

	if len(samples) != 1 {
		t.Fatalf("Expected 1 sample, got %d", len(samples))
	}

	if n.Counters().OutOfRange != 2 {
		t.Errorf("Expected 2 out-of-range counted, got %d", n.Counters().OutOfRange)
	}
}

func TestNormalizeSkipsUnmappedMetric(t *testing.T) {
	n := New(MSKTable())

	samples := n.Normalize(testQuery("SomethingUnknown"), []provider.RawSample{
		{Timestamp: time.Unix(100, 0), Value: 1},
		{Timestamp: time.Unix(200, 0), Value: 2},
	})

	if len(samples) != 0 {
		t.Fatalf("Expected 0 samples, got %d", len(samples))
	}

	if n.Counters().Unmapped != 2 {
		t.Errorf("Expected 2 unmapped counted, got %d", n.Counters().Unmapped)
	}
}

func TestNormalizeNegativeThroughputDropped(t *testing.T) {
	n := New(MSKTable())

	samples := n.Normalize(testQuery("BytesInPerSec"), []provider.RawSample{
		{Timestamp: time.Unix(100, 0), Value: -1},
	})

	if len(samples) != 0 {
		t.Fatalf("Expected negative byte count to be dropped, got %d samples", len(samples))
	}

	if n.Counters().OutOfRange != 1 {
		t.Errorf("Expected 1 out-of-range counted, got %d", n.Counters().OutOfRange)
	}
}
