package sink

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kafkapull/go-msk-worker/app/normalizer"
	"github.com/kafkapull/go-msk-worker/app/provider"
)

func testSamples() []normalizer.Sample {
	return []normalizer.Sample{
		{
			Provider: "msk", Region: "us-east-1", Cluster: "cluster-b",
			EntityKind: "broker", Entity: "1", Metric: "kafka.bytes_in_per_sec",
			Statistic: "Average", Timestamp: time.Unix(200, 0).UTC(), Value: 20, Unit: "bytes/second",
		},
		{
			Provider: "msk", Region: "us-east-1", Cluster: "cluster-a",
			EntityKind: "broker", Entity: "1", Metric: "kafka.bytes_in_per_sec",
			Statistic: "Average", Timestamp: time.Unix(100, 0).UTC(), Value: 10, Unit: "bytes/second",
		},
		{
			Provider: "msk", Region: "us-east-1", Cluster: "cluster-a",
			EntityKind: "broker", Entity: "1", Metric: "kafka.bytes_in_per_sec",
			Statistic: "Average", Timestamp: time.Unix(50, 0).UTC(), Value: 5, Unit: "bytes/second",
		},
	}
}

func TestWriteSamplesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	path, err := w.WriteSamples("msk-us-east-1-20240101T000000Z", testSamples())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "msk-us-east-1-20240101T000000Z-metrics.jsonl"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []normalizer.Sample
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var s normalizer.Sample
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &s))
		lines = append(lines, s)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 3)

	// Deterministic order: cluster first, then timestamp.
	assert.Equal(t, "cluster-a", lines[0].Cluster)
	assert.Equal(t, time.Unix(50, 0).UTC(), lines[0].Timestamp)
	assert.Equal(t, "cluster-a", lines[1].Cluster)
	assert.Equal(t, "cluster-b", lines[2].Cluster)
}

func TestWriteSamplesLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	_, err := w.WriteSamples("run", testSamples())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, entry := range entries {
		assert.False(t, strings.HasSuffix(entry.Name(), ".tmp"), "temp file left behind: %v", entry.Name())
	}
}

func TestWriteSamplesDeterministic(t *testing.T) {
	w := NewWriter(t.TempDir())

	pathA, err := w.WriteSamples("run-a", testSamples())
	require.NoError(t, err)

	pathB, err := w.WriteSamples("run-b", testSamples())
	require.NoError(t, err)

	a, err := os.ReadFile(pathA)
	require.NoError(t, err)

	b, err := os.ReadFile(pathB)
	require.NoError(t, err)

	assert.Equal(t, a, b, "identical input must produce byte-identical records")
}

func TestWriteSamplesFailsOnMissingDirectory(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := w.WriteSamples("run", testSamples())
	require.Error(t, err)
}

func TestWriteClusters(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	clusters := []provider.ClusterRef{
		{
			Provider: "msk", Region: "us-east-1", Name: "cluster-b", ID: "arn:b",
			ClusterType: provider.ClusterTypeServerless, Authentication: "SASL/IAM",
		},
		{
			Provider: "msk", Region: "us-east-1", Name: "cluster-a", ID: "arn:a",
			ClusterType: provider.ClusterTypeProvisioned, KafkaVersion: "3.6.0",
			Authentication: "SASL/IAM, TLS", BrokerInstanceType: "kafka.m5.large", BrokerVolumeSizeGB: 1000,
		},
	}

	path, err := w.WriteClusters("run", clusters)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "run-clusters.jsonl"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "cluster-a", first["cluster"], "clusters sorted by name")
	assert.Equal(t, "3.6.0", first["kafka_version"])
	assert.Equal(t, float64(1000), first["broker_volume_size_gb"])
}

func TestWriteCosts(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	records := []provider.CostRecord{
		{PeriodStart: "2024-01-01", UsageType: "Kafka-Storage", Cost: 12.5, Currency: "USD"},
		{PeriodStart: "TOTAL", UsageType: "ALL", Cost: 12.5, Currency: "USD"},
	}

	path, err := w.WriteCosts("run", records)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "run-costs.jsonl"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Kafka-Storage", first["usage_type"])
	assert.Equal(t, 12.5, first["cost"])
}
