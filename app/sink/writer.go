package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kafkapull/go-msk-worker/app/normalizer"
	"github.com/kafkapull/go-msk-worker/app/provider"
)

// Writer persists a run's canonical records under one directory. Each run
// writes to a fresh, uniquely named file through a temp path that is only
// renamed into place after a full flush, so a failed run can never corrupt
// or impersonate a completed one.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{
		dir: dir,
	}
}

// WriteSamples writes the run's samples as line-delimited JSON, one record
// per line, in a deterministic order. It returns the final path only after
// the file is fully flushed and renamed; any earlier failure leaves no
// completed output behind.
func (w *Writer) WriteSamples(runName string, samples []normalizer.Sample) (string, error) {
	sortSamples(samples)

	finalPath := filepath.Join(w.dir, fmt.Sprintf("%s-metrics.jsonl", runName))

	if err := w.writeLines(finalPath, len(samples), func(enc *json.Encoder, i int) error {
		return enc.Encode(samples[i])
	}); err != nil {
		return "", err
	}

	return finalPath, nil
}

// WriteClusters writes the discovered cluster inventory for a run: one line
// per cluster with the configuration details reported alongside metrics.
func (w *Writer) WriteClusters(runName string, clusters []provider.ClusterRef) (string, error) {
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Name < clusters[j].Name })

	finalPath := filepath.Join(w.dir, fmt.Sprintf("%s-clusters.jsonl", runName))

	type clusterLine struct {
		Provider           string `json:"provider"`
		Region             string `json:"region"`
		Cluster            string `json:"cluster"`
		ClusterARN         string `json:"cluster_arn"`
		ClusterType        string `json:"cluster_type"`
		KafkaVersion       string `json:"kafka_version,omitempty"`
		Authentication     string `json:"authentication,omitempty"`
		AZDistribution     string `json:"az_distribution,omitempty"`
		EnhancedMonitoring string `json:"enhanced_monitoring,omitempty"`
		BrokerInstanceType string `json:"broker_instance_type,omitempty"`
		BrokerVolumeSizeGB int    `json:"broker_volume_size_gb,omitempty"`
	}

	if err := w.writeLines(finalPath, len(clusters), func(enc *json.Encoder, i int) error {
		c := clusters[i]

		return enc.Encode(clusterLine{
			Provider:           c.Provider,
			Region:             c.Region,
			Cluster:            c.Name,
			ClusterARN:         c.ID,
			ClusterType:        c.ClusterType,
			KafkaVersion:       c.KafkaVersion,
			Authentication:     c.Authentication,
			AZDistribution:     c.AZDistribution,
			EnhancedMonitoring: c.EnhancedMonitoring,
			BrokerInstanceType: c.BrokerInstanceType,
			BrokerVolumeSizeGB: c.BrokerVolumeSizeGB,
		})
	}); err != nil {
		return "", err
	}

	return finalPath, nil
}

// WriteCosts writes the companion cost report for a run.
func (w *Writer) WriteCosts(runName string, records []provider.CostRecord) (string, error) {
	finalPath := filepath.Join(w.dir, fmt.Sprintf("%s-costs.jsonl", runName))

	type costLine struct {
		PeriodStart string  `json:"period_start"`
		UsageType   string  `json:"usage_type"`
		Cost        float64 `json:"cost"`
		Currency    string  `json:"currency"`
	}

	if err := w.writeLines(finalPath, len(records), func(enc *json.Encoder, i int) error {
		return enc.Encode(costLine{
			PeriodStart: records[i].PeriodStart,
			UsageType:   records[i].UsageType,
			Cost:        records[i].Cost,
			Currency:    records[i].Currency,
		})
	}); err != nil {
		return "", err
	}

	return finalPath, nil
}

func (w *Writer) writeLines(finalPath string, n int, encodeLine func(*json.Encoder, int) error) error {
	tmpPath := finalPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("sink: creating %v: %w", tmpPath, err)
	}

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)

	for i := 0; i < n; i++ {
		if err := encodeLine(enc, i); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("sink: encoding record %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sink: flushing %v: %w", tmpPath, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sink: syncing %v: %w", tmpPath, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("sink: closing %v: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("sink: renaming %v: %w", tmpPath, err)
	}

	return nil
}

// sortSamples fixes the record order so identical provider data always
// produces byte-identical output.
func sortSamples(samples []normalizer.Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		a, b := samples[i], samples[j]

		if a.Cluster != b.Cluster {
			return a.Cluster < b.Cluster
		}
		if a.EntityKind != b.EntityKind {
			return a.EntityKind < b.EntityKind
		}
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		if a.Metric != b.Metric {
			return a.Metric < b.Metric
		}
		if a.Statistic != b.Statistic {
			return a.Statistic < b.Statistic
		}

		return a.Timestamp.Before(b.Timestamp)
	})
}
