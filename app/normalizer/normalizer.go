package normalizer

import (
	"time"

	"github.com/kafkapull/go-msk-worker/app/logger"
	"github.com/kafkapull/go-msk-worker/app/provider"
)

type (
	// Sample is the canonical, provider-independent output record. The field
	// set is the full output schema: files written by the sink can be
	// re-parsed from these names alone.
	Sample struct {
		Provider   string    `json:"provider"`
		Region     string    `json:"region"`
		Cluster    string    `json:"cluster"`
		EntityKind string    `json:"entity_kind"`
		Entity     string    `json:"entity"`
		Metric     string    `json:"metric"`
		Statistic  string    `json:"statistic"`
		Timestamp  time.Time `json:"timestamp"`
		Value      float64   `json:"value"`
		Unit       string    `json:"unit"`
	}

	// Mapping translates one provider metric onto the canonical schema.
	// Values outside [Min, Max] after conversion are data-quality anomalies.
	Mapping struct {
		Canonical string
		Unit      string
		Factor    float64
		Min       float64
		Max       float64
	}

	Table map[string]Mapping

	Counters struct {
		Duplicates int
		OutOfRange int
		Unmapped   int
	}

	Normalizer struct {
		table    Table
		counters Counters
	}
)

func New(table Table) *Normalizer {
	return &Normalizer{
		table: table,
	}
}

// Normalize maps the raw samples of one fetched (entity, metric, statistic)
// pair into canonical records. Anomalies never fail the call: duplicate
// timestamps are rejected (first occurrence wins), out-of-range values are
// dropped, and an unmapped metric skips the whole pair. All three are
// counted and logged as provider anomalies.
func (n *Normalizer) Normalize(query provider.MetricQuery, samples []provider.RawSample) []Sample {
	mapping, ok := n.table[query.Metric]
	if !ok {
		n.counters.Unmapped += len(samples)
		logger.Warnf("[Normalizer] No mapping for provider metric %v, skipping %d samples", query.Metric, len(samples))
		return nil
	}

	out := make([]Sample, 0, len(samples))
	seen := make(map[int64]bool, len(samples))

	for _, raw := range samples {
		ts := raw.Timestamp.UTC()

		key := ts.UnixNano()
		if seen[key] {
			n.counters.Duplicates++
			logger.Warnf("[Normalizer] Duplicate timestamp %v for %v, rejecting sample", ts, query.PairKey())
			continue
		}

		value := raw.Value * mapping.Factor
		if value < mapping.Min || (mapping.Max != 0 && value > mapping.Max) {
			n.counters.OutOfRange++
			logger.Warnf("[Normalizer] Value %v out of range for %v at %v, dropping sample", value, query.PairKey(), ts)
			continue
		}

		seen[key] = true

		out = append(out, Sample{
			Provider:   query.Entity.Cluster.Provider,
			Region:     query.Entity.Cluster.Region,
			Cluster:    query.Entity.Cluster.Name,
			EntityKind: string(query.Entity.Kind),
			Entity:     query.Entity.Label(),
			Metric:     mapping.Canonical,
			Statistic:  query.Statistic,
			Timestamp:  ts,
			Value:      value,
			Unit:       mapping.Unit,
		})
	}

	return out
}

func (n *Normalizer) Counters() Counters {
	return n.counters
}
