package extractor

import (
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle position of one extraction run. Transitions are
// strictly forward; Failed is terminal and reachable from any state.
type State int

const (
	StatePending State = iota
	StateDiscovering
	StateFetching
	StateNormalizing
	StateWriting
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateDiscovering:
		return "Discovering"
	case StateFetching:
		return "Fetching"
	case StateNormalizing:
		return "Normalizing"
	case StateWriting:
		return "Writing"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func (s State) terminal() bool {
	return s == StateCompleted || s == StateFailed
}

type (
	// Failure records one absorbed per-entity/per-metric failure.
	Failure struct {
		Scope  string `json:"scope"`
		Detail string `json:"detail"`
	}

	// Summary is the always-producible run report: state, tallies and output
	// locations, even when the run failed part-way through.
	Summary struct {
		Provider       string    `json:"provider"`
		Region         string    `json:"region"`
		State          string    `json:"state"`
		StartedAt      time.Time `json:"started_at"`
		FinishedAt     time.Time `json:"finished_at,omitempty"`
		Clusters       int       `json:"clusters"`
		Entities       int       `json:"entities"`
		PairsSucceeded int       `json:"pairs_succeeded"`
		PairsFailed    int       `json:"pairs_failed"`
		SamplesWritten int       `json:"samples_written"`
		Retries        int       `json:"retries"`
		Truncations    int       `json:"truncations"`
		Duplicates     int       `json:"duplicates"`
		OutOfRange     int       `json:"out_of_range"`
		Unmapped       int       `json:"unmapped"`
		Failures       []Failure `json:"failures,omitempty"`
		OutputPath     string    `json:"output_path,omitempty"`
		ClustersPath   string    `json:"clusters_path,omitempty"`
		CostsPath      string    `json:"costs_path,omitempty"`
		Error          string    `json:"error,omitempty"`
	}
)

// Run owns the mutable state of one extraction. It exclusively holds the
// sample buffer until the sink confirms a full flush; after that, no
// component retains samples.
type Run struct {
	mu      sync.Mutex
	state   State
	summary Summary
}

func newRun(providerName, region string, start time.Time) *Run {
	return &Run{
		state: StatePending,
		summary: Summary{
			Provider:  providerName,
			Region:    region,
			State:     StatePending.String(),
			StartedAt: start,
		},
	}
}

// transition advances the run. Moving backwards or leaving a terminal state
// is a programming error and is rejected.
func (r *Run) transition(to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.terminal() {
		return fmt.Errorf("run already %v, cannot transition to %v", r.state, to)
	}

	if to != StateFailed && to <= r.state {
		return fmt.Errorf("invalid transition %v -> %v", r.state, to)
	}

	r.state = to
	r.summary.State = to.String()

	if to.terminal() {
		r.summary.FinishedAt = time.Now().UTC()
	}

	return nil
}

func (r *Run) fail(err error) {
	r.mu.Lock()
	if err != nil {
		r.summary.Error = err.Error()
	}
	r.mu.Unlock()

	r.transition(StateFailed)
}

func (r *Run) recordFailure(scope string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary.Failures = append(r.summary.Failures, Failure{Scope: scope, Detail: err.Error()})
}

func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

func (r *Run) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.summary
	s.Failures = append([]Failure(nil), r.summary.Failures...)

	return s
}
