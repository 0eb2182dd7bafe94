package provider

import (
	"context"
	"fmt"
	"time"
)

type (
	// ClusterRef identifies one managed cluster and the authentication /
	// endpoint scope for all child queries. Immutable once discovered.
	ClusterRef struct {
		Provider           string
		ID                 string
		Name               string
		Region             string
		ClusterType        string
		KafkaVersion       string
		Authentication     string
		AZDistribution     string
		EnhancedMonitoring string
		BrokerInstanceType string
		BrokerVolumeSizeGB int
	}

	// BrokerRef belongs to exactly one cluster. Enumerated fresh each run.
	BrokerRef struct {
		Cluster ClusterRef
		ID      int
		ARN     string
	}

	// TopicRef belongs to exactly one cluster.
	TopicRef struct {
		Cluster    ClusterRef
		Name       string
		Partitions int
	}

	EntityKind string

	// EntityRef is the unit against which metrics are queried: the cluster
	// itself, one broker, or one topic.
	EntityRef struct {
		Cluster  ClusterRef
		Kind     EntityKind
		BrokerID int
		Topic    string
	}

	// MetricQuery is stateless and re-issuable on retry: the same query with
	// the same token must yield the same page.
	MetricQuery struct {
		Entity    EntityRef
		Metric    string
		Statistic string
		Start     time.Time
		End       time.Time
		Period    time.Duration
	}

	RawSample struct {
		Timestamp time.Time
		Value     float64
	}

	// MetricPage is one page of a paginated response. An empty NextToken
	// means the page is the last one.
	MetricPage struct {
		Samples   []RawSample
		NextToken string
	}

	CostRecord struct {
		PeriodStart string
		UsageType   string
		Cost        float64
		Currency    string
	}
)

const (
	EntityCluster EntityKind = "cluster"
	EntityBroker  EntityKind = "broker"
	EntityTopic   EntityKind = "topic"

	StatisticAverage = "Average"
	StatisticMaximum = "Maximum"
)

const (
	ClusterTypeProvisioned = "PROVISIONED"
	ClusterTypeServerless  = "SERVERLESS"
)

// Provider is the capability set every managed-Kafka backend must satisfy.
// The fetcher, normalizer and sink layers are backend-agnostic; any backend
// implementing these four calls can be plugged in.
type Provider interface {
	Name() string
	ListClusters(ctx context.Context) ([]ClusterRef, error)
	ListBrokers(ctx context.Context, cluster ClusterRef) ([]BrokerRef, error)
	ListTopics(ctx context.Context, cluster ClusterRef) ([]TopicRef, error)
	QueryMetric(ctx context.Context, query MetricQuery, token string) (MetricPage, error)
}

// CostReporter is an optional backend capability. Backends without a billing
// API simply do not implement it.
type CostReporter interface {
	CostUsage(ctx context.Context, start, end time.Time) ([]CostRecord, error)
}

// Key returns a stable identifier for the entity, unique within a run.
func (e EntityRef) Key() string {
	switch e.Kind {
	case EntityBroker:
		return fmt.Sprintf("%s/broker/%d", e.Cluster.Name, e.BrokerID)
	case EntityTopic:
		return fmt.Sprintf("%s/topic/%s", e.Cluster.Name, e.Topic)
	default:
		return fmt.Sprintf("%s/cluster", e.Cluster.Name)
	}
}

// Label returns the entity identifier without the cluster prefix, suitable
// for output records that already carry the cluster name.
func (e EntityRef) Label() string {
	switch e.Kind {
	case EntityBroker:
		return fmt.Sprintf("%d", e.BrokerID)
	case EntityTopic:
		return e.Topic
	default:
		return e.Cluster.Name
	}
}

// PairKey identifies the (entity, metric, statistic) unit of work.
func (q MetricQuery) PairKey() string {
	return fmt.Sprintf("%s:%s:%s", q.Entity.Key(), q.Metric, q.Statistic)
}
