package config

// https://docs.aws.amazon.com/msk/latest/developerguide/metrics-details.html

type MetricInfo struct {
	Name        string
	BrokerLevel bool
	Serverless  bool
}

// MetricModel lists every CloudWatch metric the worker knows how to collect.
// BrokerLevel metrics carry a Broker ID dimension on provisioned clusters;
// Serverless marks metrics MSK serverless exposes (per topic only).
var MetricModel = map[string]*MetricInfo{
	"BytesInPerSec":             {Name: "BytesInPerSec", BrokerLevel: true, Serverless: true},
	"BytesOutPerSec":            {Name: "BytesOutPerSec", BrokerLevel: true, Serverless: true},
	"MessagesInPerSec":          {Name: "MessagesInPerSec", BrokerLevel: true, Serverless: true},
	"KafkaDataLogsDiskUsed":     {Name: "KafkaDataLogsDiskUsed", BrokerLevel: true},
	"ClientConnectionCount":     {Name: "ClientConnectionCount", BrokerLevel: true},
	"PartitionCount":            {Name: "PartitionCount", BrokerLevel: true},
	"GlobalTopicCount":          {Name: "GlobalTopicCount"},
	"LeaderCount":               {Name: "LeaderCount", BrokerLevel: true},
	"ReplicationBytesInPerSec":  {Name: "ReplicationBytesInPerSec", BrokerLevel: true},
	"ReplicationBytesOutPerSec": {Name: "ReplicationBytesOutPerSec", BrokerLevel: true},
}

// DefaultMetrics mirrors the metric split used for MSK sizing reviews:
// throughput and disk metrics collected as averages and peaks, capacity
// counters as peaks only.
func DefaultMetrics() []Metric {
	return []Metric{
		{MetricName: "BytesInPerSec", Statistics: []string{"Average", "Maximum"}},
		{MetricName: "BytesOutPerSec", Statistics: []string{"Average", "Maximum"}},
		{MetricName: "MessagesInPerSec", Statistics: []string{"Average", "Maximum"}},
		{MetricName: "KafkaDataLogsDiskUsed", Statistics: []string{"Average", "Maximum"}},
		{MetricName: "ClientConnectionCount", Statistics: []string{"Maximum"}},
		{MetricName: "PartitionCount", Statistics: []string{"Maximum"}},
		{MetricName: "GlobalTopicCount", Statistics: []string{"Maximum"}},
		{MetricName: "LeaderCount", Statistics: []string{"Maximum"}},
		{MetricName: "ReplicationBytesInPerSec", Statistics: []string{"Maximum"}},
		{MetricName: "ReplicationBytesOutPerSec", Statistics: []string{"Maximum"}},
	}
}
