package normalizer

// MSKTable maps AWS/Kafka CloudWatch metric names onto the canonical
// schema. Max 0 means unbounded above; every MSK metric is non-negative.
func MSKTable() Table {
	return Table{
		"BytesInPerSec":             {Canonical: "kafka.bytes_in_per_sec", Unit: "bytes/second", Factor: 1},
		"BytesOutPerSec":            {Canonical: "kafka.bytes_out_per_sec", Unit: "bytes/second", Factor: 1},
		"MessagesInPerSec":          {Canonical: "kafka.messages_in_per_sec", Unit: "messages/second", Factor: 1},
		"KafkaDataLogsDiskUsed":     {Canonical: "kafka.data_logs_disk_used", Unit: "percent", Factor: 1, Max: 100},
		"ClientConnectionCount":     {Canonical: "kafka.client_connection_count", Unit: "count", Factor: 1},
		"PartitionCount":            {Canonical: "kafka.partition_count", Unit: "count", Factor: 1},
		"GlobalTopicCount":          {Canonical: "kafka.global_topic_count", Unit: "count", Factor: 1},
		"LeaderCount":               {Canonical: "kafka.leader_count", Unit: "count", Factor: 1},
		"ReplicationBytesInPerSec":  {Canonical: "kafka.replication_bytes_in_per_sec", Unit: "bytes/second", Factor: 1},
		"ReplicationBytesOutPerSec": {Canonical: "kafka.replication_bytes_out_per_sec", Unit: "bytes/second", Factor: 1},
	}
}
