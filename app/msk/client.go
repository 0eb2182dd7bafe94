package msk

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/kafka"
	kafkatypes "github.com/aws/aws-sdk-go-v2/service/kafka/types"
	"github.com/aws/smithy-go"

	"github.com/kafkapull/go-msk-worker/app/provider"
	"github.com/kafkapull/go-msk-worker/app/util"
)

const (
	cloudwatchNamespace = "AWS/Kafka"

	clusterNameDimension = "Cluster Name"
	brokerIDDimension    = "Broker ID"
	topicDimension       = "Topic"
)

// Client is the AWS MSK backend. The underlying AWS clients share one
// credential session resolved through the SDK's default chain; workers use
// the client concurrently and never mutate it.
type Client struct {
	kafka      *kafka.Client
	cloudwatch *cloudwatch.Client
	costs      *costexplorer.Client
	region     string
}

func NewClient(ctx context.Context, region string) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, provider.NewError(provider.KindAuth, "msk.NewClient", err)
	}

	return &Client{
		kafka:      kafka.NewFromConfig(cfg),
		cloudwatch: cloudwatch.NewFromConfig(cfg),
		costs:      costexplorer.NewFromConfig(cfg),
		region:     cfg.Region,
	}, nil
}

func (c *Client) Name() string {
	return "msk"
}

func (c *Client) Region() string {
	return c.region
}

// ListClusters enumerates ACTIVE clusters, provisioned and serverless, with
// the cluster details reported alongside metrics (Kafka version, auth modes,
// AZ distribution, broker sizing).
func (c *Client) ListClusters(ctx context.Context) ([]provider.ClusterRef, error) {
	clusters := make([]provider.ClusterRef, 0)

	paginator := kafka.NewListClustersV2Paginator(c.kafka, &kafka.ListClustersV2Input{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("msk.ListClusters", err)
		}

		for _, cluster := range page.ClusterInfoList {
			if cluster.State != kafkatypes.ClusterStateActive {
				continue
			}

			clusters = append(clusters, c.clusterRef(cluster))
		}
	}

	return clusters, nil
}

func (c *Client) clusterRef(cluster kafkatypes.Cluster) provider.ClusterRef {
	ref := provider.ClusterRef{
		Provider:       c.Name(),
		ID:             aws.ToString(cluster.ClusterArn),
		Name:           aws.ToString(cluster.ClusterName),
		Region:         c.region,
		KafkaVersion:   "N/A",
		AZDistribution: "N/A",
	}

	switch cluster.ClusterType {
	case kafkatypes.ClusterTypeProvisioned:
		ref.ClusterType = provider.ClusterTypeProvisioned
	case kafkatypes.ClusterTypeServerless:
		ref.ClusterType = provider.ClusterTypeServerless
	default:
		ref.ClusterType = string(cluster.ClusterType)
	}

	if p := cluster.Provisioned; p != nil {
		ref.EnhancedMonitoring = string(p.EnhancedMonitoring)
		ref.Authentication = authString(p.ClientAuthentication)

		if p.CurrentBrokerSoftwareInfo != nil {
			ref.KafkaVersion = aws.ToString(p.CurrentBrokerSoftwareInfo.KafkaVersion)
		}

		if g := p.BrokerNodeGroupInfo; g != nil {
			ref.BrokerInstanceType = aws.ToString(g.InstanceType)

			switch g.BrokerAZDistribution {
			case kafkatypes.BrokerAZDistributionDefault:
				ref.AZDistribution = "Multiple AZ"
			default:
				ref.AZDistribution = "Single AZ"
			}

			if g.StorageInfo != nil && g.StorageInfo.EbsStorageInfo != nil {
				ref.BrokerVolumeSizeGB = int(aws.ToInt32(g.StorageInfo.EbsStorageInfo.VolumeSize))
			}
		}
	}

	if s := cluster.Serverless; s != nil {
		ref.AZDistribution = "Multiple AZ"
		ref.Authentication = serverlessAuthString(s.ClientAuthentication)
	}

	return ref
}

func authString(auth *kafkatypes.ClientAuthentication) string {
	if auth == nil {
		return "None"
	}

	types := make([]string, 0, 3)
	if auth.Sasl != nil && auth.Sasl.Iam != nil && aws.ToBool(auth.Sasl.Iam.Enabled) {
		types = append(types, "SASL/IAM")
	}
	if auth.Sasl != nil && auth.Sasl.Scram != nil && aws.ToBool(auth.Sasl.Scram.Enabled) {
		types = append(types, "SASL/SCRAM")
	}
	if auth.Tls != nil && aws.ToBool(auth.Tls.Enabled) {
		types = append(types, "TLS")
	}

	if len(types) == 0 {
		return "None"
	}

	return joinAuth(types)
}

func serverlessAuthString(auth *kafkatypes.ServerlessClientAuthentication) string {
	if auth != nil && auth.Sasl != nil && auth.Sasl.Iam != nil && aws.ToBool(auth.Sasl.Iam.Enabled) {
		return "SASL/IAM"
	}

	return "None"
}

func joinAuth(types []string) string {
	s := types[0]
	for _, t := range types[1:] {
		s += ", " + t
	}

	return s
}

// ListBrokers enumerates broker nodes of a provisioned cluster. Serverless
// clusters expose no broker-level dimension, so the broker set is empty and
// metrics are collected per topic instead.
func (c *Client) ListBrokers(ctx context.Context, cluster provider.ClusterRef) ([]provider.BrokerRef, error) {
	if cluster.ClusterType != provider.ClusterTypeProvisioned {
		return nil, nil
	}

	brokers := make([]provider.BrokerRef, 0)

	paginator := kafka.NewListNodesPaginator(c.kafka, &kafka.ListNodesInput{
		ClusterArn: aws.String(cluster.ID),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("msk.ListBrokers", err)
		}

		for _, node := range page.NodeInfoList {
			if node.BrokerNodeInfo == nil {
				continue
			}

			brokers = append(brokers, provider.BrokerRef{
				Cluster: cluster,
				ID:      int(aws.ToFloat64(node.BrokerNodeInfo.BrokerId)),
				ARN:     aws.ToString(node.NodeARN),
			})
		}
	}

	sort.Slice(brokers, func(i, j int) bool { return brokers[i].ID < brokers[j].ID })

	return brokers, nil
}

// ListTopics discovers topics through the CloudWatch metric catalog: MSK has
// no topic listing on the control plane, but every topic with activity shows
// up as a Topic dimension under the cluster's namespace.
func (c *Client) ListTopics(ctx context.Context, cluster provider.ClusterRef) ([]provider.TopicRef, error) {
	seen := make(map[string]bool)

	paginator := cloudwatch.NewListMetricsPaginator(c.cloudwatch, &cloudwatch.ListMetricsInput{
		Namespace: aws.String(cloudwatchNamespace),
		Dimensions: []cwtypes.DimensionFilter{
			{Name: aws.String(clusterNameDimension), Value: aws.String(cluster.Name)},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("msk.ListTopics", err)
		}

		for _, metric := range page.Metrics {
			for _, dim := range metric.Dimensions {
				if aws.ToString(dim.Name) == topicDimension && aws.ToString(dim.Value) != "" {
					seen[aws.ToString(dim.Value)] = true
				}
			}
		}
	}

	topics := make([]provider.TopicRef, 0, len(seen))
	for name := range seen {
		topics = append(topics, provider.TopicRef{Cluster: cluster, Name: name})
	}

	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })

	return topics, nil
}

// QueryMetric fetches one page of datapoints for a single (entity, metric,
// statistic) query. The continuation token is CloudWatch's NextToken and is
// passed back verbatim by the fetcher.
func (c *Client) QueryMetric(ctx context.Context, query provider.MetricQuery, token string) (provider.MetricPage, error) {
	input := &cloudwatch.GetMetricDataInput{
		StartTime: aws.Time(query.Start),
		EndTime:   aws.Time(query.End),
		ScanBy:    cwtypes.ScanByTimestampAscending,
		MetricDataQueries: []cwtypes.MetricDataQuery{
			{
				Id: aws.String(util.SanitizeQueryID(query.PairKey())),
				MetricStat: &cwtypes.MetricStat{
					Metric: &cwtypes.Metric{
						Namespace:  aws.String(cloudwatchNamespace),
						MetricName: aws.String(query.Metric),
						Dimensions: dimensions(query.Entity),
					},
					Period: aws.Int32(int32(query.Period.Seconds())),
					Stat:   aws.String(query.Statistic),
				},
				ReturnData: aws.Bool(true),
			},
		},
	}

	if token != "" {
		input.NextToken = aws.String(token)
	}

	out, err := c.cloudwatch.GetMetricData(ctx, input)
	if err != nil {
		return provider.MetricPage{}, classify("msk.QueryMetric", err)
	}

	page := provider.MetricPage{
		NextToken: aws.ToString(out.NextToken),
	}

	for _, result := range out.MetricDataResults {
		for i := range result.Values {
			if i >= len(result.Timestamps) {
				break
			}

			page.Samples = append(page.Samples, provider.RawSample{
				Timestamp: result.Timestamps[i],
				Value:     result.Values[i],
			})
		}
	}

	return page, nil
}

func dimensions(entity provider.EntityRef) []cwtypes.Dimension {
	dims := []cwtypes.Dimension{
		{Name: aws.String(clusterNameDimension), Value: aws.String(entity.Cluster.Name)},
	}

	switch entity.Kind {
	case provider.EntityBroker:
		dims = append(dims, cwtypes.Dimension{
			Name:  aws.String(brokerIDDimension),
			Value: aws.String(fmt.Sprintf("%d", entity.BrokerID)),
		})
	case provider.EntityTopic:
		dims = append(dims, cwtypes.Dimension{
			Name:  aws.String(topicDimension),
			Value: aws.String(entity.Topic),
		})
	}

	return dims
}

var (
	authErrorCodes = map[string]bool{
		"AccessDenied":                true,
		"AccessDeniedException":       true,
		"AuthFailure":                 true,
		"ExpiredToken":                true,
		"ExpiredTokenException":       true,
		"InvalidClientTokenId":        true,
		"SignatureDoesNotMatch":       true,
		"UnauthorizedOperation":       true,
		"UnrecognizedClientException": true,
	}

	throttleErrorCodes = map[string]bool{
		"LimitExceededException":                 true,
		"ProvisionedThroughputExceededException": true,
		"RequestLimitExceeded":                   true,
		"RequestThrottled":                       true,
		"RequestThrottledException":              true,
		"SlowDown":                               true,
		"Throttling":                             true,
		"ThrottlingException":                    true,
		"TooManyRequestsException":               true,
	}

	unavailableErrorCodes = map[string]bool{
		"InternalError":               true,
		"InternalFailure":             true,
		"InternalServiceError":        true,
		"RequestTimeout":              true,
		"RequestTimeoutException":     true,
		"ServiceUnavailable":          true,
		"ServiceUnavailableException": true,
	}
)

// classify maps an AWS error onto the worker's taxonomy so the fetcher can
// branch on it: auth aborts the run, throttled/unavailable back off, the
// rest fail the single pair.
func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()

		switch {
		case authErrorCodes[code]:
			return provider.NewError(provider.KindAuth, op, err)
		case throttleErrorCodes[code]:
			return provider.NewError(provider.KindThrottled, op, err)
		case unavailableErrorCodes[code]:
			return provider.NewError(provider.KindUnavailable, op, err)
		}
	}

	// Transport-level failures (connection reset, DNS) are worth a retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return provider.NewError(provider.KindOther, op, err)
	}

	var opErr *smithy.OperationError
	if errors.As(err, &opErr) && !errors.As(err, &apiErr) {
		return provider.NewError(provider.KindUnavailable, op, err)
	}

	return provider.NewError(provider.KindOther, op, err)
}

var _ provider.Provider = (*Client)(nil)
