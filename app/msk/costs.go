package msk

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/kafkapull/go-msk-worker/app/provider"
)

const mskServiceName = "Amazon Managed Streaming for Apache Kafka"

// CostUsage reports MSK spend between start and end, grouped by usage type,
// with a trailing TOTAL row. Cost Explorer expects calendar dates, so the
// bounds are truncated to days.
func (c *Client) CostUsage(ctx context.Context, start, end time.Time) ([]provider.CostRecord, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start.Format("2006-01-02")),
			End:   aws.String(end.Format("2006-01-02")),
		},
		Granularity: cetypes.GranularityMonthly,
		Filter: &cetypes.Expression{
			And: []cetypes.Expression{
				{Dimensions: &cetypes.DimensionValues{Key: cetypes.DimensionRegion, Values: []string{c.region}}},
				{Dimensions: &cetypes.DimensionValues{Key: cetypes.DimensionService, Values: []string{mskServiceName}}},
			},
		},
		Metrics: []string{"UnblendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("USAGE_TYPE")},
		},
	}

	records := make([]provider.CostRecord, 0)

	var total float64
	currency := "USD"

	for {
		out, err := c.costs.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, classify("msk.CostUsage", err)
		}

		for _, result := range out.ResultsByTime {
			periodStart := ""
			if result.TimePeriod != nil {
				periodStart = aws.ToString(result.TimePeriod.Start)
			}

			for _, group := range result.Groups {
				metric, ok := group.Metrics["UnblendedCost"]
				if !ok {
					continue
				}

				amount, err := strconv.ParseFloat(aws.ToString(metric.Amount), 64)
				if err != nil {
					continue
				}

				if aws.ToString(metric.Unit) != "" {
					currency = aws.ToString(metric.Unit)
				}

				usageType := ""
				if len(group.Keys) > 0 {
					usageType = group.Keys[0]
				}

				records = append(records, provider.CostRecord{
					PeriodStart: periodStart,
					UsageType:   usageType,
					Cost:        amount,
					Currency:    currency,
				})

				total += amount
			}
		}

		if aws.ToString(out.NextPageToken) == "" {
			break
		}

		input.NextPageToken = out.NextPageToken
	}

	records = append(records, provider.CostRecord{
		PeriodStart: "TOTAL",
		UsageType:   "ALL",
		Cost:        total,
		Currency:    currency,
	})

	return records, nil
}

var _ provider.CostReporter = (*Client)(nil)
