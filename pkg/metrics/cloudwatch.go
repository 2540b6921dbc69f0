// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-bucketwatch.
//
// go-bucketwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
)

// CloudWatch implements Publisher and Source against AWS CloudWatch.
type CloudWatch struct {
	client    cloudwatchiface.CloudWatchAPI
	namespace string
	metric    string
}

// NewCloudWatch creates a CloudWatch metric stream in the given region.
// Empty namespace or metric fall back to the package defaults.
func NewCloudWatch(region, namespace, metric string) (*CloudWatch, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewCloudWatchWithClient(cloudwatch.New(sess), namespace, metric), nil
}

// NewCloudWatchWithClient creates a CloudWatch metric stream with an
// injected client. Used by tests.
func NewCloudWatchWithClient(client cloudwatchiface.CloudWatchAPI, namespace, metric string) *CloudWatch {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if metric == "" {
		metric = DefaultMetricName
	}
	return &CloudWatch{client: client, namespace: namespace, metric: metric}
}

// PublishDelta puts one data point into the metric stream.
func (c *CloudWatch) PublishDelta(ctx context.Context, delta int64) error {
	_, err := c.client.PutMetricDataWithContext(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(c.namespace),
		MetricData: []*cloudwatch.MetricDatum{
			{
				MetricName: aws.String(c.metric),
				Value:      aws.Float64(float64(delta)),
				Unit:       aws.String(cloudwatch.StandardUnitBytes),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish metric %s/%s: %w", c.namespace, c.metric, err)
	}
	return nil
}

// WindowSum reads the Sum statistic over the trailing window. The window is
// requested as a single statistics period.
func (c *CloudWatch) WindowSum(ctx context.Context, window time.Duration) (int64, error) {
	end := time.Now()
	start := end.Add(-window)

	period := int64(window / time.Second)
	if period < 60 {
		period = 60 // CloudWatch period floor
	}

	out, err := c.client.GetMetricStatisticsWithContext(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(c.namespace),
		MetricName: aws.String(c.metric),
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int64(period),
		Statistics: []*string{aws.String(cloudwatch.StatisticSum)},
	})
	if err != nil {
		return 0, fmt.Errorf("read metric %s/%s: %w", c.namespace, c.metric, err)
	}

	var sum float64
	for _, dp := range out.Datapoints {
		sum += aws.Float64Value(dp.Sum)
	}
	return int64(sum), nil
}
