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

package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"golang.org/x/time/rate"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

const (
	// defaultWaitSeconds is the SQS long-poll interval.
	defaultWaitSeconds = 20

	// defaultReceivesPerSecond caps the polling rate so an empty queue
	// does not spin API calls.
	defaultReceivesPerSecond = 5
)

// SQSConsumer is a Consumer backed by an AWS SQS queue.
type SQSConsumer struct {
	client   sqsiface.SQSAPI
	queueURL string
	limiter  *rate.Limiter
}

// NewSQSConsumer creates a consumer for the given queue URL in the given
// region.
func NewSQSConsumer(queueURL, region string) (*SQSConsumer, error) {
	if queueURL == "" {
		return nil, common.ErrQueueNotSet
	}
	if region == "" {
		return nil, common.ErrRegionNotSet
	}
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewSQSConsumerWithClient(sqs.New(sess), queueURL), nil
}

// NewSQSConsumerWithClient creates a consumer with an injected client.
// Used by tests.
func NewSQSConsumerWithClient(client sqsiface.SQSAPI, queueURL string) *SQSConsumer {
	return &SQSConsumer{
		client:   client,
		queueURL: queueURL,
		limiter:  rate.NewLimiter(rate.Limit(defaultReceivesPerSecond), 1),
	}
}

// Receive long-polls the queue for up to max messages. Receives are
// rate-limited across calls.
func (c *SQSConsumer) Receive(ctx context.Context, max int) ([]Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if max <= 0 || max > 10 {
		max = 10 // SQS receive ceiling
	}

	out, err := c.client.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: aws.Int64(int64(max)),
		WaitTimeSeconds:     aws.Int64(defaultWaitSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, Message{
			ID:            aws.StringValue(m.MessageId),
			Body:          aws.StringValue(m.Body),
			ReceiptHandle: aws.StringValue(m.ReceiptHandle),
		})
	}
	return messages, nil
}

// Ack deletes a message from the queue.
func (c *SQSConsumer) Ack(ctx context.Context, msg Message) error {
	_, err := c.client.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("sqs ack: %w", err)
	}
	return nil
}
