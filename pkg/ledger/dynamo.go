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

package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

// Single-table layout. Size records and the last-known-size index share one
// table under distinct partition prefixes. Every read queries the table's
// primary key: records by bucket partition with a timestamp-prefixed sort
// key, size entries by object key.
const (
	recordPartitionPrefix = "BUCKET#"
	sizePartitionPrefix   = "OBJSIZE#"
	recordSortPrefix      = "TS#"
	sizeSortPrefix        = "KEY#"

	// recordTypeSize discriminates size records from size-index entries
	// within the shared table.
	recordTypeSize = "size_record"
)

// recordItem is the persisted shape of a common.SizeRecord.
type recordItem struct {
	PK          string `dynamodbav:"pk"`
	SK          string `dynamodbav:"sk"`
	RecordType  string `dynamodbav:"record_type"`
	Timestamp   string `dynamodbav:"timestamp"`
	TotalSize   int64  `dynamodbav:"total_size"`
	ObjectCount int64  `dynamodbav:"object_count"`
}

// sizeItem is the persisted shape of a size-index entry.
type sizeItem struct {
	PK        string `dynamodbav:"pk"`
	SK        string `dynamodbav:"sk"`
	SizeBytes int64  `dynamodbav:"size_bytes"`
}

// DynamoStore is a Store backed by a single DynamoDB table.
type DynamoStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

// NewDynamoStore creates a store against the given table in the given
// region. Settings beyond table and region come from the ambient AWS
// environment.
func NewDynamoStore(table, region string) (*DynamoStore, error) {
	if table == "" {
		return nil, common.ErrTableNotSet
	}
	if region == "" {
		return nil, common.ErrRegionNotSet
	}
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &DynamoStore{client: dynamodb.New(sess), table: table}, nil
}

// NewDynamoStoreWithClient creates a store with an injected client.
// Used by tests.
func NewDynamoStoreWithClient(client dynamodbiface.DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// Append durably stores one size record.
func (d *DynamoStore) Append(ctx context.Context, record *common.SizeRecord) error {
	item, err := dynamodbattribute.MarshalMap(&recordItem{
		PK:          recordPartitionPrefix + record.BucketKey,
		SK:          recordSortPrefix + record.Timestamp,
		RecordType:  recordTypeSize,
		Timestamp:   record.Timestamp,
		TotalSize:   record.TotalSize,
		ObjectCount: record.ObjectCount,
	})
	if err != nil {
		return err
	}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("ledger append: %w", err)
	}
	return nil
}

// QueryRecent returns records with Timestamp >= since, ascending by
// timestamp, draining all query pages.
func (d *DynamoStore) QueryRecent(ctx context.Context, bucketKey, since string) ([]*common.SizeRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("pk = :pk AND sk >= :since"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":pk":    {S: aws.String(recordPartitionPrefix + bucketKey)},
			":since": {S: aws.String(recordSortPrefix + since)},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var records []*common.SizeRecord
	err := d.queryPages(ctx, input, func(items []map[string]*dynamodb.AttributeValue) error {
		for _, raw := range items {
			var item recordItem
			if err := dynamodbattribute.UnmarshalMap(raw, &item); err != nil {
				return err
			}
			records = append(records, &common.SizeRecord{
				BucketKey:   strings.TrimPrefix(item.PK, recordPartitionPrefix),
				Timestamp:   item.Timestamp,
				TotalSize:   item.TotalSize,
				ObjectCount: item.ObjectCount,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger query recent: %w", err)
	}
	return records, nil
}

// QueryMax folds the maximum TotalSize over the bucket's partition. This is
// a partition query, not a table scan.
func (d *DynamoStore) QueryMax(ctx context.Context, bucketKey string) (int64, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":pk": {S: aws.String(recordPartitionPrefix + bucketKey)},
		},
		ProjectionExpression: aws.String("total_size"),
	}

	var max int64
	err := d.queryPages(ctx, input, func(items []map[string]*dynamodb.AttributeValue) error {
		for _, raw := range items {
			var item recordItem
			if err := dynamodbattribute.UnmarshalMap(raw, &item); err != nil {
				return err
			}
			if item.TotalSize > max {
				max = item.TotalSize
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ledger query max: %w", err)
	}
	return max, nil
}

// PutSize records the last known size for an object key.
func (d *DynamoStore) PutSize(ctx context.Context, bucketKey, objectKey string, size int64) error {
	item, err := dynamodbattribute.MarshalMap(&sizeItem{
		PK:        sizePartitionPrefix + bucketKey,
		SK:        sizeSortPrefix + objectKey,
		SizeBytes: size,
	})
	if err != nil {
		return err
	}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("size index put: %w", err)
	}
	return nil
}

// GetSize returns the last known size for an object key. Uses a strongly
// consistent read so a Created event processed moments earlier is visible.
func (d *DynamoStore) GetSize(ctx context.Context, bucketKey, objectKey string) (int64, error) {
	out, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		ConsistentRead: aws.Bool(true),
		Key: map[string]*dynamodb.AttributeValue{
			"pk": {S: aws.String(sizePartitionPrefix + bucketKey)},
			"sk": {S: aws.String(sizeSortPrefix + objectKey)},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("size index get: %w", err)
	}
	if out.Item == nil {
		return 0, fmt.Errorf("%w: %s", common.ErrSizeNotFound, objectKey)
	}

	var item sizeItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		return 0, err
	}
	return item.SizeBytes, nil
}

// DeleteSize clears the recorded size for an object key. Deleting a missing
// item succeeds, matching at-least-once redelivery of Removed events.
func (d *DynamoStore) DeleteSize(ctx context.Context, bucketKey, objectKey string) error {
	_, err := d.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key: map[string]*dynamodb.AttributeValue{
			"pk": {S: aws.String(sizePartitionPrefix + bucketKey)},
			"sk": {S: aws.String(sizeSortPrefix + objectKey)},
		},
	})
	if err != nil {
		return fmt.Errorf("size index delete: %w", err)
	}
	return nil
}

func (d *DynamoStore) queryPages(ctx context.Context, input *dynamodb.QueryInput, fn func([]map[string]*dynamodb.AttributeValue) error) error {
	for {
		out, err := d.client.QueryWithContext(ctx, input)
		if err != nil {
			return err
		}
		if err := fn(out.Items); err != nil {
			return err
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
