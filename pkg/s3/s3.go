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

// Package s3 provides an AWS S3 implementation of the storage interface.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

// DefaultPageSize is the page size requested from ListObjectsV2 when the
// caller does not specify one.
const DefaultPageSize = 1000

// S3 is a storage backend backed by an AWS S3 bucket.
type S3 struct {
	client s3iface.S3API
	bucket string
}

// New creates a new, unconfigured S3 storage backend.
func New() *S3 {
	return &S3{}
}

// NewWithClient creates an S3 backend with an injected client. Used by tests
// and by callers that manage their own AWS session.
func NewWithClient(client s3iface.S3API, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Configure sets up the backend. Recognized settings: bucket (required),
// region (required unless a client was injected), endpoint, access_key_id,
// secret_access_key.
func (s *S3) Configure(settings map[string]string) error {
	s.bucket = settings["bucket"]
	if s.bucket == "" {
		return common.ErrBucketNotSet
	}
	if s.client != nil {
		return nil
	}

	region := settings["region"]
	if region == "" {
		return common.ErrRegionNotSet
	}

	config := aws.NewConfig().WithRegion(region)
	if endpoint := settings["endpoint"]; endpoint != "" {
		config = config.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}
	if key, secret := settings["access_key_id"], settings["secret_access_key"]; key != "" && secret != "" {
		config = config.WithCredentials(credentials.NewStaticCredentials(key, secret, ""))
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return err
	}
	s.client = s3.New(sess)
	return nil
}

// Put stores an object in the bucket.
func (s *S3) Put(key string, data io.Reader) error {
	return s.PutWithContext(context.Background(), key, data)
}

// PutWithContext stores an object in the bucket with context support.
func (s *S3) PutWithContext(ctx context.Context, key string, data io.Reader) error {
	if err := s.ready(key); err != nil {
		return err
	}

	// S3 requires a seekable body; buffer the reader.
	dataBytes, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(dataBytes),
	})
	return err
}

// Get retrieves an object from the bucket.
func (s *S3) Get(key string) (io.ReadCloser, error) {
	return s.GetWithContext(context.Background(), key)
}

// GetWithContext retrieves an object from the bucket with context support.
func (s *S3) GetWithContext(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.ready(key); err != nil {
		return nil, err
	}

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
		}
		return nil, err
	}
	return out.Body, nil
}

// Delete removes an object from the bucket.
func (s *S3) Delete(key string) error {
	return s.DeleteWithContext(context.Background(), key)
}

// DeleteWithContext removes an object from the bucket with context support.
// S3 DeleteObject succeeds for keys that no longer exist, which matches the
// evictor's tolerance of stale listings.
func (s *S3) DeleteWithContext(ctx context.Context, key string) error {
	if err := s.ready(key); err != nil {
		return err
	}

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// Exists checks if an object exists in the bucket.
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.ready(key); err != nil {
		return false, err
	}

	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListWithOptions returns one page of objects via ListObjectsV2.
func (s *S3) ListWithOptions(ctx context.Context, opts *common.ListOptions) (*common.ListResult, error) {
	if s.client == nil {
		return nil, common.ErrNotConfigured
	}
	if opts == nil {
		opts = &common.ListOptions{}
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultPageSize
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int64(int64(maxResults)),
	}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.ContinueFrom != "" {
		input.ContinuationToken = aws.String(opts.ContinueFrom)
	}

	out, err := s.client.ListObjectsV2WithContext(ctx, input)
	if err != nil {
		return nil, err
	}

	result := &common.ListResult{
		Objects: make([]*common.ObjectInfo, 0, len(out.Contents)),
	}
	for _, obj := range out.Contents {
		info := &common.ObjectInfo{
			Key:  aws.StringValue(obj.Key),
			Size: aws.Int64Value(obj.Size),
		}
		if obj.LastModified != nil {
			info.LastModified = *obj.LastModified
		}
		result.Objects = append(result.Objects, info)
	}
	if aws.BoolValue(out.IsTruncated) {
		result.Truncated = true
		result.NextToken = aws.StringValue(out.NextContinuationToken)
	}

	return result, nil
}

// SignedURL returns a presigned GET URL for the object.
func (s *S3) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := s.ready(key); err != nil {
		return "", err
	}

	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)
	return req.Presign(expiry)
}

func (s *S3) ready(key string) error {
	if s.client == nil {
		return common.ErrNotConfigured
	}
	return common.ValidateKey(key)
}

func isNotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
