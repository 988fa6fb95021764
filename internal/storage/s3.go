package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store implements ObjectStore for AWS S3. Write-once semantics come
// from conditional puts: every PutObject carries If-None-Match: * so an
// existing object rejects the write with a precondition failure.
type S3Store struct {
	client     *s3.Client
	bucket     string
	maxRetries int
}

// S3Config holds configuration for S3 storage.
type S3Config struct {
	// Region is the AWS region for the S3 bucket.
	Region string
	// Endpoint is an optional custom endpoint (for MinIO, LocalStack, etc.).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
}

// DefaultS3Config returns the default S3 configuration.
func DefaultS3Config() S3Config {
	return S3Config{
		Region: "us-east-1",
	}
}

// NewS3Store creates a new S3 store.
func NewS3Store(ctx context.Context, bucket string, cfg S3Config) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &S3Store{
		client:     client,
		bucket:     bucket,
		maxRetries: 3,
	}, nil
}

// NewS3StoreWithClient creates a new S3 store with a pre-configured client.
func NewS3StoreWithClient(client *s3.Client, bucket string) *S3Store {
	return &S3Store{
		client:     client,
		bucket:     bucket,
		maxRetries: 3,
	}
}

// Put writes data at location with If-None-Match so an existing object
// is never overwritten.
func (s *S3Store) Put(ctx context.Context, location string, data []byte) error {
	key, err := s.key(location)
	if err != nil {
		return err
	}

	err = s.retryWithBackoff(ctx, func() error {
		_, putErr := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			IfNoneMatch: aws.String("*"),
		})
		if putErr != nil {
			if isS3PreconditionFailed(putErr) {
				return fmt.Errorf("%w: %s", ErrObjectExists, location)
			}
			return putErr
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrObjectExists) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return nil
}

// Get reads the object at location.
func (s *S3Store) Get(ctx context.Context, location string) ([]byte, error) {
	key, err := s.key(location)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.retryWithBackoff(ctx, func() error {
		resp, getErr := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if getErr != nil {
			var noSuchKey *types.NoSuchKey
			if errors.As(getErr, &noSuchKey) {
				return fmt.Errorf("%w: %s", ErrObjectNotFound, location)
			}
			return getErr
		}
		defer resp.Body.Close()

		data, getErr = io.ReadAll(resp.Body)
		return getErr
	})

	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return data, nil
}

// Exists checks if an object exists at location.
func (s *S3Store) Exists(ctx context.Context, location string) (bool, error) {
	key, err := s.key(location)
	if err != nil {
		return false, err
	}

	var exists bool
	err = s.retryWithBackoff(ctx, func() error {
		_, headErr := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if headErr != nil {
			var notFound *types.NotFound
			if errors.As(headErr, &notFound) {
				exists = false
				return nil
			}
			return headErr
		}
		exists = true
		return nil
	})

	return exists, err
}

// Stat returns size and modification time from a HeadObject call.
func (s *S3Store) Stat(ctx context.Context, location string) (ObjectInfo, error) {
	key, err := s.key(location)
	if err != nil {
		return ObjectInfo{}, err
	}

	var info ObjectInfo
	err = s.retryWithBackoff(ctx, func() error {
		resp, headErr := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if headErr != nil {
			var notFound *types.NotFound
			if errors.As(headErr, &notFound) {
				return fmt.Errorf("%w: %s", ErrObjectNotFound, location)
			}
			return headErr
		}
		info = ObjectInfo{
			Location:     location,
			SizeBytes:    aws.ToInt64(resp.ContentLength),
			LastModified: aws.ToTime(resp.LastModified),
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return ObjectInfo{}, err
		}
		return ObjectInfo{}, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return info, nil
}

// List returns all object locations under the given prefix, in the same
// form the prefix was given (full s3:// URI in, full URIs out).
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	key, err := s.key(prefix)
	if err != nil {
		return nil, err
	}
	uriForm := strings.HasPrefix(prefix, "s3://")

	var objects []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(key),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if uriForm {
				k = fmt.Sprintf("s3://%s/%s", s.bucket, k)
			}
			objects = append(objects, k)
		}
	}

	return objects, nil
}

// Delete removes the object at location. Deleting an absent object is
// not an error; S3 DeleteObject is already idempotent.
func (s *S3Store) Delete(ctx context.Context, location string) error {
	key, err := s.key(location)
	if err != nil {
		return err
	}

	err = s.retryWithBackoff(ctx, func() error {
		_, delErr := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return delErr
	})

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}

// key maps a location to a bucket key. Full s3:// URIs must address this
// store's bucket; anything else is used as a key verbatim.
func (s *S3Store) key(location string) (string, error) {
	if !strings.HasPrefix(location, "s3://") {
		return location, nil
	}
	rest := strings.TrimPrefix(location, "s3://")
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return "", fmt.Errorf("%w: %s", ErrWrongBucket, location)
	}
	bucket, key := rest[:slash], rest[slash+1:]
	if bucket != s.bucket {
		return "", fmt.Errorf("%w: %s (store bucket %s)", ErrWrongBucket, location, s.bucket)
	}
	return key, nil
}

// isS3PreconditionFailed checks if the error is a conditional-write
// rejection. AWS SDK v2 has no dedicated type for these; concurrent
// conditional writes can also surface as a 409 conflict.
func isS3PreconditionFailed(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "PreconditionFailed") ||
		strings.Contains(errStr, "412") ||
		strings.Contains(errStr, "ConditionalRequestConflict")
}

// retryWithBackoff executes the operation with exponential backoff retry.
func (s *S3Store) retryWithBackoff(ctx context.Context, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		// Don't retry write-once violations or not found errors
		if errors.Is(lastErr, ErrObjectExists) || errors.Is(lastErr, ErrObjectNotFound) {
			return lastErr
		}

		if attempt < s.maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
