package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/eunmann/s3-proxy/internal/logctx"
)

// S3Config selects the S3 endpoint. Empty fields fall back to the default
// AWS configuration chain.
type S3Config struct {
	Region string
	// Endpoint overrides the service endpoint, e.g. for MinIO.
	Endpoint     string
	UsePathStyle bool
}

// S3Store implements Store on top of the AWS SDK.
type S3Store struct {
	client *s3.Client
}

// NewS3Store loads the default AWS configuration and builds a store.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewS3StoreWithConfig(awsCfg, cfg), nil
}

// NewS3StoreWithConfig builds a store from an existing AWS config.
func NewS3StoreWithConfig(awsCfg aws.Config, cfg S3Config) *S3Store {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Store{client: client}
}

// List issues a single ListObjectsV2 call. Continuation tokens are not
// followed, so at most one page of keys is returned.
func (s *S3Store) List(ctx context.Context, bucket string) ([]string, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, translateError("list", bucket, "", err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}

	if aws.ToBool(out.IsTruncated) {
		logger := logctx.FromContext(ctx)
		logger.Warn().
			Str("bucket", bucket).
			Int("keys", len(keys)).
			Msg("listing truncated, remaining keys ignored")
	}
	return keys, nil
}

// Get reads the full object body into memory.
func (s *S3Store) Get(ctx context.Context, bucket, key string) (Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Object{}, translateError("get", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Object{}, fmt.Errorf("read body of s3://%s/%s: %w", bucket, key, err)
	}

	return Object{
		Key:          key,
		LastModified: aws.ToTime(out.LastModified),
		Data:         data,
	}, nil
}

// Put uploads body with a single PutObject call. The SDK seeks body to sign
// and retry the request, which is why it must be an io.ReadSeeker.
func (s *S3Store) Put(ctx context.Context, bucket, key string, body io.ReadSeeker) (Receipt, error) {
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return Receipt{}, translateError("put", bucket, key, err)
	}

	requestID, _ := awsmiddleware.GetRequestIDMetadata(out.ResultMetadata)
	return Receipt{
		Key:       key,
		RequestID: requestID,
		ETag:      aws.ToString(out.ETag),
	}, nil
}

// translateError turns an SDK failure into an *Error when S3 answered.
// Failures without a service response (DNS, cancelled context) stay
// plain errors.
func translateError(op, bucket, key string, err error) error {
	storeErr := &Error{Op: op, Bucket: bucket, Key: key, Err: err}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		storeErr.StatusCode = respErr.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		storeErr.Code = apiErr.ErrorCode()
		storeErr.Message = apiErr.ErrorMessage()
	}

	switch storeErr.Code {
	case "NoSuchBucket":
		storeErr.Err = fmt.Errorf("%w: %w", ErrNoSuchBucket, err)
	case "NoSuchKey":
		storeErr.Err = fmt.Errorf("%w: %w", ErrNoSuchKey, err)
	}

	if storeErr.StatusCode == 0 && storeErr.Code == "" {
		if key == "" {
			return fmt.Errorf("%s s3://%s: %w", op, bucket, err)
		}
		return fmt.Errorf("%s s3://%s/%s: %w", op, bucket, key, err)
	}
	return storeErr
}
