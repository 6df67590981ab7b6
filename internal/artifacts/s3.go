// internal/artifacts/s3.go
package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/config"
)

// S3Sink uploads screenshots to an S3-compatible bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// NewS3Sink builds a client from cfg. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies. A custom
// endpoint switches to path-style addressing.
func NewS3Sink(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (*S3Sink, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3SinkFromClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3SinkFromClient wraps an existing client.
func NewS3SinkFromClient(client *s3.Client, bucket, prefix string, logger *zap.Logger) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		logger: logger.Named("s3_sink"),
	}
}

var _ browser.ArtifactSink = (*S3Sink)(nil)

func (s *S3Sink) key(name string) string {
	return path.Join(s.prefix, objectName(name, s.now()))
}

// Store uploads png and returns its s3:// URI.
func (s *S3Sink) Store(ctx context.Context, name string, png []byte) (string, error) {
	key := s.key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
	})
	recordStore("s3", err)
	if err != nil {
		return "", fmt.Errorf("failed to upload screenshot to s3://%s/%s: %w", s.bucket, key, err)
	}
	location := "s3://" + s.bucket + "/" + key
	s.logger.Info("Screenshot uploaded.", zap.String("location", location))
	return location, nil
}
