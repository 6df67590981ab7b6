// internal/artifacts/s3_test.go
package artifacts

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/storefront-harness/internal/config"
)

const testBucket = "harness-artifacts"

func newFakeS3(t *testing.T) *httptest.Server {
	t.Helper()
	faker := gofakes3.New(s3mem.New())
	ts := httptest.NewServer(faker.Server())
	t.Cleanup(ts.Close)
	return ts
}

func newTestS3Sink(t *testing.T, endpoint string) *S3Sink {
	t.Helper()
	sink, err := NewS3Sink(context.Background(), config.S3Config{
		Enabled:         true,
		Bucket:          testBucket,
		Region:          "us-east-1",
		Endpoint:        endpoint,
		Prefix:          "/runs/nightly/",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	sink.now = func() time.Time { return fixedNow }

	_, err = sink.client.CreateBucket(context.Background(), &s3.CreateBucketInput{Bucket: aws.String(testBucket)})
	require.NoError(t, err)
	return sink
}

func TestS3Sink_Store(t *testing.T) {
	ts := newFakeS3(t)
	sink := newTestS3Sink(t, ts.URL)

	loc, err := sink.Store(context.Background(), "TestLogin_FAILED", []byte("\x89PNG"))
	require.NoError(t, err)

	wantKey := "runs/nightly/TestLogin_FAILED_2026-03-14_09-26-53.png"
	assert.Equal(t, "s3://"+testBucket+"/"+wantKey, loc)

	obj, err := sink.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(testBucket),
		Key:    aws.String(wantKey),
	})
	require.NoError(t, err)
	defer obj.Body.Close()
	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), body)
	assert.Equal(t, "image/png", aws.ToString(obj.ContentType))
}

func TestS3Sink_StoreMissingBucket(t *testing.T) {
	ts := newFakeS3(t)
	sink := newTestS3Sink(t, ts.URL)
	sink.bucket = "does-not-exist"

	_, err := sink.Store(context.Background(), "x", []byte("png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://does-not-exist/")
}
