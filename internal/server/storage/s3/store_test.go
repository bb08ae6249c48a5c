package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucket = "uploads"

func setupFakeS3(t *testing.T) *Store {
	t.Helper()
	backend := s3mem.New()
	fs := gofakes3.New(backend)
	server := httptest.NewServer(fs.Server())
	t.Cleanup(server.Close)
	require.NoError(t, backend.CreateBucket(bucket))

	store, err := New(context.Background(), Config{
		Endpoint:     server.URL,
		Region:       "us-east-1",
		Bucket:       bucket,
		AccessKey:    "test",
		SecretKey:    "test",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return store
}

func TestStore_PutHeadGet(t *testing.T) {
	store := setupFakeS3(t)
	ctx := context.Background()

	body := []byte("hello document")
	info, err := store.Put(ctx, "ws/doc.docx", bytes.NewReader(body), int64(len(body)), "application/msword")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ETag)
	assert.False(t, strings.Contains(info.ETag, `"`))

	head, err := store.Head(ctx, "ws/doc.docx")
	require.NoError(t, err)
	assert.Equal(t, info.ETag, head.ETag)
	assert.Equal(t, int64(len(body)), head.Size)
	assert.Equal(t, "application/msword", head.ContentType)

	obj, err := store.Get(ctx, "ws/doc.docx")
	require.NoError(t, err)
	defer obj.Body.Close()
	got, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, "application/msword", obj.Info.ContentType)
}

func TestStore_Copy(t *testing.T) {
	store := setupFakeS3(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "ws/doc.docx", bytes.NewReader([]byte("v1")), 2, "")
	require.NoError(t, err)

	require.NoError(t, store.Copy(ctx, "ws/doc.docx", "ws/filestore_versions/a/20240501-doc.docx"))

	obj, err := store.Get(ctx, "ws/filestore_versions/a/20240501-doc.docx")
	require.NoError(t, err)
	defer obj.Body.Close()
	got, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "v1", string(got))
}

func TestStore_MissingObjectsAreNotFound(t *testing.T) {
	store := setupFakeS3(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = store.Head(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	err = store.Copy(ctx, "nope", "dst")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestStore_PresignGet(t *testing.T) {
	store := setupFakeS3(t)

	u, err := store.PresignGet(context.Background(), "ws/doc.docx", 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "/"+bucket+"/ws/doc.docx")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=300")
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{Region: "us-east-1"})
	require.Error(t, err)
}

func TestNew_AppliesOptionsAndPropagatesLoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		return aws.Config{}, nil
	}

	var captured s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&captured)
		}
		return s3.New(captured)
	}

	_, err := New(context.Background(), Config{
		Endpoint:     "http://127.0.0.1:9000",
		Region:       "eu-west-1",
		Bucket:       bucket,
		UsePathStyle: true,
	})
	require.NoError(t, err)
	require.NotNil(t, captured.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *captured.BaseEndpoint)
	assert.True(t, captured.UsePathStyle)
	assert.Equal(t, aws.RequestChecksumCalculationWhenRequired, captured.RequestChecksumCalculation)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = New(context.Background(), Config{Bucket: bucket})
	require.EqualError(t, err, "load-fail")
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, isNotFound(nil))
	assert.False(t, isNotFound(errors.New("x")))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
}
