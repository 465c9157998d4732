package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/storage/storagetest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a minimal in-memory S3 that understands prefixes, delimiters and
// continuation tokens.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]fakeObject
	puts    []*s3.PutObjectInput
	listErr error
	lists   int
}

type fakeObject struct {
	data     []byte
	modified time.Time
}

func newFakeS3(buckets ...string) *fakeS3 {
	f := &fakeS3{buckets: map[string]bool{}, objects: map[string]fakeObject{}}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	return f
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, modified: time.Now().UTC()}
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}

	prefix := aws.ToString(in.Prefix)
	delimiter := aws.ToString(in.Delimiter)
	var keys []string
	for key := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if delimiter != "" && strings.Contains(strings.TrimPrefix(key, prefix), delimiter) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	start := 0
	if token := aws.ToString(in.ContinuationToken); token != "" {
		start = sort.SearchStrings(keys, token)
	}
	end := len(keys)
	if limit := int(aws.ToInt32(in.MaxKeys)); limit > 0 && start+limit < end {
		end = start + limit
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, key := range keys[start:end] {
		obj := f.objects[key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			LastModified: aws.Time(obj.modified),
			Size:         aws.Int64(int64(len(obj.data))),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.buckets[aws.ToString(in.Bucket)] {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[aws.ToString(in.Bucket)] = true
	return &s3.CreateBucketOutput{}, nil
}

func TestS3Backend(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) imagecatalog.BlobStore {
		backend, err := NewWithClient(newFakeS3("images"), Config{Bucket: "images", PageSize: 2})
		require.NoError(t, err)
		return backend
	})
}

// TestS3Backend_BasicConfiguration tests the configuration and creation of S3 backend
func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1", Bucket: ""})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("EmptyBucketWithClient", func(t *testing.T) {
		_, err := NewWithClient(newFakeS3(), Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("DefaultRegion", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		if err != nil {
			assert.NotContains(t, err.Error(), "bucket name is required")
		} else {
			assert.Equal(t, "us-east-1", backend.config.Region)
		}
	})

	t.Run("DefaultPageSize", func(t *testing.T) {
		backend, err := NewWithClient(newFakeS3(), Config{Bucket: "images"})
		require.NoError(t, err)
		assert.Equal(t, int32(1000), backend.config.PageSize)
	})
}

func TestS3Backend_KeyLayout(t *testing.T) {
	fake := newFakeS3("images")
	backend, err := NewWithClient(fake, Config{Bucket: "images", EnableSSE: true, SSEAlgorithm: "aws:kms", SSEKMSKeyID: "key-1"})
	require.NoError(t, err)

	ctx := context.Background()
	c, err := backend.EnsureContainer(ctx, "alice1")
	require.NoError(t, err)
	require.NoError(t, c.Upload(ctx, "town.png", bytes.NewReader([]byte{1, 2})))

	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "alice1/town.png", aws.ToString(put.Key))
	assert.Equal(t, "image/png", aws.ToString(put.ContentType))
	assert.Equal(t, types.ServerSideEncryptionAwsKms, put.ServerSideEncryption)
	assert.Equal(t, "key-1", aws.ToString(put.SSEKMSKeyId))
}

func TestS3Backend_ListPaginates(t *testing.T) {
	fake := newFakeS3("images")
	backend, err := NewWithClient(fake, Config{Bucket: "images", PageSize: 2})
	require.NoError(t, err)

	ctx := context.Background()
	c, err := backend.EnsureContainer(ctx, "alice1")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Upload(ctx, fmt.Sprintf("img%d.png", i), bytes.NewReader([]byte{byte(i)})))
	}
	// A nested key is not a direct child of the container.
	fake.objects["alice1/thumbs/img0.png"] = fakeObject{data: []byte{0}, modified: time.Now()}

	var names []string
	for ref, err := range c.List(ctx) {
		require.NoError(t, err)
		names = append(names, ref.Name)
	}
	assert.Equal(t, []string{"img0.png", "img1.png", "img2.png", "img3.png", "img4.png"}, names)
	assert.Equal(t, 3, fake.lists)
}

func TestS3Backend_ListError(t *testing.T) {
	fake := newFakeS3("images")
	fake.listErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	backend, err := NewWithClient(fake, Config{Bucket: "images"})
	require.NoError(t, err)

	c, err := backend.EnsureContainer(context.Background(), "alice1")
	require.NoError(t, err)

	var gotErr error
	for _, err := range c.List(context.Background()) {
		gotErr = err
	}
	require.Error(t, gotErr)
	assert.True(t, hasErrorCode(gotErr, "AccessDenied"))
}

func TestS3Backend_CreateBucketIfNotExist(t *testing.T) {
	fake := newFakeS3()
	backend, err := NewWithClient(fake, Config{Bucket: "images", Region: "eu-west-1", CreateBucketIfNotExist: true})
	require.NoError(t, err)

	_, err = backend.EnsureContainer(context.Background(), "alice1")
	require.NoError(t, err)
	assert.True(t, fake.buckets["images"])
}

func TestS3Backend_InvalidContainerName(t *testing.T) {
	backend, err := NewWithClient(newFakeS3("images"), Config{Bucket: "images"})
	require.NoError(t, err)

	for _, name := range []string{"", "a/b"} {
		_, err := backend.EnsureContainer(context.Background(), name)
		assert.Error(t, err, "container %q", name)
	}
}
