package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path"
	"strings"
	"sync"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PageSize        int32  // Keys per ListObjectsV2 page (default: 1000)

	// Server-side encryption options
	EnableSSE    bool   // Enable server-side encryption
	SSEAlgorithm string // SSE algorithm (AES256 or aws:kms)
	SSEKMSKeyID  string // Optional KMS key ID for aws:kms algorithm

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool // Create the bucket on first EnsureContainer
}

// API is the subset of the S3 client the backend uses.
type API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Backend is an S3-compatible implementation of the imagecatalog.BlobStore
// interface. All containers share one bucket; a container is the key prefix
// "{name}/".
type Backend struct {
	client API
	bucket string
	config Config

	bucketMu sync.Mutex
	bucketOK bool
}

// New creates a new S3-compatible storage backend
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		// Use default credential chain
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	return NewWithClient(s3.NewFromConfig(awsCfg, s3Options...), config)
}

// NewWithClient creates a backend around an existing client
func NewWithClient(client API, config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.PageSize <= 0 {
		config.PageSize = 1000
	}
	return &Backend{client: client, bucket: config.Bucket, config: config}, nil
}

// EnsureContainer returns the prefix-scoped container. The bucket itself is
// checked (and created when configured to) once per backend.
func (b *Backend) EnsureContainer(ctx context.Context, name string) (imagecatalog.Container, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid container name %q", name)
	}
	if err := b.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return &container{backend: b, name: name, prefix: name + "/"}, nil
}

func (b *Backend) ensureBucket(ctx context.Context) error {
	b.bucketMu.Lock()
	defer b.bucketMu.Unlock()

	if b.bucketOK {
		return nil
	}
	if b.config.CreateBucketIfNotExist {
		if err := b.createBucketIfNotExists(ctx); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	b.bucketOK = true
	return nil
}

// createBucketIfNotExists creates the bucket if it doesn't exist
func (b *Backend) createBucketIfNotExists(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err == nil {
		return nil
	}

	// MinIO reports a missing bucket in several ways
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) && !hasErrorCode(err, "NotFound", "NoSuchBucket", "BadRequest") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	createInput := &s3.CreateBucketInput{
		Bucket: aws.String(b.bucket),
	}
	// us-east-1 rejects an explicit location constraint
	if b.config.Region != "" && b.config.Region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.config.Region),
		}
	}

	_, err = b.client.CreateBucket(ctx, createInput)
	if err != nil {
		if hasErrorCode(err, "BucketAlreadyExists", "BucketAlreadyOwnedByYou") {
			return nil
		}
		return err
	}
	return nil
}

func hasErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}

func (b *Backend) applySSE(input *s3.PutObjectInput) {
	if !b.config.EnableSSE {
		return
	}
	switch b.config.SSEAlgorithm {
	case "AES256":
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	case "aws:kms":
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		if b.config.SSEKMSKeyID != "" {
			input.SSEKMSKeyId = aws.String(b.config.SSEKMSKeyID)
		}
	}
}

type container struct {
	backend *Backend
	name    string
	prefix  string
}

func (c *container) Name() string {
	return c.name
}

func (c *container) key(fileName string) string {
	return path.Join(c.name, fileName)
}

// Upload uploads content to S3, replacing any existing object
func (c *container) Upload(ctx context.Context, fileName string, reader io.Reader) error {
	if fileName == "" || strings.Contains(fileName, "/") {
		return fmt.Errorf("invalid file name %q", fileName)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.backend.bucket),
		Key:         aws.String(c.key(fileName)),
		Body:        reader,
		ContentType: aws.String("image/png"),
	}
	c.backend.applySSE(input)

	uploader := manager.NewUploader(c.backend.client)
	if _, err := uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// Download downloads content directly from S3
func (c *container) Download(ctx context.Context, fileName string) (io.ReadCloser, error) {
	result, err := c.backend.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.backend.bucket),
		Key:    aws.String(c.key(fileName)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) || hasErrorCode(err, "NoSuchKey", "NotFound") {
			return nil, imagecatalog.ErrNotFound
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	return result.Body, nil
}

// List pages through the container prefix. Only direct children are
// returned. S3 keeps no creation time, so CreatedOn is LastModified.
func (c *container) List(ctx context.Context) iter.Seq2[imagecatalog.BlobRef, error] {
	return func(yield func(imagecatalog.BlobRef, error) bool) {
		paginator := s3.NewListObjectsV2Paginator(c.backend.client, &s3.ListObjectsV2Input{
			Bucket:    aws.String(c.backend.bucket),
			Prefix:    aws.String(c.prefix),
			Delimiter: aws.String("/"),
			MaxKeys:   aws.Int32(c.backend.config.PageSize),
		})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(imagecatalog.BlobRef{}, fmt.Errorf("failed to list S3 objects: %w", err))
				return
			}
			for _, obj := range page.Contents {
				name := strings.TrimPrefix(aws.ToString(obj.Key), c.prefix)
				if name == "" {
					continue
				}
				ref := imagecatalog.BlobRef{
					Name:      name,
					CreatedOn: aws.ToTime(obj.LastModified),
					Size:      aws.ToInt64(obj.Size),
				}
				if !yield(ref, nil) {
					return
				}
			}
		}
	}
}
