// Package backup mirrors saved document snapshots to an S3 compatible
// bucket.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ykanchan/pywebview-tw/internal/logging"
)

// Uploader is the part of the S3 client used for mirroring.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures the S3 connection.
type Options struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Prefix       string
}

// Seams for tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// NewS3Client builds an S3 client from opts. Static credentials are used
// when an access key is given, otherwise the default AWS chain applies.
func NewS3Client(ctx context.Context, opts Options) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Backup uploads snapshots under <prefix>/<document id>/<stamp>.html.
type S3Backup struct {
	client Uploader
	bucket string
	prefix string
	logger logging.Logger
}

func NewS3Backup(client Uploader, bucket, prefix string, l logging.Logger) *S3Backup {
	return &S3Backup{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: l.With("module", "backup"),
	}
}

// Key returns the object key of a snapshot.
func (b *S3Backup) Key(docID, stamp string) string {
	return path.Join(b.prefix, docID, stamp+".html")
}

// Mirror uploads one snapshot.
func (b *S3Backup) Mirror(ctx context.Context, docID, stamp string, data []byte) error {
	key := b.Key(docID, stamp)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	b.logger.Info(ctx, "snapshot mirrored", "bucket", b.bucket, "key", key, "bytes", len(data))
	return nil
}
