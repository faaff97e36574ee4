package backup

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykanchan/pywebview-tw/internal/logging"
)

type fakeUploader struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeUploader) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func TestMirror_Uploads(t *testing.T) {
	up := &fakeUploader{}
	b := NewS3Backup(up, "wikis", "snapshots", logging.Nop())

	require.NoError(t, b.Mirror(context.Background(), "doc-1", "20240101000000000", []byte("<html/>")))

	require.Len(t, up.inputs, 1)
	in := up.inputs[0]
	assert.Equal(t, "wikis", aws.ToString(in.Bucket))
	assert.Equal(t, "snapshots/doc-1/20240101000000000.html", aws.ToString(in.Key))
	assert.Equal(t, int64(7), aws.ToInt64(in.ContentLength))
	assert.Equal(t, "<html/>", up.bodies[0])
}

func TestMirror_Error(t *testing.T) {
	boom := errors.New("access denied")
	b := NewS3Backup(&fakeUploader{err: boom}, "wikis", "", logging.Nop())

	err := b.Mirror(context.Background(), "doc-1", "20240101000000000", []byte("x"))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "doc-1/20240101000000000.html")
}

func TestKey_EmptyPrefix(t *testing.T) {
	b := NewS3Backup(&fakeUploader{}, "wikis", "", logging.Nop())
	assert.Equal(t, "doc/1.html", b.Key("doc", "1"))
}

func TestNewS3Client_AppliesOptions(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	c, err := NewS3Client(context.Background(), Options{
		Region:       "eu-central-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
	})
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Client_LoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	boom := errors.New("no config")
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, boom
	}

	_, err := NewS3Client(context.Background(), Options{Region: "us-east-1"})
	require.ErrorIs(t, err, boom)
}
