package warmer

import (
	"context"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tiercache/tiercache/pkg/errors"
)

// S3Config configures an S3 warm source.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	// AccessKey/SecretKey select static credentials; leave empty to use
	// the default AWS credential chain.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	// KeyPrefix is prepended to every cache key when resolving objects.
	KeyPrefix string `yaml:"key_prefix"`
}

// S3Loader loads warm values from an S3 bucket, one object per key.
type S3Loader struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Loader creates an S3-backed warm source.
func NewS3Loader(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Loader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "bucket name cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, "failed to load AWS config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Loader{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.KeyPrefix,
		logger: logger,
	}, nil
}

// Load fetches the object for key and returns its body. It satisfies
// Loader[[]byte].
func (l *S3Loader) Load(ctx context.Context, key string) ([]byte, error) {
	objectKey := l.prefix + key

	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to get object "+objectKey, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to read object body for "+objectKey, err)
	}

	l.logger.Debug("warm object loaded", "bucket", l.bucket, "key", objectKey, "bytes", len(data))
	return data, nil
}
