package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config selects and configures an archive backend.
type Config struct {
	Kind     string `yaml:"kind"`               // "none", "local" or "s3"
	Dir      string `yaml:"dir,omitempty"`      // local root
	Bucket   string `yaml:"bucket,omitempty"`   // s3 bucket
	Prefix   string `yaml:"prefix,omitempty"`   // s3 key prefix
	Region   string `yaml:"region,omitempty"`   // s3 region
	Endpoint string `yaml:"endpoint,omitempty"` // s3-compatible endpoint, e.g. MinIO
}

// Open builds the archive described by cfg. S3 credentials come from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func Open(cfg Config) (Archive, error) {
	switch cfg.Kind {
	case "", "none":
		return Nop{}, nil
	case "local":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("archive: local archive needs a dir")
		}
		return NewLocal(cfg.Dir)
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("archive: s3 archive needs a bucket")
		}
		return NewS3(newS3Client(cfg), cfg.Bucket, cfg.Prefix), nil
	}
	return nil, fmt.Errorf("archive: unknown kind %q", cfg.Kind)
}

func newS3Client(cfg Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region: region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
				Source:          "environment",
			}, nil
		}),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}
