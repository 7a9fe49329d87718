package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	config "github.com/syndicateapp/syndicate/configs"
)

// Storage stores uploaded media and serves it from a public URL that the
// platform APIs can pull from.
type Storage interface {
	Upload(ctx context.Context, key string, file []byte, contentType string) error
	PublicURL(key string) string
}

// R2Storage stores media in a Cloudflare R2 bucket through the S3 API.
type R2Storage struct {
	cfg config.Config
}

func NewR2Storage(cfg config.Config) *R2Storage {
	return &R2Storage{cfg: cfg}
}

func (r *R2Storage) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r.cfg.R2.AccessKey, r.cfg.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.cfg.R2.AccountID))
	}), nil
}

func (r *R2Storage) Upload(ctx context.Context, key string, file []byte, contentType string) error {
	client, err := r.client(ctx)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.cfg.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *R2Storage) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", r.cfg.R2.PublicURL, key)
}
