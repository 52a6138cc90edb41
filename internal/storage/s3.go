package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectPutter is the subset of the S3 client used by the store.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store keeps every logical bucket as a key prefix inside one S3 bucket.
type s3Store struct {
	client        ObjectPutter
	bucket        string
	region        string
	publicBaseURL string
	logger        zerolog.Logger
}

// NewS3Store creates an S3-backed store using the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket, region, publicBaseURL string, logger zerolog.Logger) (Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, region, publicBaseURL, logger), nil
}

// NewS3StoreWithClient creates an S3-backed store over an existing client.
func NewS3StoreWithClient(client ObjectPutter, bucket, region, publicBaseURL string, logger zerolog.Logger) Store {
	return &s3Store{
		client:        client,
		bucket:        bucket,
		region:        region,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.With().Str("component", "s3-storage").Logger(),
	}
}

func (s *s3Store) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (*Object, error) {
	p, err := checkTarget(bucket, objectPath)
	if err != nil {
		return nil, err
	}
	key := bucket + "/" + p

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("failed to put object to S3")
		return nil, fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info().
		Str("key", key).
		Int("bytes", len(data)).
		Msg("object uploaded")

	return &Object{Bucket: bucket, Path: p, URL: s.PublicURL(bucket, p)}, nil
}

func (s *s3Store) PublicURL(bucket, objectPath string) string {
	key := bucket + "/" + strings.TrimLeft(objectPath, "/")
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
