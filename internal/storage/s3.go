package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
)

// S3Store uploads images to an S3 bucket
type S3Store struct {
	s3  *config.S3Config
	log *zap.Logger
}

func NewS3Store(s3Config *config.S3Config, log *zap.Logger) *S3Store {
	return &S3Store{s3: s3Config, log: log.Named("s3")}
}

// Save uploads the image and returns its public URL
func (s *S3Store) Save(ctx context.Context, img *Image) (string, error) {
	key := objectKey(img.Name)
	_, err := s.s3.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	url := s.s3.PublicURL(key)
	s.log.Debug("uploaded image", zap.String("key", key), zap.Int("bytes", len(img.Data)))
	return url, nil
}
