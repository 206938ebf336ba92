package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
)

// NewImageStore picks S3 when a bucket is configured and the media root otherwise.
func NewImageStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (ImageStore, error) {
	if cfg.S3BucketName == "" {
		log.Info("storing images on local disk", zap.String("root", cfg.MediaRoot))
		return NewLocalStore(cfg.MediaRoot, cfg.MediaURL), nil
	}

	s3Config, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("storing images in S3", zap.String("bucket", s3Config.BucketName))
	return NewS3Store(s3Config, log), nil
}
