package cloud

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
)

// Uploader stores files in S3.
type Uploader struct {
	api S3API
}

// NewUploader creates an uploader backed by api.
func NewUploader(api S3API) *Uploader {
	return &Uploader{api: api}
}

// Upload copies the file at path to s3://bucket/key.
func (u *Uploader) Upload(ctx context.Context, bucket, key, path string) error {
	if bucket == "" {
		return fmt.Errorf("%w: backup bucket is not set", errs.ErrConfiguration)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	logger.WithFields(logrus.Fields{
		"bucket": bucket,
		"key":    key,
		"bytes":  info.Size(),
	}).Info("Uploading")

	_, err = u.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s/%s: %w", path, bucket, key, err)
	}
	return nil
}
