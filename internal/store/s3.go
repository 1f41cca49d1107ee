package store

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/product-craft/internal/editor"
)

// S3API is the subset of the S3 client the archive uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive stores saved images in a bucket and their records in a ProjectStore.
type S3Archive struct {
	client    S3API
	presigner *s3.PresignClient
	bucket    string
	projects  ProjectStore
	urlExpiry time.Duration
}

var _ editor.Archive = (*S3Archive)(nil)

// NewS3Archive creates an archive writing to bucket. presigner may be nil,
// in which case receipts carry s3:// locations instead of GET URLs.
func NewS3Archive(client S3API, presigner *s3.PresignClient, bucket string, projects ProjectStore) *S3Archive {
	return &S3Archive{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		projects:  projects,
		urlExpiry: 1 * time.Hour,
	}
}

// Save uploads the version and records it against its project.
func (a *S3Archive) Save(ctx context.Context, req editor.SaveRequest) (editor.SaveReceipt, error) {
	req.SavedAt = savedAtOrNow(req.SavedAt)
	key := objectKey(req)
	contentType := req.Version.MIMEType()

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(req.Version.Bytes()),
		ContentType: &contentType,
	})
	if err != nil {
		return editor.SaveReceipt{}, fmt.Errorf("upload %s: %w", key, err)
	}
	log.Debug().Str("bucket", a.bucket).Str("key", key).Int("bytes", req.Version.Size()).Msg("Saved image uploaded to S3")

	if err := recordSave(ctx, a.projects, req, key); err != nil {
		return editor.SaveReceipt{}, fmt.Errorf("record save: %w", err)
	}

	location := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	if a.presigner != nil {
		url, err := GeneratePresignedURL(ctx, a.presigner, a.bucket, key, a.urlExpiry)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Presign failed, returning object location")
		} else {
			location = url
		}
	}

	return editor.SaveReceipt{
		ProjectID: req.ProjectID,
		Location:  location,
		SavedAt:   req.SavedAt,
	}, nil
}

// GeneratePresignedURL creates a pre-signed GET URL for an S3 object.
func GeneratePresignedURL(ctx context.Context, presignClient *s3.PresignClient, bucket, key string, expiry time.Duration) (string, error) {
	result, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket, Key: &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}
