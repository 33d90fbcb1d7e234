package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Uploader copies exported files to remote storage.
type Uploader interface {
	Upload(ctx context.Context, paths []string) error
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Uploader struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Uploader uses the default AWS credential chain.
func NewS3Uploader(ctx context.Context, bucket, prefix string) (Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return newS3Uploader(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3Uploader(client objectPutter, bucket, prefix string) *s3Uploader {
	return &s3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Key is the object key of an exported file: the prefix joined with the file name.
func (u *s3Uploader) Key(file string) string {
	return path.Join(u.prefix, filepath.Base(file))
}

func (u *s3Uploader) Upload(ctx context.Context, paths []string) error {
	logger := zerolog.Ctx(ctx)
	for _, p := range paths {
		if err := u.put(ctx, p); err != nil {
			return err
		}
		logger.Info().Str("bucket", u.bucket).Str("key", u.Key(p)).Msg("export uploaded")
	}
	return nil
}

func (u *s3Uploader) put(ctx context.Context, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(u.Key(file)),
		Body:        f,
		ContentType: aws.String(contentType(file)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s: %w", file, u.bucket, err)
	}
	return nil
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
