// Package artifacts uploads run artifacts (the JSON report and captured
// screenshots) to S3-compatible object storage.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const defaultContentType = "application/octet-stream"

// Config addresses the destination bucket.
type Config struct {
	Bucket string
	Prefix string
	// Region is the AWS region; empty falls back to the SDK default chain.
	Region string
	// Endpoint overrides the S3 endpoint for S3-compatible services.
	Endpoint string
	// PathStyle enables path-style addressing (MinIO, gofakes3).
	PathStyle bool
}

// Uploader writes files under <prefix>/<run id>/ in one bucket.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
	log    *zap.Logger
}

// New creates an Uploader using the default AWS credential chain.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Uploader, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return NewFromS3Client(client, cfg.Bucket, cfg.Prefix, log), nil
}

// NewFromS3Client creates an Uploader from an existing S3 client.
func NewFromS3Client(client *s3.Client, bucket, prefix string, log *zap.Logger) *Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Uploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
		log:    log,
	}
}

// Key returns the object key for a file name relative to the run folder.
func (u *Uploader) Key(runID, name string) string {
	return path.Join(u.prefix, runID, filepath.ToSlash(name))
}

// Upload stores the report file and every regular file under
// screenshotDir. A missing screenshot directory is not an error. Failed
// files do not stop the remaining uploads; their errors are joined.
func (u *Uploader) Upload(ctx context.Context, runID, reportPath, screenshotDir string) ([]string, error) {
	var keys []string
	var errs []error

	if reportPath != "" {
		key := u.Key(runID, filepath.Base(reportPath))
		if err := u.putFile(ctx, key, reportPath); err != nil {
			errs = append(errs, err)
		} else {
			keys = append(keys, key)
		}
	}

	if screenshotDir != "" {
		walkErr := filepath.WalkDir(screenshotDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && p == screenshotDir {
					return fs.SkipAll
				}
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(screenshotDir, p)
			if err != nil {
				return err
			}
			key := u.Key(runID, path.Join("screenshots", filepath.ToSlash(rel)))
			if err := u.putFile(ctx, key, p); err != nil {
				errs = append(errs, err)
				return nil
			}
			keys = append(keys, key)
			return nil
		})
		if walkErr != nil {
			errs = append(errs, fmt.Errorf("walk %s: %w", screenshotDir, walkErr))
		}
	}

	return keys, errors.Join(errs...)
}

func (u *Uploader) putFile(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("artifacts: open %s: %w", file, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = defaultContentType
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("artifacts: failed to put object %q: %w", key, err)
	}
	u.log.Debug("uploaded artifact", zap.String("bucket", u.bucket), zap.String("key", key))
	return nil
}
