// Package common holds shared infrastructure wrappers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config contains minimal configuration for creating an S3 client.
// Values are optional and will fall back to the standard AWS config/credential chain.
type S3Config struct {
	// Region to use for requests, e.g. "us-east-1". If empty, AWS defaults apply.
	Region string
	// Profile selects a named shared config/credentials profile. If empty, default chain applies.
	Profile string
	// UsePathStyle forces path-style addressing (useful for some S3-compatible providers).
	UsePathStyle bool
}

// S3 wraps the AWS SDK for Go v2 S3 client with a narrow interface we can mock.
type S3 struct {
	client *s3.Client
}

// NewS3 creates a new S3 wrapper using the default AWS configuration chain,
// with optional overrides from S3Config.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3{client: c}, nil
}

// Put uploads an object to the given bucket/key.
// If contentType is non-empty, it is set on the object.
func (s *S3) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	_, err := s.client.PutObject(ctx, in)
	return err
}

// Exists returns true if the object exists (HTTP 200 from HeadObject); false if 404/NotFound.
func (s *S3) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if respErr.HTTPStatusCode() == 404 {
			return false, nil
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode() == "NotFound" {
			return false, nil
		}
	}

	return false, err
}

// GroupArchiver mirrors posted group directories to an S3 bucket for long-term
// retention. The on-disk history directory stays the source of truth for
// duplicate checks; the archive is for operators and forensics.
type GroupArchiver struct {
	s3     *S3
	bucket string
	prefix string
}

// NewGroupArchiver creates an archiver writing under bucket/prefix.
func NewGroupArchiver(s3 *S3, bucket, prefix string) *GroupArchiver {
	if prefix == "" {
		prefix = "groups"
	}
	return &GroupArchiver{s3: s3, bucket: bucket, prefix: prefix}
}

// ArchiveGroup uploads every regular file in the group directory. Per-file
// failures are logged; the first error is returned after all files were tried.
func (a *GroupArchiver) ArchiveGroup(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read group directory: %w", err)
	}

	var firstErr error
	uploaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := a.uploadFile(ctx, filepath.Base(dir), path); err != nil {
			log.Printf("Warning: failed to archive %s: %v", path, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		uploaded++
	}

	log.Printf("Archived %d file(s) from %s to s3://%s/%s", uploaded, dir, a.bucket, a.prefix)
	return firstErr
}

func (a *GroupArchiver) uploadFile(ctx context.Context, groupName, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	key := a.prefix + "/" + groupName + "/" + filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(path))
	return a.s3.Put(ctx, a.bucket, key, f, contentType)
}
