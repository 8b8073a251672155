// Package s3store stages task result payloads in S3 and mints time-limited
// presigned links for retrieval. Failures are logged and surface as empty
// URLs rather than errors, matching the fire-and-forget contract of the
// rest of the library.
package s3store

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// DefaultRegion is used when no region is supplied. The bucket and the
	// invoking service must run in the same region; this is not validated.
	DefaultRegion = "us-east-1"
	// DefaultSignedURLExpiry bounds the lifetime of presigned links.
	DefaultSignedURLExpiry = 86400 * time.Second
)

// PutObjectAPI is the slice of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PresignAPI is the slice of the S3 presign client used for link minting.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Client struct {
	uploader  PutObjectAPI
	presigner PresignAPI
	logger    *slog.Logger
}

// NewClient builds a Client backed by a real S3 client using path-style
// addressing and the default credential chain. A nil logger falls back to
// slog.Default().
func NewClient(ctx context.Context, region string, logger *slog.Logger) (*Client, error) {
	if region == "" {
		region = DefaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return NewClientFromAPI(api, s3.NewPresignClient(api), logger), nil
}

// NewClientFromAPI builds a Client around pre-built API implementations.
// Production callers can pass an existing *s3.Client; tests pass fakes.
func NewClientFromAPI(uploader PutObjectAPI, presigner PresignAPI, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		uploader:  uploader,
		presigner: presigner,
		logger:    logger,
	}
}

// PresignedGetURL mints a presigned GET link for bucket/key valid for the
// given expiry (DefaultSignedURLExpiry when non-positive). Returns an empty
// string and logs on client errors.
func (c *Client) PresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) string {
	if expiry <= 0 {
		expiry = DefaultSignedURLExpiry
	}

	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		c.logger.Error("error while generating presigned url", "bucket", bucket, "key", key, "error", err)
		return ""
	}

	return req.URL
}

// UploadText stores contents under bucket/key with the given content type
// and returns a presigned GET link for the freshly written object. Returns
// an empty string and logs if the upload or the presign fails.
func (c *Client) UploadText(ctx context.Context, contents, contentType, bucket, key string, expiry time.Duration) string {
	_, err := c.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(contents),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		c.logger.Error("error while uploading to s3", "bucket", bucket, "key", key, "error", err)
		return ""
	}

	return c.PresignedGetURL(ctx, bucket, key, expiry)
}
