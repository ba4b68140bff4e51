package retouch

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader mirrors enhanced images to an S3 bucket. It implements
// Uploader.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Uploader builds an uploader from the default AWS credential chain.
func NewS3Uploader(ctx context.Context, bucket, region, prefix string) (*S3Uploader, error) {
	if bucket == "" {
		return nil, NewError(InvalidArgument, "s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Uploader{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Upload puts the image under prefix/key and returns the object key.
func (u *S3Uploader) Upload(ctx context.Context, key string, img Image) (string, error) {
	objectKey := key
	if u.prefix != "" {
		objectKey = path.Join(u.prefix, key)
	}

	contentType := img.MIME
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put s3 object %s: %w", objectKey, err)
	}

	return objectKey, nil
}
