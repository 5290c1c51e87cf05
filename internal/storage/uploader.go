package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/egepakten/cognito-student-registry/internal/platform/httpx"
	"github.com/egepakten/cognito-student-registry/internal/roles"
)

// S3API is the slice of the S3 client the uploader uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// ClientFactory builds an S3 client bound to one user's federated
// credential triple.
type ClientFactory func(ctx context.Context, creds aws.Credentials) (S3API, error)

// NewClientFactory returns the production factory backed by static
// credential providers in the given region.
func NewClientFactory(region string) ClientFactory {
	return func(ctx context.Context, creds aws.Credentials) (S3API, error) {
		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				creds.AccessKeyID,
				creds.SecretAccessKey,
				creds.SessionToken,
			)),
		)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return s3.NewFromConfig(cfg), nil
	}
}

// Object describes one stored file.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Uploader performs homework bucket operations with per-call clients.
type Uploader struct {
	bucket    string
	clientFor ClientFactory
}

// NewUploader constructs an Uploader over the given bucket.
func NewUploader(bucket string, clientFor ClientFactory) *Uploader {
	return &Uploader{bucket: bucket, clientFor: clientFor}
}

func translate(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException", "ExpiredToken", "InvalidAccessKeyId":
			return fmt.Errorf("%s: %w: %s", op, httpx.ErrDenied, apiErr.ErrorMessage())
		}
	}
	return fmt.Errorf("%s: %w: %v", op, httpx.ErrUpstream, err)
}

// Upload stores the body under the caller's prefix and returns the
// resulting key.
func (u *Uploader) Upload(ctx context.Context, creds aws.Credentials, role roles.Role, identityID, fileName, contentType string, body io.Reader) (string, error) {
	client, err := u.clientFor(ctx, creds)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	key := ObjectKey(role, identityID, fileName)
	in := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := client.PutObject(ctx, in); err != nil {
		return "", translate("upload", err)
	}
	return key, nil
}

// ListMine returns the caller's stored files.
func (u *Uploader) ListMine(ctx context.Context, creds aws.Credentials, role roles.Role, identityID string) ([]Object, error) {
	client, err := u.clientFor(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(u.bucket),
		Prefix: aws.String(ObjectPrefix(role, identityID)),
	})
	if err != nil {
		return nil, translate("list files", err)
	}
	objects := make([]Object, 0, len(out.Contents))
	for _, obj := range out.Contents {
		entry := Object{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
		if obj.LastModified != nil {
			entry.LastModified = *obj.LastModified
		}
		objects = append(objects, entry)
	}
	return objects, nil
}
