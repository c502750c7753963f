package storage

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"

	"github.com/m-sorano/ai-cafe/internal/apperr"
)

// S3Store keeps avatars in an S3 or S3-compatible bucket.
type S3Store struct {
	bucket    string
	region    string
	endpoint  string
	publicURL string
	client    *s3.S3
	uploader  *s3manager.Uploader
}

// NewS3Store creates a store. A non-empty endpoint selects an S3-compatible
// service addressed with path-style URLs.
func NewS3Store(bucket, region, endpoint, publicURL string) (*S3Store, error) {
	return newS3Store(bucket, region, endpoint, publicURL, nil)
}

func newS3Store(bucket, region, endpoint, publicURL string, extra *aws.Config) (*S3Store, error) {
	if bucket == "" {
		return nil, errors.New("S3_BUCKET must be set for the s3 storage driver")
	}
	if region == "" {
		region = "us-east-1"
	}

	awsCfg := aws.NewConfig().WithRegion(region)
	if endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}
	if extra != nil {
		awsCfg.MergeIn(extra)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errors.Wrap(err, "error creating AWS session")
	}

	return &S3Store{
		bucket:    bucket,
		region:    region,
		endpoint:  strings.TrimRight(endpoint, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
		client:    s3.New(sess),
		uploader:  s3manager.NewUploader(sess),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if aerr, ok := err.(awserr.Error); !ok || (aerr.Code() != "NotFound" && aerr.Code() != s3.ErrCodeNoSuchBucket) {
		return apperr.Remote(err, "バケットの確認に失敗しました")
	}

	_, err = s.client.CreateBucketWithContext(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeBucketAlreadyOwnedByYou {
		return nil
	}
	return apperr.Remote(err, "バケットの作成に失敗しました")
}

// Upload stores body under path and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", apperr.Remote(err, "アップロードに失敗しました")
	}
	return s.URL(path), nil
}

// URL returns the public address of an object.
func (s *S3Store) URL(path string) string {
	switch {
	case s.publicURL != "":
		return s.publicURL + "/" + path
	case s.endpoint != "":
		return s.endpoint + "/" + s.bucket + "/" + path
	default:
		return "https://" + s.bucket + ".s3." + s.region + ".amazonaws.com/" + path
	}
}
