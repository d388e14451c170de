package gostatement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const (
	defaultPresignExpiry = time.Hour
	s3PartSize           = 10 * 1024 * 1024
	s3UploadConcurrency  = 5
)

// S3Config configures an S3Uploader. Static credentials are optional; the
// client falls back to anonymous access when they are empty.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// PresignExpiry is the lifetime of the returned GET URL.
	PresignExpiry time.Duration
}

type s3UploadAPI interface {
	Upload(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type s3PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Uploader streams merged results into S3 with multipart uploads and
// returns presigned GET URLs.
type S3Uploader struct {
	cfg       S3Config
	uploader  s3UploadAPI
	presigner s3PresignAPI
}

// NewS3Uploader builds an uploader from cfg.
func NewS3Uploader(cfg S3Config) *S3Uploader {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.AccessKeyID != "" {
		opts.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken))
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	client := s3.New(opts)
	return &S3Uploader{
		cfg: cfg,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = s3PartSize
			u.Concurrency = s3UploadConcurrency
		}),
		presigner: s3.NewPresignClient(client),
	}
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, name string, r io.Reader) (*UploadDescriptor, error) {
	contentType, body, err := sniffContentType(r)
	if err != nil {
		return nil, err
	}
	counter := &countingReader{r: body}
	key := path.Join(u.cfg.Prefix, name)
	logger.WithContext(ctx).Debugf("uploading to s3://%v/%v as %v", u.cfg.Bucket, key, contentType)
	if _, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        counter,
		ContentType: aws.String(contentType),
	}); err != nil {
		return nil, s3Error("upload", u.cfg.Bucket, key, err)
	}

	expiry := u.cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	presigned, err := u.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, s3Error("presign", u.cfg.Bucket, key, err)
	}
	return &UploadDescriptor{
		URL:        presigned.URL,
		ByteCount:  counter.n,
		Expiration: time.Now().Add(expiry).UTC().Format(time.RFC3339),
	}, nil
}

func s3Error(op, bucket, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		logger.Debugf("s3 %v failed. code: %v, message: %v", op, apiErr.ErrorCode(), apiErr.ErrorMessage())
		return fmt.Errorf("s3 %v of s3://%v/%v failed with %v: %w", op, bucket, key, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("s3 %v of s3://%v/%v failed: %w", op, bucket, key, err)
}
