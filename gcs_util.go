package gostatement

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig configures a GCSUploader.
type GCSConfig struct {
	Bucket string
	Prefix string
	// CredentialsFile is a service account key file. Application default
	// credentials are used when empty.
	CredentialsFile string
	// Endpoint overrides the storage endpoint, e.g. for an emulator.
	Endpoint string
	// SignedURLExpiry is the lifetime of the returned V4 signed URL.
	SignedURLExpiry time.Duration
}

type gcsObjectAPI interface {
	newWriter(ctx context.Context, bucket, object, contentType string) io.WriteCloser
	signedURL(bucket, object string, opts *storage.SignedURLOptions) (string, error)
}

type gcsClient struct {
	client *storage.Client
}

func (c *gcsClient) newWriter(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

func (c *gcsClient) signedURL(bucket, object string, opts *storage.SignedURLOptions) (string, error) {
	return c.client.Bucket(bucket).SignedURL(object, opts)
}

// GCSUploader writes merged results to Google Cloud Storage and returns V4
// signed GET URLs. When the credentials cannot sign, the gs:// URL of the
// object is returned without an expiration.
type GCSUploader struct {
	cfg GCSConfig
	api gcsObjectAPI
}

// NewGCSUploader creates the storage client for cfg.
func NewGCSUploader(ctx context.Context, cfg GCSConfig) (*GCSUploader, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}
	return &GCSUploader{cfg: cfg, api: &gcsClient{client: client}}, nil
}

// Upload implements Uploader.
func (u *GCSUploader) Upload(ctx context.Context, name string, r io.Reader) (*UploadDescriptor, error) {
	contentType, body, err := sniffContentType(r)
	if err != nil {
		return nil, err
	}
	object := path.Join(u.cfg.Prefix, name)
	logger.WithContext(ctx).Debugf("uploading to gs://%v/%v as %v", u.cfg.Bucket, object, contentType)
	// canceling the writer's context discards a partial object
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := u.api.newWriter(wctx, u.cfg.Bucket, object, contentType)
	n, err := io.Copy(w, body)
	if err != nil {
		cancel()
		_ = w.Close()
		return nil, fmt.Errorf("gcs upload of gs://%v/%v failed: %w", u.cfg.Bucket, object, err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("gcs upload of gs://%v/%v failed: %w", u.cfg.Bucket, object, err)
	}

	expiry := u.cfg.SignedURLExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	expires := time.Now().Add(expiry)
	signed, err := u.api.signedURL(u.cfg.Bucket, object, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: expires,
	})
	if err != nil {
		logger.WithContext(ctx).Warnf("cannot sign gcs url, returning the object path: %v", err)
		return &UploadDescriptor{URL: fmt.Sprintf("gs://%v/%v", u.cfg.Bucket, object), ByteCount: n}, nil
	}
	return &UploadDescriptor{
		URL:        signed,
		ByteCount:  n,
		Expiration: expires.UTC().Format(time.RFC3339),
	}, nil
}
