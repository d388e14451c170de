package gostatement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

const azureBlockSize = 8 * 1024 * 1024

// AzureConfig configures an AzureUploader.
type AzureConfig struct {
	// ContainerSASURL is the container URL with a SAS token granting
	// create, write and read.
	ContainerSASURL string
	Prefix          string
}

type azureBlobAPI interface {
	UploadStream(ctx context.Context, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
	URL() string
}

// AzureUploader streams merged results into block blobs. The returned URL
// carries the container SAS token, so it expires with it.
type AzureUploader struct {
	cfg     AzureConfig
	newBlob func(name string) azureBlobAPI
}

// NewAzureUploader builds an uploader for the container in cfg.
func NewAzureUploader(cfg AzureConfig) (*AzureUploader, error) {
	client, err := container.NewClientWithNoCredential(cfg.ContainerSASURL, &container.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Telemetry: policy.TelemetryOptions{ApplicationID: "gostatement/" + StatementClientVersion},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating azure container client: %w", err)
	}
	u := &AzureUploader{cfg: cfg}
	u.newBlob = func(name string) azureBlobAPI {
		return client.NewBlockBlobClient(name)
	}
	return u, nil
}

// Upload implements Uploader.
func (u *AzureUploader) Upload(ctx context.Context, name string, r io.Reader) (*UploadDescriptor, error) {
	contentType, body, err := sniffContentType(r)
	if err != nil {
		return nil, err
	}
	blobName := name
	if u.cfg.Prefix != "" {
		blobName = u.cfg.Prefix + "/" + name
	}
	client := u.newBlob(blobName)
	counter := &countingReader{r: body}
	logger.WithContext(ctx).Debugf("uploading to azure blob %v as %v", blobName, contentType)
	if _, err = client.UploadStream(ctx, counter, &azblob.UploadStreamOptions{
		BlockSize:   azureBlockSize,
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	}); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			return nil, fmt.Errorf("azure upload of %v failed with %v (HTTP %v): %w", blobName, respErr.ErrorCode, respErr.StatusCode, err)
		}
		return nil, fmt.Errorf("azure upload of %v failed: %w", blobName, err)
	}
	return &UploadDescriptor{
		URL:        client.URL(),
		ByteCount:  counter.n,
		Expiration: sasExpiration(u.cfg.ContainerSASURL),
	}, nil
}

// sasExpiration reads the se parameter of a SAS URL.
func sasExpiration(sasURL string) string {
	parts, err := sas.ParseURL(sasURL)
	if err != nil {
		return ""
	}
	expiry := parts.SAS.ExpiryTime()
	if expiry.IsZero() {
		return ""
	}
	return expiry.UTC().Format(time.RFC3339)
}
