package gostatement

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of a stream is buffered to detect its content type.
const sniffLen = 3072

// Uploader is implemented by the storage sinks: S3Uploader, GCSUploader,
// AzureUploader and LocalFileUploader.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (*UploadDescriptor, error)
}

// UploadTo returns an UploadFunc storing the stream as name with u.
func UploadTo(u Uploader, name string) UploadFunc {
	return func(ctx context.Context, r io.Reader) (*UploadDescriptor, error) {
		return u.Upload(ctx, name, r)
	}
}

// ResultObjectName names the object a merged result is uploaded to: the
// statement id with an extension matching the result format.
func ResultObjectName(result *StatementResult) string {
	ext := ".bin"
	if result.Manifest != nil {
		switch result.Manifest.Format {
		case FormatJSONArray:
			ext = ".json"
		case FormatCSV:
			ext = ".csv"
		case FormatArrowStream:
			ext = ".arrows"
		}
	}
	return result.StatementID + ext
}

// sniffContentType detects the content type from the head of r and returns
// a reader replaying the whole stream.
func sniffContentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
