package gostatement

import (
	"context"
	"errors"
	"io"
)

// UploadDescriptor locates a merged result persisted by an UploadFunc.
type UploadDescriptor struct {
	URL        string
	ByteCount  int64
	Expiration string
}

// UploadFunc persists the merged result stream and reports where it went.
type UploadFunc func(ctx context.Context, r io.Reader) (*UploadDescriptor, error)

var errNoUploadDescriptor = errors.New("upload returned no descriptor")

// FetchAndUpload pipes the merged result stream into upload and returns a
// copy of result whose manifest and payload describe the uploaded object
// as a single chunk 0 spanning all rows. result itself is not modified.
func (c *Client) FetchAndUpload(ctx context.Context, result *StatementResult, opts *StreamOptions, upload UploadFunc) (*StatementResult, error) {
	stream, err := c.OpenStream(ctx, result, opts)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	ctx = withStatementID(ctx, result.StatementID)
	desc, err := upload(ctx, stream)
	if err != nil {
		return nil, abortOr(ctx, result.StatementID, err)
	}
	if err = ctx.Err(); err != nil {
		return nil, errAborted(result.StatementID, err)
	}
	if desc == nil {
		return nil, errMalformed(result.StatementID, errNoUploadDescriptor)
	}
	logger.WithContext(ctx).Debugf("uploaded %v bytes to %v", desc.ByteCount, maskedURL(desc.URL))
	return collapseToUpload(result, desc), nil
}

func collapseToUpload(result *StatementResult, desc *UploadDescriptor) *StatementResult {
	out := *result
	if result.Status.Error != nil {
		serviceErr := *result.Status.Error
		out.Status.Error = &serviceErr
	}
	manifest := *result.Manifest
	if result.Manifest.Schema != nil {
		schema := *result.Manifest.Schema
		schema.Columns = append([]ColumnInfo(nil), schema.Columns...)
		manifest.Schema = &schema
	}
	rowCount := manifest.TotalRowCount
	manifest.TotalChunkCount = 1
	manifest.TotalByteCount = desc.ByteCount
	manifest.Chunks = []ChunkInfo{{
		ChunkIndex: 0,
		RowOffset:  0,
		RowCount:   rowCount,
		ByteCount:  desc.ByteCount,
	}}
	out.Manifest = &manifest
	out.Result = &ResultData{
		ChunkIndex: 0,
		RowOffset:  0,
		RowCount:   rowCount,
		ByteCount:  desc.ByteCount,
		ExternalLinks: []ExternalLink{{
			ChunkIndex:   0,
			RowOffset:    0,
			RowCount:     rowCount,
			ByteCount:    desc.ByteCount,
			ExternalLink: desc.URL,
			Expiration:   desc.Expiration,
		}},
	}
	return &out
}
