package gostatement

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
)

// chunkBody inflates gzip encoded chunk bodies and closes the response with
// the reader on top of it.
type chunkBody struct {
	io.Reader
	gz   *gzip.Reader
	resp *http.Response
}

func (b *chunkBody) Close() error {
	if b.gz != nil {
		if err := b.gz.Close(); err != nil {
			logger.Warnf("closing gzip reader: %v", err)
		}
	}
	return b.resp.Body.Close()
}

// openChunk fetches one presigned chunk URL. Presigned URLs carry their own
// credentials, so the request is not authenticated; headers reported with the
// link are forwarded as is.
func (c *Client) openChunk(ctx context.Context, u ChunkURL) (io.ReadCloser, error) {
	statementID := statementIDFromContext(ctx)
	if err := ctx.Err(); err != nil {
		return nil, errAborted(statementID, err)
	}
	headers := make(map[string]string, len(u.HTTPHeaders))
	for k, v := range u.HTTPHeaders {
		headers[k] = v
	}
	logger.WithContext(ctx).Debugf("fetching chunk %v from %v", u.ChunkIndex, maskedURL(u.URL))
	resp, err := newRetryHTTP(ctx, c.chunks, u.URL, headers, c.cfg.RequestTimeout, c.cfg.MaxRetryCount).
		withWaitAlgo(c.rest.waitAlgo).
		execute()
	if err != nil {
		return nil, abortOr(ctx, statementID, &StatementError{
			Number:      ErrCodeFailedToGetChunk,
			StatementID: statementID,
			Message:     errMsgFailedToGetChunk,
			MessageArgs: []interface{}{u.ChunkIndex, err, maskedURL(u.URL)},
			cause:       err,
		})
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		closeResponse(resp)
		logger.WithContext(ctx).Debugf("HTTP: %v, URL: %v, Body: %s", resp.StatusCode, maskedURL(u.URL), b)
		return nil, &StatementError{
			Number:      ErrCodeFailedToGetChunk,
			StatementID: statementID,
			Message:     errMsgFailedToGetChunk,
			MessageArgs: []interface{}{u.ChunkIndex, resp.StatusCode, maskedURL(u.URL)},
		}
	}

	bufStream := bufio.NewReader(resp.Body)
	gzipMagic, err := bufStream.Peek(2)
	if err != nil && err != io.EOF {
		closeResponse(resp)
		return nil, abortOr(ctx, statementID, fmt.Errorf("peeking for gzip magic bytes: %w", err))
	}
	body := &chunkBody{Reader: bufStream, resp: resp}
	if len(gzipMagic) == 2 && gzipMagic[0] == 0x1f && gzipMagic[1] == 0x8b {
		logger.WithContext(ctx).Debugf("chunk %v is gzip compressed", u.ChunkIndex)
		if body.gz, err = gzip.NewReader(bufStream); err != nil {
			closeResponse(resp)
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		body.Reader = body.gz
	}
	return body, nil
}
