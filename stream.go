package gostatement

import (
	"context"
	"errors"
	"io"

	"github.com/statementexec/gostatement/internal/merge"
)

// StreamOptions tune OpenStream.
type StreamOptions struct {
	// ForceMerge sends a single chunk through the Merger instead of copying
	// it through unchanged.
	ForceMerge bool
}

// resultStream is the reader returned by OpenStream. Closing it stops the
// producer.
type resultStream struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (rs *resultStream) Close() error {
	rs.cancel()
	return rs.PipeReader.Close()
}

// OpenStream returns the externally hosted chunks of result as one byte
// stream in the manifest's format. It returns immediately: chunk URLs are
// resolved and fetched in the background and any failure, including the end
// of ctx, is returned by Read. The caller must Close the stream.
func (c *Client) OpenStream(ctx context.Context, result *StatementResult, opts *StreamOptions) (io.ReadCloser, error) {
	if err := checkFetchable(result); err != nil {
		return nil, err
	}
	if result.Result.isInline() {
		return nil, &StatementError{
			Number:      ErrCodeUnsupportedFormat,
			StatementID: result.StatementID,
			Message:     errMsgInlineStream,
		}
	}
	if opts == nil {
		opts = &StreamOptions{}
	}
	statementID := result.StatementID
	if err := ctx.Err(); err != nil {
		return nil, errAborted(statementID, err)
	}
	parent := withStatementID(ctx, statementID)
	ctx, cancel := context.WithCancel(parent)
	pr, pw := io.Pipe()

	go func() {
		defer cancel()
		stop := context.AfterFunc(parent, func() {
			pw.CloseWithError(errAborted(statementID, parent.Err()))
		})
		defer stop()
		err := c.writeStream(ctx, result, opts, pw)
		if err != nil {
			err = abortOr(parent, statementID, err)
			logger.WithContext(ctx).Debugf("result stream failed: %v", err)
		}
		pw.CloseWithError(err)
	}()
	return &resultStream{PipeReader: pr, cancel: cancel}, nil
}

func (c *Client) writeStream(ctx context.Context, result *StatementResult, opts *StreamOptions, w io.Writer) error {
	urls, err := c.resolveChunkURLs(ctx, result)
	if err != nil {
		return err
	}
	switch {
	case len(urls) == 0:
		logger.WithContext(ctx).Debug("no chunks to stream")
		return nil
	case len(urls) == 1 && !opts.ForceMerge:
		body, err := c.openChunk(ctx, urls[0])
		if err != nil {
			return err
		}
		defer body.Close()
		_, err = io.Copy(w, body)
		return err
	}
	logger.WithContext(ctx).Debugf("merging %v chunk urls as %v", len(urls), result.Manifest.Format)
	return c.merger.Merge(ctx, result.Manifest.Format, urls, w)
}

// defaultMerger merges with internal/merge, fetching chunk bodies through
// the client's chunk transport.
type defaultMerger struct {
	c *Client
}

func newDefaultMerger(c *Client) Merger {
	return &defaultMerger{c: c}
}

func (m *defaultMerger) Merge(ctx context.Context, format Format, urls []ChunkURL, w io.Writer) error {
	statementID := statementIDFromContext(ctx)
	switch format {
	case FormatJSONArray, FormatCSV, FormatArrowStream:
	default:
		return &StatementError{
			Number:      ErrCodeUnsupportedFormat,
			StatementID: statementID,
			Message:     errMsgMergeFormat,
			MessageArgs: []interface{}{format},
		}
	}
	open := func(ctx context.Context, i int) (io.ReadCloser, error) {
		return m.c.openChunk(ctx, urls[i])
	}
	err := merge.Merge(ctx, merge.Format(format), len(urls), open, w, merge.Options{Prefetch: m.c.cfg.Prefetch})
	if err == nil || ctx.Err() != nil {
		return err
	}
	var se *StatementError
	if errors.As(err, &se) || errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return errMalformed(statementID, err)
}
