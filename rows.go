package gostatement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// FetchOptions tune ForEachRow and FetchAll.
type FetchOptions struct {
	RowFormat RowFormat
	// EncodeBigInt re-encodes BIGINT values, e.g. to strings. By default they
	// are returned as *big.Int.
	EncodeBigInt func(*big.Int) any
	// EncodeTimestamp re-encodes TIMESTAMP values. By default the service's
	// string is returned.
	EncodeTimestamp func(string) any
	// Stream is used when rows are read from external links.
	Stream StreamOptions
}

// ForEachRow calls fn with every row of result, in result order. Inline
// results are read from the payload and the chunk endpoint; external link
// results must be JSON_ARRAY and are parsed incrementally from the merged
// stream. An error returned by fn stops the iteration and is returned.
func (c *Client) ForEachRow(ctx context.Context, result *StatementResult, opts *FetchOptions, fn func(row any) error) error {
	if err := checkFetchable(result); err != nil {
		return err
	}
	if opts == nil {
		opts = &FetchOptions{}
	}
	statementID := result.StatementID
	inline := result.Result.isInline()
	if !inline && result.Manifest.Format != FormatJSONArray {
		return &StatementError{
			Number:      ErrCodeUnsupportedFormat,
			StatementID: statementID,
			Message:     errMsgRowStreamFormat,
			MessageArgs: []interface{}{result.Manifest.Format},
		}
	}
	if err := ctx.Err(); err != nil {
		return errAborted(statementID, err)
	}
	ctx = withStatementID(ctx, statementID)
	decoder := buildRowDecoder(statementID, result.Manifest.Schema, opts.RowFormat, decodeHooks{
		encodeBigInt:    opts.EncodeBigInt,
		encodeTimestamp: opts.EncodeTimestamp,
	})
	if inline {
		return c.forEachInlineRow(ctx, result, decoder, fn)
	}
	return c.forEachStreamedRow(ctx, result, opts, decoder, fn)
}

// maxPreallocatedRows bounds the capacity FetchAll reserves from the
// reported row count.
const maxPreallocatedRows = 1 << 16

// FetchAll returns every row of result. See ForEachRow.
func (c *Client) FetchAll(ctx context.Context, result *StatementResult, opts *FetchOptions) ([]any, error) {
	var rows []any
	if result.Manifest != nil && result.Manifest.TotalRowCount > 0 {
		rows = make([]any, 0, min(result.Manifest.TotalRowCount, maxPreallocatedRows))
	}
	err := c.ForEachRow(ctx, result, opts, func(row any) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func emitRows(ctx context.Context, statementID string, rows [][]any, decoder *rowDecoder, fn func(any) error) error {
	for _, raw := range rows {
		if err := ctx.Err(); err != nil {
			return errAborted(statementID, err)
		}
		row, err := decoder.decode(raw)
		if err != nil {
			return err
		}
		if err = fn(row); err != nil {
			return err
		}
	}
	return nil
}

// forEachInlineRow walks the inline payload, then fetches chunks 1..n-1
// from the chunk endpoint.
func (c *Client) forEachInlineRow(ctx context.Context, result *StatementResult, decoder *rowDecoder, fn func(any) error) error {
	statementID := result.StatementID
	if err := emitRows(ctx, statementID, result.Result.DataArray, decoder, fn); err != nil {
		return err
	}
	total := result.Manifest.TotalChunkCount
	for i := 1; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return errAborted(statementID, err)
		}
		logger.WithContext(ctx).Tracef("fetching inline chunk %v/%v", i, total)
		chunk, err := c.rest.getResultChunk(ctx, statementID, i)
		if err != nil {
			return abortOr(ctx, statementID, err)
		}
		if len(chunk.ExternalLinks) > 0 {
			return &StatementError{
				Number:      ErrCodeUnsupportedFormat,
				StatementID: statementID,
				Message:     errMsgExternalLinksInInline,
				MessageArgs: []interface{}{i},
			}
		}
		if err = emitRows(ctx, statementID, chunk.DataArray, decoder, fn); err != nil {
			return err
		}
	}
	return nil
}

// forEachStreamedRow parses the merged JSON array one element at a time so
// memory stays bounded by the largest row.
func (c *Client) forEachStreamedRow(ctx context.Context, result *StatementResult, opts *FetchOptions, decoder *rowDecoder, fn func(any) error) error {
	statementID := result.StatementID
	stream, err := c.OpenStream(ctx, result, &opts.Stream)
	if err != nil {
		return err
	}
	defer stream.Close()

	dec := json.NewDecoder(stream)
	dec.UseNumber()
	streamErr := func(err error) error {
		var se *StatementError
		if errors.As(err, &se) {
			return abortOr(ctx, statementID, err)
		}
		return abortOr(ctx, statementID, errMalformed(statementID, err))
	}
	tok, err := dec.Token()
	if err == io.EOF {
		// nothing was streamed
		return abortOr(ctx, statementID, nil)
	}
	if err != nil {
		return streamErr(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return errMalformed(statementID, fmt.Errorf("expected a JSON array, got %v", tok))
	}
	for n := 0; dec.More(); n++ {
		if err = ctx.Err(); err != nil {
			return errAborted(statementID, err)
		}
		var element json.RawMessage
		if err = dec.Decode(&element); err != nil {
			return streamErr(err)
		}
		var raw []any
		if err = unmarshalRow(element, &raw); err != nil {
			return &StatementError{
				Number:      ErrCodeMalformedResponse,
				StatementID: statementID,
				Message:     errMsgMalformedRow,
				MessageArgs: []interface{}{n},
				cause:       err,
			}
		}
		row, err := decoder.decode(raw)
		if err != nil {
			return err
		}
		if err = fn(row); err != nil {
			return err
		}
	}
	if _, err = dec.Token(); err != nil {
		return streamErr(err)
	}
	return nil
}

var errRowNotArray = errors.New("row is not a JSON array")

func unmarshalRow(element json.RawMessage, raw *[]any) error {
	for _, b := range element {
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if b != '[' {
			return errRowNotArray
		}
		break
	}
	dec := json.NewDecoder(bytes.NewReader(element))
	dec.UseNumber()
	return dec.Decode(raw)
}
