// Package merge concatenates ordered result chunks into one document while
// keeping the framing of the format intact: one JSON array, one CSV with a
// single header line, or one Arrow IPC stream.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/sync/errgroup"
)

// Format names the chunk serialization.
type Format string

const (
	// JSONArray chunks are JSON arrays of rows.
	JSONArray Format = "JSON_ARRAY"
	// CSV chunks each start with the same header line.
	CSV Format = "CSV"
	// ArrowStream chunks are complete Arrow IPC streams.
	ArrowStream Format = "ARROW_STREAM"
)

// OpenFunc opens the body of the i-th chunk in merge order.
type OpenFunc func(ctx context.Context, i int) (io.ReadCloser, error)

// Options tune a merge.
type Options struct {
	// Prefetch is the number of chunk bodies opened ahead of the writer.
	Prefetch int
	// Allocator is used for Arrow record batches.
	Allocator memory.Allocator
}

// framer rewrites the framing of consecutive chunks.
type framer interface {
	writeChunk(i int, r io.Reader, w io.Writer) error
	finish(w io.Writer) error
}

func newFramer(format Format, opts Options) (framer, error) {
	switch format {
	case JSONArray:
		return &jsonArrayFramer{}, nil
	case CSV:
		return &csvFramer{}, nil
	case ArrowStream:
		alloc := opts.Allocator
		if alloc == nil {
			alloc = memory.DefaultAllocator
		}
		return &arrowStreamFramer{alloc: alloc}, nil
	}
	return nil, fmt.Errorf("merge: unsupported format %q", format)
}

type opened struct {
	body io.ReadCloser
	err  error
}

// Merge writes the n chunks returned by open, in order, to w. Up to
// opts.Prefetch bodies are opened concurrently ahead of the one being
// written. Bodies that are not consumed because of an error are closed.
func Merge(ctx context.Context, format Format, n int, open OpenFunc, w io.Writer, opts Options) error {
	f, err := newFramer(format, opts)
	if err != nil {
		return err
	}
	prefetch := opts.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	results := make([]chan opened, n)
	for i := range results {
		results[i] = make(chan opened, 1)
	}
	sem := make(chan struct{}, prefetch)
	g.Go(func() error {
		for i := 0; i < n; i++ {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			i := i
			g.Go(func() error {
				body, err := open(gctx, i)
				results[i] <- opened{body: body, err: err}
				return err
			})
		}
		return nil
	})

	werr := consume(gctx, f, results, sem, w)
	cancel()
	gerr := g.Wait()
	for _, ch := range results {
		select {
		case o := <-ch:
			closeBody(o.body)
		default:
		}
	}

	if werr == nil {
		return nil
	}
	if perr := parent.Err(); perr != nil {
		return perr
	}
	if gerr != nil && !errors.Is(gerr, context.Canceled) {
		return gerr
	}
	return werr
}

func consume(ctx context.Context, f framer, results []chan opened, sem chan struct{}, w io.Writer) error {
	for i, ch := range results {
		var o opened
		select {
		case o = <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		if o.err != nil {
			return o.err
		}
		err := f.writeChunk(i, o.body, w)
		closeBody(o.body)
		<-sem
		if err != nil {
			return fmt.Errorf("merging chunk %v: %w", i, err)
		}
	}
	return f.finish(w)
}

func closeBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
