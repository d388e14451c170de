package merge

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var errSchemaMismatch = errors.New("arrow schema differs from the first chunk")

// arrowStreamFramer re-encodes the record batches of every chunk into a
// single IPC stream with one schema message and one end-of-stream marker.
type arrowStreamFramer struct {
	alloc  memory.Allocator
	schema *arrow.Schema
	writer *ipc.Writer
}

func (f *arrowStreamFramer) writeChunk(i int, r io.Reader, w io.Writer) error {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(f.alloc))
	if err != nil {
		return fmt.Errorf("reading arrow stream: %w", err)
	}
	defer rdr.Release()

	if f.writer == nil {
		f.schema = rdr.Schema()
		f.writer = ipc.NewWriter(w, ipc.WithSchema(f.schema), ipc.WithAllocator(f.alloc))
	} else if !f.schema.Equal(rdr.Schema()) {
		return fmt.Errorf("chunk %v: %w", i, errSchemaMismatch)
	}
	for rdr.Next() {
		if err := f.writer.Write(rdr.Record()); err != nil {
			return err
		}
	}
	return rdr.Err()
}

func (f *arrowStreamFramer) finish(io.Writer) error {
	if f.writer == nil {
		return nil
	}
	return f.writer.Close()
}
