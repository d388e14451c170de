package merge

import (
	"bufio"
	"io"
)

// csvFramer keeps the header line of the first chunk and drops the header
// line of every later one.
type csvFramer struct {
	endedWithNewline bool
	wroteAny         bool
}

func (f *csvFramer) writeChunk(i int, r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	if i > 0 {
		if _, err := br.ReadSlice('\n'); err != nil {
			if err == io.EOF {
				return nil
			}
			if err != bufio.ErrBufferFull {
				return err
			}
			// header longer than the buffer
			for err == bufio.ErrBufferFull {
				_, err = br.ReadSlice('\n')
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
	buf := make([]byte, 32<<10)
	first := true
	for {
		n, rerr := br.Read(buf)
		if n > 0 {
			if first && f.wroteAny && !f.endedWithNewline {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			first = false
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
			f.wroteAny = true
			f.endedWithNewline = buf[n-1] == '\n'
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

func (f *csvFramer) finish(io.Writer) error {
	return nil
}
