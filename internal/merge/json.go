package merge

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

var errNotJSONArray = errors.New("chunk is not a JSON array")

func isJSONSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// jsonArrayFramer strips the brackets of every chunk and joins the element
// lists with commas inside one outer array. Only the last non-space byte of
// a chunk is held back, so chunks are never buffered whole.
type jsonArrayFramer struct {
	started  bool
	wroteAny bool
}

func (f *jsonArrayFramer) writeChunk(_ int, r io.Reader, w io.Writer) error {
	if !f.started {
		if _, err := io.WriteString(w, "["); err != nil {
			return err
		}
		f.started = true
	}
	br := bufio.NewReader(r)
	if err := skipOpenBracket(br); err != nil {
		return err
	}

	buf := make([]byte, 32<<10)
	var tail []byte
	chunkHasContent := false
	for {
		n, rerr := br.Read(buf)
		if n > 0 {
			data := append(tail, buf[:n]...)
			last := lastNonSpace(data)
			var out []byte
			if last < 0 {
				tail = append([]byte(nil), data...)
			} else {
				out = data[:last]
				tail = append([]byte(nil), data[last:]...)
			}
			if !chunkHasContent {
				out = trimLeftSpace(out)
			}
			if len(out) > 0 {
				if !chunkHasContent && f.wroteAny {
					if _, err := io.WriteString(w, ","); err != nil {
						return err
					}
				}
				if _, err := w.Write(out); err != nil {
					return err
				}
				chunkHasContent = true
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	last := lastNonSpace(tail)
	if last < 0 || tail[last] != ']' {
		return fmt.Errorf("%w: missing closing bracket", errNotJSONArray)
	}
	if chunkHasContent {
		f.wroteAny = true
	}
	return nil
}

func (f *jsonArrayFramer) finish(w io.Writer) error {
	if !f.started {
		_, err := io.WriteString(w, "[]")
		return err
	}
	_, err := io.WriteString(w, "]")
	return err
}

func skipOpenBracket(br *bufio.Reader) error {
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return fmt.Errorf("%w: empty chunk", errNotJSONArray)
		}
		if err != nil {
			return err
		}
		if isJSONSpace(b) {
			continue
		}
		if b != '[' {
			return fmt.Errorf("%w: unexpected %q", errNotJSONArray, b)
		}
		return nil
	}
}

func lastNonSpace(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if !isJSONSpace(b[i]) {
			return i
		}
	}
	return -1
}

func trimLeftSpace(b []byte) []byte {
	for len(b) > 0 && isJSONSpace(b[0]) {
		b = b[1:]
	}
	return b
}
