package gostatement

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// LocalFileUploader writes merged results into a local directory and
// returns file:// URLs. It is meant for the CLI and tests.
type LocalFileUploader struct {
	Dir string
}

// Upload implements Uploader.
func (u *LocalFileUploader) Upload(ctx context.Context, name string, r io.Reader) (*UploadDescriptor, error) {
	dir, err := filepath.Abs(expandUser(u.Dir))
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	dst := filepath.Join(dir, filepath.Base(name))
	output, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(output)
	n, err := io.Copy(w, r)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := output.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(dst); rmErr != nil {
			logger.WithContext(ctx).Warnf("removing partial file %v: %v", dst, rmErr)
		}
		return nil, fmt.Errorf("writing %v: %w", dst, err)
	}
	logger.WithContext(ctx).Debugf("wrote %v bytes to %v", n, dst)
	return &UploadDescriptor{
		URL:       (&url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}).String(),
		ByteCount: n,
	}, nil
}

// expandUser replaces a leading ~ with the home directory.
func expandUser(path string) string {
	if path == "~" || len(path) > 1 && path[0] == '~' && os.IsPathSeparator(path[1]) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
