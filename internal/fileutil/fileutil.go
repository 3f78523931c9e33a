package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrExists reports that WriteExclusive found the target already present.
var ErrExists = fs.ErrExist

// WriteAtomic streams r into path through a temp file in the same directory
// and renames it into place, replacing any existing file. Readers never see a
// partially written file.
func WriteAtomic(path string, r io.Reader, mode os.FileMode) (int64, error) {
	return WriteAtomicFunc(path, mode, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// WriteAtomicFunc is WriteAtomic for producers that write rather than read.
// When fill fails the temp file is removed and path is left as it was.
func WriteAtomicFunc(path string, mode os.FileMode, fill func(io.Writer) error) (int64, error) {
	tmp, written, err := writeTemp(path, mode, fill)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("rename temp file: %w", err)
	}
	return written, nil
}

// WriteExclusive is WriteAtomic that refuses to replace an existing file. The
// final step is a hard link, which fails atomically when path exists; in that
// case the returned error matches ErrExists.
func WriteExclusive(path string, r io.Reader, mode os.FileMode) (int64, error) {
	if _, err := os.Lstat(path); err == nil {
		return 0, fmt.Errorf("%s: %w", path, ErrExists)
	}
	tmp, written, err := writeTemp(path, mode, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp)
	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, fmt.Errorf("%s: %w", path, ErrExists)
		}
		return 0, fmt.Errorf("link temp file: %w", err)
	}
	return written, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeTemp(path string, mode os.FileMode, fill func(io.Writer) error) (string, int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	cw := &countingWriter{w: f}
	err = fill(cw)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp, mode)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("write temp file: %w", err)
	}
	return tmp, cw.n, nil
}
