package refwriter

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// fileSink buffers writes to an append-mode log file.
type fileSink struct {
	file *os.File
	buf  *bufio.Writer
}

// Open opens path for appending, creating it if needed, and returns the first
// Reference on it. The parent directory must already exist.
func Open(path string) (*Reference, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("refwriter: open %s: %w", path, err)
	}
	return New(path, &fileSink{file: f, buf: bufio.NewWriter(f)}), nil
}

func (f *fileSink) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *fileSink) Flush() error {
	return f.buf.Flush()
}

func (f *fileSink) Close() error {
	return errors.Join(f.buf.Flush(), f.file.Close())
}
