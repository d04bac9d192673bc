package logging

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// fileSink buffers log lines to a file. Serialization is the caller's job;
// the logger core writes under its own mutex.
type fileSink struct {
	path string
	file *os.File
	buf  *bufio.Writer
}

func newFileSink(path string) (*fileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path required")
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	return &fileSink{
		path: path,
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

func (s *fileSink) Write(line []byte) {
	s.buf.Write(line)
}

func (s *fileSink) Close() error {
	return errors.Join(s.buf.Flush(), s.file.Close())
}
