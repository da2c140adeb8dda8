package lis

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Source yields independent readers over the same report text.
type Source interface {
	// Name identifies the report in logs and errors.
	Name() string
	// Open returns a fresh reader positioned at the first line.
	Open() (io.ReadCloser, error)
}

type fileSource struct {
	path string
}

// FileSource reads the report at path.
func FileSource(path string) Source {
	return fileSource{path: path}
}

func (s fileSource) Name() string { return s.path }

func (s fileSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	return f, nil
}

type bytesSource struct {
	name string
	data []byte
}

// BytesSource serves a report held in memory. data must not be modified afterwards.
func BytesSource(name string, data []byte) Source {
	return bytesSource{name: name, data: data}
}

func (s bytesSource) Name() string { return s.name }

func (s bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}
