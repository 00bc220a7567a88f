// Package tsvio opens and splits the tab-separated inputs shared by the loaders.
package tsvio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Open opens path for reading. "-" reads from stdin.
// Gzipped files are detected by their magic bytes and decompressed transparently.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return Wrap(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	rc, err := Wrap(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rc, nil
}

// Wrap returns a reader over r that decompresses gzip content if present.
// Closing the result closes r when r is an io.Closer.
func Wrap(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)

	// Check for gzip magic number (0x1f, 0x8b)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return &readCloser{Reader: gz, closers: []io.Closer{gz, closerOf(r)}}, nil
	}

	return &readCloser{Reader: br, closers: []io.Closer{closerOf(r)}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func closerOf(r io.Reader) io.Closer {
	// Stdin stays open for the lifetime of the process.
	if r == os.Stdin {
		return nopCloser{}
	}
	if c, ok := r.(io.Closer); ok {
		return c
	}
	return nopCloser{}
}

// Fields trims surrounding whitespace from line and splits it on tabs.
// An empty line yields a single empty field.
func Fields(line string) []string {
	return strings.Split(strings.TrimSpace(line), "\t")
}

// NewScanner returns a line scanner that accepts lines up to maxLine bytes.
func NewScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	return scanner
}

const maxLine = 16 * 1024 * 1024

// ParseError reports a malformed line in one of the input files.
type ParseError struct {
	Kind    string
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s parse error at line %d: %s: %v", e.Kind, e.Line, e.Message, e.Err)
	}
	return fmt.Sprintf("%s parse error at line %d: %s", e.Kind, e.Line, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
