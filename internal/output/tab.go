// Package output provides writers for merged score rows.
package output

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/inodb/merge-score/internal/merge"
)

// TabWriter writes rows as the original tab-separated fields followed by
// the block score column.
type TabWriter struct {
	w *bufio.Writer
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// FormatRow returns the output line for r without the trailing newline.
func FormatRow(r merge.Row) string {
	return strings.Join(r.Fields, "\t") + "\t" + r.Score.String()
}

// WriteRow writes a single row.
func (tw *TabWriter) WriteRow(r merge.Row) error {
	_, err := tw.w.WriteString(FormatRow(r) + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// MultiWriter duplicates rows to several writers.
type MultiWriter struct {
	writers []merge.RowWriter
}

// NewMultiWriter creates a writer that writes each row to all writers in order.
func NewMultiWriter(writers ...merge.RowWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteRow writes r to every writer, stopping at the first error.
func (mw *MultiWriter) WriteRow(r merge.Row) error {
	for _, w := range mw.writers {
		if err := w.WriteRow(r); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every writer and returns the joined errors.
func (mw *MultiWriter) Flush() error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
