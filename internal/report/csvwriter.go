package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// csvWriter is a buffered CSV file writer.
type csvWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	rows uint64
}

// newCSVWriter creates path, truncating any existing file, and writes the
// header row.
func newCSVWriter(path string, header []string) (*csvWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv create %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, 256*1024)
	cw := csv.NewWriter(bw)
	if err := cw.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("csv write header: %w", err)
	}
	return &csvWriter{file: f, buf: bw, csv: cw}, nil
}

// WriteRow buffers one data row. Once the underlying writer has failed,
// every later row returns the same error.
func (w *csvWriter) WriteRow(row []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("csv write row %d: %w", w.rows+1, err)
	}
	w.rows++
	return nil
}

func (w *csvWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close flushes remaining rows and closes the file.
func (w *csvWriter) Close() error {
	ferr := w.Flush()
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Close(); err != nil && ferr == nil {
		ferr = err
	}
	return ferr
}

// Rows returns the number of data rows written, excluding the header.
func (w *csvWriter) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}
