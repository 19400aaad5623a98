// Package runlog provides the append-only request log with size-based
// rotation. It exposes an io.Writer so the slog handler can write straight
// through it.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// maxLogSize is the rotation threshold. One prior generation is kept as
// <path>.1.
const maxLogSize = 10 * 1024 * 1024

// Writer is a rotating append-only file writer safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
	size int64
}

// NewWriter opens (or creates) the log file in append mode.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	w := &Writer{path: path}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends p, rotating first when the file would exceed the threshold.
// Each record is expected to end with a newline; records are never split
// across generations.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size > 0 && w.size+int64(len(p)) > maxLogSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// Path returns the active log file path.
func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *Writer) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(w.path, w.path+".1"); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}
	return w.open()
}
