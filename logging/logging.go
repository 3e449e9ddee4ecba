package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Log files are capped so a long-running daemon cannot fill the disk.
// On rollover the current file becomes <path>.1, replacing any previous
// backup.
const defaultMaxSize = 4 * 1024 * 1024

// RotatingWriter is a size-capped append writer for the process log.
type RotatingWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
}

// Setup routes the standard logger to stdout and a rotating file. An
// empty path keeps stdout-only logging and returns a nil writer.
func Setup(logPath string) (*RotatingWriter, error) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if logPath == "" {
		return nil, nil
	}

	rw, err := newRotatingWriter(logPath, defaultMaxSize)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rw))
	return rw, nil
}

func newRotatingWriter(path string, maxSize int64) (*RotatingWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	rw := &RotatingWriter{file: f, path: path, size: size, maxSize: maxSize}
	if rw.size > rw.maxSize {
		rw.rotate()
	}
	return rw, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	w.size += int64(n)

	if w.size > w.maxSize {
		w.rotate()
	}
	return n, err
}

func (w *RotatingWriter) rotate() {
	w.file.Close()
	os.Rename(w.path, w.path+".1")

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}
	w.file = f
	w.size = 0
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
