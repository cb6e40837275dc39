package logging

import (
	"os"
	"sync"
)

// fileSink appends formatted log lines to the path the configuration
// designates, flushing after each write (spec.md §4.2.5). Close is the
// scoped cleanup handler of spec.md §5: it is always invoked on every
// exit path of the queue consumer, guaranteeing the handle is closed.
type fileSink struct {
	mu sync.Mutex
	f  *os.File
}

func newFileSink(path string) (*fileSink, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileSink{f: f}, nil
}

func (fs *fileSink) write(line string) {
	if fs == nil {
		return
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, err := fs.f.WriteString(line + "\n"); err != nil {
		return
	}
	fs.f.Sync()
}

// Close closes the underlying file handle. Safe to call on a nil
// receiver so callers can defer it unconditionally.
func (fs *fileSink) Close() error {
	if fs == nil {
		return nil
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.f.Close()
}
