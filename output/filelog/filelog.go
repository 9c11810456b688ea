// Package filelog records the event stream as JSON lines, one event
// per line, for offline replay and debugging.
package filelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mana-Robotics/televoodoo-viewer/errors"
	"github.com/Mana-Robotics/televoodoo-viewer/event"
)

const flushInterval = time.Second

// Deps holds runtime dependencies for the file logger
type Deps struct {
	Path   string
	Append bool
	Logger *slog.Logger
}

// Writer is an event sink appending one JSON line per event. Writes
// are buffered and flushed periodically; Close flushes the remainder.
type Writer struct {
	path   string
	append bool
	logger *slog.Logger

	fileMu sync.Mutex
	file   *os.File
	buf    *bufio.Writer

	shutdown  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool

	written     atomic.Int64
	writeErrors atomic.Int64
}

var _ event.Sink = (*Writer)(nil)

// New creates a file logger from deps
func New(deps Deps) *Writer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "filelog")
	}
	return &Writer{
		path:     deps.Path,
		append:   deps.Append,
		logger:   logger,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Open creates the log file and starts the flush loop
func (w *Writer) Open() error {
	if w.path == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "filelog", "Open", "path validation")
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapFatal(err, "filelog", "Open", "create log directory")
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if w.append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(w.path, flags, 0o644)
	if err != nil {
		return errors.WrapFatal(err, "filelog", "Open", "open log file")
	}

	w.fileMu.Lock()
	w.file = file
	w.buf = bufio.NewWriter(file)
	w.fileMu.Unlock()
	w.running.Store(true)

	go w.flushLoop()

	return nil
}

func (w *Writer) flushLoop() {
	defer close(w.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Writer) flush() {
	w.fileMu.Lock()
	defer w.fileMu.Unlock()
	if w.buf == nil {
		return
	}
	if err := w.buf.Flush(); err != nil {
		w.writeErrors.Add(1)
		w.logger.Warn("Flush failed", "path", w.path, "error", err)
	}
}

// Emit appends one event as a JSON line. Implements event.Sink. Safe
// to call before Open; events are dropped until the file exists.
func (w *Writer) Emit(e event.Event) {
	if !w.running.Load() {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		w.writeErrors.Add(1)
		return
	}

	w.fileMu.Lock()
	defer w.fileMu.Unlock()
	if w.buf == nil {
		return
	}
	if _, err := w.buf.Write(append(data, '\n')); err != nil {
		w.writeErrors.Add(1)
		w.logger.Warn("Write failed", "path", w.path, "error", err)
		return
	}
	w.written.Add(1)
}

// Close flushes and closes the log file. Safe to call more than once.
func (w *Writer) Close() error {
	if !w.running.Load() {
		return nil
	}
	w.running.Store(false)

	w.closeOnce.Do(func() {
		close(w.shutdown)
	})

	select {
	case <-w.done:
	case <-time.After(2 * flushInterval):
	}

	w.fileMu.Lock()
	defer w.fileMu.Unlock()

	var errs []error
	if w.buf != nil {
		if err := w.buf.Flush(); err != nil {
			errs = append(errs, err)
		}
		w.buf = nil
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			errs = append(errs, err)
		}
		w.file = nil
	}

	if len(errs) > 0 {
		return errors.Wrap(fmt.Errorf("%v", errs), "filelog", "Close", "file close")
	}
	return nil
}

// Written returns the number of events written so far
func (w *Writer) Written() int64 {
	return w.written.Load()
}
