package jsonl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.RecordSink = (*Sink)(nil)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("jsonl sink closed")

const bufferSize = 64 * 1024

type file struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

// Sink appends records to JSONL files. Files are opened on first write
// and kept open until Close.
type Sink struct {
	dir string

	mu     sync.Mutex
	files  map[string]*file
	closed bool
}

// New creates a sink rooted at dir. The directory is created on first write.
func New(dir string) *Sink {
	return &Sink{
		dir:   dir,
		files: make(map[string]*file),
	}
}

// Path returns the file a source resource is written to.
func (s *Sink) Path(sourceID, resource string) string {
	return filepath.Join(s.dir, safeName(sourceID), safeName(resource)+".jsonl")
}

// Write buffers one record as a JSON line.
func (s *Sink) Write(_ context.Context, sourceID, resource string, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	out, err := s.open(sourceID, resource)
	if err != nil {
		return err
	}
	if err := out.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode %s/%s record: %w", sourceID, resource, err)
	}
	return nil
}

// Flush writes buffered lines and syncs every open file to disk.
func (s *Sink) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for path, out := range s.files {
		if err := out.buf.Flush(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("flush %s: %w", path, err))
			continue
		}
		if err := out.f.Sync(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sync %s: %w", path, err))
		}
	}
	return errs
}

// Close flushes and closes every file. Later writes fail with ErrClosed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs error
	for path, out := range s.files {
		if err := out.buf.Flush(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("flush %s: %w", path, err))
		}
		errs = multierr.Append(errs, out.f.Close())
	}
	s.files = nil
	return errs
}

// open returns the writer of a resource file (caller must hold lock).
func (s *Sink) open(sourceID, resource string) (*file, error) {
	path := s.Path(sourceID, resource)
	if out, ok := s.files[path]; ok {
		return out, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	buf := bufio.NewWriterSize(f, bufferSize)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	out := &file{f: f, buf: buf, enc: enc}
	s.files[path] = out
	return out, nil
}

// safeName keeps IDs from escaping the output directory.
func safeName(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
	if s == "" || s == "." {
		return "_"
	}
	return s
}
