package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileSource reads a configuration JSON document from disk, e.g. a bootstrap
// file or an export taken from the configuration service.
type FileSource struct {
	path     string
	logger   *slog.Logger
	lastETag string
}

// NewFileSource creates a file-based configuration source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{path: path, logger: logger}
}

// Fetch reads the file and returns its contents. The ETag is a content hash,
// so an unchanged file yields ErrNotModified.
func (s *FileSource) Fetch(ctx context.Context) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read configuration file %q: %w", s.path, err)
	}
	sum := sha256.Sum256(body)
	etag := hex.EncodeToString(sum[:])
	if etag == s.lastETag {
		return nil, ErrNotModified
	}
	s.lastETag = etag
	return &Payload{Body: body, ETag: etag}, nil
}

// Watch emits a hint whenever the file is written, created or renamed.
// Watching the parent directory survives the replace-by-rename pattern
// editors and config rollers use.
func (s *FileSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", dir, err)
	}

	hints := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		defer close(hints)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case hints <- struct{}{}:
				default: // a refresh is already pending
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("file watch error", "path", s.path, "error", err)
			}
		}
	}()
	return hints, nil
}
