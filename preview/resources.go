package preview

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// TempPrefix marks temporary resources so sweeps only touch our own files
const TempPrefix = "docpreview-"

// ResourceManager hands out per-attempt scopes for ephemeral handles
// (temporary document files, embedding surfaces) and counts the live ones.
type ResourceManager struct {
	dir    string
	logger *slog.Logger
	live   atomic.Int64
}

// NewResourceManager keeps temporary files in dir (os.TempDir when empty)
func NewResourceManager(dir string, logger *slog.Logger) *ResourceManager {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceManager{dir: dir, logger: logger}
}

// Dir is where temporary resources are written
func (m *ResourceManager) Dir() string { return m.dir }

// Live is the number of handles acquired and not yet released
func (m *ResourceManager) Live() int64 { return m.live.Load() }

// Scope starts a new ownership scope. The caller must Release it.
func (m *ResourceManager) Scope() *Scope {
	return &Scope{manager: m}
}

// Sweep removes temporary files older than maxAge, left behind by a crashed
// process. It returns how many were removed.
func (m *ResourceManager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), TempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("Swept stale temporary resources", "dir", m.dir, "removed", removed)
	}
	return removed, errors.Join(errs...)
}

type handle struct {
	kind    string
	name    string
	release func() error
}

// Scope owns the handles of one strategy attempt. Release frees them in
// reverse order of acquisition and is safe to call more than once.
type Scope struct {
	manager *ResourceManager
	mu      sync.Mutex
	handles []handle
}

// Track registers a handle and the function that frees it
func (s *Scope) Track(kind, name string, release func() error) {
	s.mu.Lock()
	s.handles = append(s.handles, handle{kind: kind, name: name, release: release})
	s.mu.Unlock()
	s.manager.live.Add(1)
}

// TempFile writes data to a new temporary file and returns its path and file URI.
// The file is removed when the scope is released.
func (s *Scope) TempFile(data []byte, ext string) (string, string, error) {
	f, err := os.CreateTemp(s.manager.dir, TempPrefix+"*"+ext)
	if err != nil {
		return "", "", fmt.Errorf("create temporary resource: %w", err)
	}
	path := f.Name()
	s.Track("tempfile", path, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	})
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", "", fmt.Errorf("write temporary resource: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("close temporary resource: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	uri := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return path, uri.String(), nil
}

// Len is the number of handles still held
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Release frees every handle, last acquired first
func (s *Scope) Release() error {
	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	var errs []error
	for i := len(handles) - 1; i >= 0; i-- {
		h := handles[i]
		if err := h.release(); err != nil {
			s.manager.logger.Warn("Failed to release resource", "kind", h.kind, "name", h.name, "error", err)
			errs = append(errs, fmt.Errorf("release %s %s: %w", h.kind, h.name, err))
		}
		s.manager.live.Add(-1)
	}
	return errors.Join(errs...)
}
