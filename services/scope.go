package services

import (
	"path/filepath"
	"strings"
	"sync"
)

// Scope is the set of files the UI may read through the backend:
// individually allowed files plus everything under the library roots.
type Scope struct {
	mu    sync.RWMutex
	files map[string]struct{}
	roots []string
}

// NewScope creates an empty scope
func NewScope() *Scope {
	return &Scope{
		files: make(map[string]struct{}),
	}
}

// Allow adds files to the scope and returns the normalized paths that were added
func (s *Scope) Allow(paths ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, ok := normalizePath(p)
		if !ok {
			continue
		}
		s.files[abs] = struct{}{}
		allowed = append(allowed, abs)
	}
	return allowed
}

// SetRoots replaces the library roots
func (s *Scope) SetRoots(dirs []string) {
	roots := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if abs, ok := normalizePath(d); ok {
			roots = append(roots, abs)
		}
	}

	s.mu.Lock()
	s.roots = roots
	s.mu.Unlock()
}

// Allows reports whether path is an allowed file or lies under a root
func (s *Scope) Allows(path string) bool {
	abs, ok := normalizePath(path)
	if !ok {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[abs]; ok {
		return true
	}
	for _, root := range s.roots {
		if within(root, abs) {
			return true
		}
	}
	return false
}

func normalizePath(p string) (string, bool) {
	if strings.TrimSpace(p) == "" {
		return "", false
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	return filepath.Clean(abs), true
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
