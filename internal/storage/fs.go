package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Scratch is a Workspace backed by a fresh temp directory.
type Scratch struct{ base string }

var _ Workspace = (*Scratch)(nil)

// NewScratch creates a uniquely named directory under parent (os.TempDir()
// when empty). Callers must defer Close.
func NewScratch(parent, prefix string) (*Scratch, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o700); err != nil {
			return nil, err
		}
	}
	if prefix == "" {
		prefix = "scratch-"
	}
	dir, err := os.MkdirTemp(parent, prefix+"*")
	if err != nil {
		return nil, err
	}
	return &Scratch{base: dir}, nil
}

func (s *Scratch) Dir() string { return s.base }

func (s *Scratch) Put(name string, r io.Reader) (string, error) {
	if name == "" {
		return "", errors.New("empty name")
	}
	dst := s.resolve(name)
	if !strings.HasPrefix(dst, s.base+string(filepath.Separator)) {
		return "", errors.New("name escapes workspace")
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return dst, nil
}

// resolve confines name to the workspace.
func (s *Scratch) resolve(name string) string {
	return filepath.Join(s.base, filepath.Clean("/"+name))
}

// Close removes the workspace and everything in it. Safe to call twice.
func (s *Scratch) Close() error {
	if s == nil || s.base == "" {
		return nil
	}
	return os.RemoveAll(s.base)
}
