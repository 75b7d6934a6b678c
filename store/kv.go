package store

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// KV is the opaque durable store the rest of the system persists through.
// Values are whole JSON documents read and replaced atomically per key.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

var unsafeKeyRe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// FileKV keeps each key as a file under a data directory.
type FileKV struct {
	dir string
}

func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileKV{dir: dir}, nil
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, unsafeKeyRe.ReplaceAllString(key, "_")+".json")
}

func (f *FileKV) Get(key string) (string, bool, error) {
	b, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (f *FileKV) Set(key, value string) error {
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(key))
}

// MemKV is an in-memory KV used in tests.
type MemKV struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemKV() *MemKV {
	return &MemKV{m: make(map[string]string)}
}

func (m *MemKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	return v, ok, nil
}

func (m *MemKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = value
	return nil
}
