package dns

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// Storage abstracts the filesystem operations the resolver backend needs.
// OSStorage touches the real files; MemoryStorage keeps everything in memory
// for tests and simulated runs.
type Storage interface {
	// Open opens name for reading.
	Open(name string) (io.ReadCloser, error)
	// Create opens name for writing, discarding any existing content.
	Create(name string) (io.WriteCloser, error)
	// Append opens name for writing at the end of its current content.
	Append(name string) (io.WriteCloser, error)
	// Exists reports whether name is present.
	Exists(name string) bool
}

// LinkReader is implemented by storages that can report symlink targets.
type LinkReader interface {
	Readlink(name string) (string, error)
}

// OSStorage is the real filesystem.
type OSStorage struct{}

// NewOSStorage returns a Storage backed by the operating system.
func NewOSStorage() *OSStorage {
	return &OSStorage{}
}

// Open opens name read-only.
func (OSStorage) Open(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// Create locks name and truncates it once the lock is held.
func (OSStorage) Create(name string) (io.WriteCloser, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate %s: %w", name, err)
	}
	return f, nil
}

// Append locks name and positions writes at its end.
func (OSStorage) Append(name string) (io.WriteCloser, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}
	return f, nil
}

// Exists reports whether name can be stat'ed.
func (OSStorage) Exists(name string) bool {
	if name == "" {
		return false
	}
	_, err := os.Stat(name)
	return err == nil
}

// Readlink returns the target of the symlink name.
func (OSStorage) Readlink(name string) (string, error) {
	return os.Readlink(name)
}

// MemoryStorage is an in-memory Storage. It is safe for concurrent use.
type MemoryStorage struct {
	mu     sync.Mutex
	files  map[string][]byte
	links  map[string]string
	denied map[string]bool
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		files:  make(map[string][]byte),
		links:  make(map[string]string),
		denied: make(map[string]bool),
	}
}

// Link records name as a symlink to target. Content is still set with Put.
func (m *MemoryStorage) Link(name, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[name] = target
}

func (m *MemoryStorage) Readlink(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.links[name]
	if !ok {
		return "", &fs.PathError{Op: "readlink", Path: name, Err: fs.ErrInvalid}
	}
	return target, nil
}

// Put sets the content of name.
func (m *MemoryStorage) Put(name string, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = []byte(data)
}

// Contents returns the content of name and whether it exists.
func (m *MemoryStorage) Contents(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return string(data), ok
}

// Remove deletes name.
func (m *MemoryStorage) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
}

// Deny makes every open of name fail with fs.ErrPermission.
func (m *MemoryStorage) Deny(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[name] = true
}

// Allow reverts Deny.
func (m *MemoryStorage) Allow(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.denied, name)
}

func (m *MemoryStorage) Open(name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denied[name] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

func (m *MemoryStorage) Create(name string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denied[name] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	m.files[name] = nil
	return &memoryFile{storage: m, name: name}, nil
}

func (m *MemoryStorage) Append(name string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denied[name] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	if _, ok := m.files[name]; !ok {
		m.files[name] = nil
	}
	return &memoryFile{storage: m, name: name}, nil
}

func (m *MemoryStorage) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

// memoryFile appends every write straight into the owning storage.
type memoryFile struct {
	storage *MemoryStorage
	name    string
	closed  bool
}

func (f *memoryFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	f.storage.mu.Lock()
	defer f.storage.mu.Unlock()
	f.storage.files[f.name] = append(f.storage.files[f.name], p...)
	return len(p), nil
}

func (f *memoryFile) Close() error {
	if f.closed {
		return fs.ErrClosed
	}
	f.closed = true
	return nil
}
