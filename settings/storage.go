package settings

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage is the non-volatile storage collaborator. Implementations are
// expected to be slow; the store only touches them from the control loop.
type Storage interface {
	// Load returns the raw persisted record. A missing or unreadable
	// record is reported as an error and treated as absent by the store.
	Load() ([]byte, error)

	// Store persists the raw record.
	Store(data []byte) error
}

// MemStorage is an in-memory Storage, used in tests and as a stand-in when
// no persistence is available. Error fields inject failures.
type MemStorage struct {
	Data []byte

	LoadErr  error
	StoreErr error

	// Writes counts successful Store calls.
	Writes int
}

// Load implements Storage.
func (m *MemStorage) Load() ([]byte, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Data == nil {
		return nil, os.ErrNotExist
	}

	out := make([]byte, len(m.Data))
	copy(out, m.Data)

	return out, nil
}

// Store implements Storage.
func (m *MemStorage) Store(data []byte) error {
	if m.StoreErr != nil {
		return m.StoreErr
	}

	m.Data = make([]byte, len(data))
	copy(m.Data, data)
	m.Writes++

	return nil
}

// FileStorage persists the record to a single file, replacing it atomically
// on write so a power loss never leaves a torn record behind.
type FileStorage struct {
	path string
}

// NewFileStorage returns a Storage backed by the given file path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load implements Storage.
func (f *FileStorage) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("settings: reading %s: %w", f.path, err)
	}

	return data, nil
}

// Store implements Storage. The record is written to a temporary file in
// the same directory and renamed over the target.
func (f *FileStorage) Store(data []byte) error {
	dir := filepath.Dir(f.path)

	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("settings: creating temp file: %w", err)
	}

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("settings: writing temp file: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("settings: closing temp file: %w", err)
	}

	err = os.Rename(tmp.Name(), f.path)
	if err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("settings: replacing %s: %w", f.path, err)
	}

	return nil
}
