package tokencache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chukul/sessionctl/internal/crypto"
)

// Backend persists the full cache map. Save replaces the stored state
// wholesale; Delete removes it entirely.
type Backend interface {
	Load() (map[string]Entry, error)
	Save(entries map[string]Entry) error
	Delete() error
}

// FileBackend stores the cache as a plain JSON map. This is the on-disk
// contract other tooling may read.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Load() (map[string]Entry, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Entry{}, nil
		}
		return nil, err
	}
	return decodeEntries(data)
}

func (b *FileBackend) Save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0600)
}

func (b *FileBackend) Delete() error {
	err := os.Remove(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// EncryptedFileBackend seals the JSON map with AES-GCM before writing.
// Opt-in; the key comes from the keychain or SESSIONCTL_SECRET.
type EncryptedFileBackend struct {
	path string
	key  []byte
}

func NewEncryptedFileBackend(path string, key []byte) *EncryptedFileBackend {
	return &EncryptedFileBackend{path: path, key: key}
}

func (b *EncryptedFileBackend) Load() (map[string]Entry, error) {
	sealed, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Entry{}, nil
		}
		return nil, err
	}
	data, err := crypto.Decrypt(sealed, b.key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token cache: %w", err)
	}
	return decodeEntries(data)
}

func (b *EncryptedFileBackend) Save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	sealed, err := crypto.Encrypt(data, b.key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(b.path, sealed, 0600)
}

func (b *EncryptedFileBackend) Delete() error {
	err := os.Remove(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryBackend keeps the cache in memory only. Test helper.
type MemoryBackend struct {
	entries map[string]Entry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]Entry{}}
}

func (b *MemoryBackend) Load() (map[string]Entry, error) {
	out := make(map[string]Entry, len(b.entries))
	for k, v := range b.entries {
		out[k] = v
	}
	return out, nil
}

func (b *MemoryBackend) Save(entries map[string]Entry) error {
	out := make(map[string]Entry, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	b.entries = out
	return nil
}

func (b *MemoryBackend) Delete() error {
	b.entries = map[string]Entry{}
	return nil
}

func decodeEntries(data []byte) (map[string]Entry, error) {
	entries := map[string]Entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse token cache: %w", err)
	}
	return entries, nil
}
