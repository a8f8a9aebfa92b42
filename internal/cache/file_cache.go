// Package cache keeps JSON snapshots of expensive intermediate results on
// disk, one file per key.
package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type entry struct {
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	Checksum  string          `json:"checksum"`
}

// FileCache stores values of type T under dir. An entry whose checksum does
// not match its payload is reported as a miss.
type FileCache[T any] struct {
	dir string
}

func NewFileCache[T any](dir string) *FileCache[T] {
	return &FileCache[T]{dir: dir}
}

// Key hashes params into a file-name-safe key.
func Key(params ...any) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%v", p)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "_")))
	return hex.EncodeToString(sum[:])
}

func (fc *FileCache[T]) Get(key string) (T, time.Time, bool) {
	var zero T
	raw, err := os.ReadFile(fc.path(key))
	if err != nil {
		return zero, time.Time{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return zero, time.Time{}, false
	}
	if e.Checksum != checksum(e.Data) {
		return zero, time.Time{}, false
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, time.Time{}, false
	}
	return v, e.CreatedAt, true
}

// Set writes through a temporary file in the cache directory and renames it
// into place, so readers never see a partial entry.
func (fc *FileCache[T]) Set(key string, v T) error {
	if err := os.MkdirAll(fc.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	raw, err := json.Marshal(entry{Data: data, CreatedAt: time.Now(), Checksum: checksum(data)})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(fc.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fc.path(key)); err != nil {
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}

// Delete removes the entry for key. A missing entry is not an error.
func (fc *FileCache[T]) Delete(key string) error {
	if err := os.Remove(fc.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.dir, key+".json")
}

func checksum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
