package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileAdapter is the synchronous primary backend: one file per key in a
// directory, written atomically through a temp file and rename.
type FileAdapter struct {
	mu    sync.Mutex
	dir   string
	quota int64
}

// NewFileAdapter creates an adapter rooted at dir.
func NewFileAdapter(dir string, quota int64) *FileAdapter {
	if quota <= 0 {
		quota = PrimaryQuota
	}
	return &FileAdapter{dir: dir, quota: quota}
}

func (f *FileAdapter) Name() string { return "file" }

// Available checks that the directory exists and is writable.
func (f *FileAdapter) Available(context.Context) bool {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(f.dir, ".probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name) == nil
}

func (f *FileAdapter) path(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, namespaced(key)), nil
}

func (f *FileAdapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

func (f *FileAdapter) Set(_ context.Context, key string, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	used, err := f.sizeLocked()
	if err != nil {
		return err
	}
	used += entrySize(key, value)
	if old, err := os.Stat(path); err == nil {
		used -= int64(len(namespaced(key))) + old.Size()
	}
	if err := checkQuota(used, f.quota); err != nil {
		return err
	}
	return f.writeLocked(key, path, value)
}

// Replace stages every entry in temp files before touching existing keys,
// so a failed stage leaves the namespace unchanged.
func (f *FileAdapter) Replace(_ context.Context, entries map[string][]byte) error {
	var used int64
	for k, v := range entries {
		if err := checkKey(k); err != nil {
			return err
		}
		used += entrySize(k, v)
	}
	if err := checkQuota(used, f.quota); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	staged := make(map[string]string, len(entries))
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}
	for k, v := range entries {
		tmp, err := f.stage(v)
		if err != nil {
			cleanup()
			return err
		}
		staged[k] = tmp
	}

	existing, err := f.keysLocked()
	if err != nil {
		cleanup()
		return err
	}
	for _, k := range existing {
		if _, keep := entries[k]; keep {
			continue
		}
		if err := f.removeLocked(k); err != nil {
			cleanup()
			return err
		}
	}
	for k, tmp := range staged {
		path, _ := f.path(k)
		if err := os.Rename(tmp, path); err != nil {
			cleanup()
			return fmt.Errorf("rename %s: %w", k, err)
		}
		delete(staged, k)
	}
	return nil
}

func (f *FileAdapter) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removeLocked(key)
}

func (f *FileAdapter) removeLocked(key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (f *FileAdapter) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys, err := f.keysLocked()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := f.removeLocked(k); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileAdapter) Keys(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keysLocked()
}

func (f *FileAdapter) Size(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sizeLocked()
}

func (f *FileAdapter) Quota() int64 { return f.quota }

func (f *FileAdapter) keysLocked() ([]string, error) {
	dirEntries, err := os.ReadDir(f.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}
	var keys []string
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		if k, ok := logicalKey(e.Name()); ok && checkKey(k) == nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FileAdapter) sizeLocked() (int64, error) {
	keys, err := f.keysLocked()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, k := range keys {
		path, err := f.path(k)
		if err != nil {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		total += int64(len(namespaced(k))) + info.Size()
	}
	return total, nil
}

func (f *FileAdapter) stage(value []byte) (string, error) {
	tmp, err := os.CreateTemp(f.dir, ".stage-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	_, err = tmp.Write(value)
	if err1 := tmp.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		os.Remove(name)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return name, nil
}

func (f *FileAdapter) writeLocked(key, path string, value []byte) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	tmp, err := f.stage(value)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}
