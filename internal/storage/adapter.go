// Package storage persists the engine's state behind a narrow key-value
// Adapter and layers caching, compression and backups on top of it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrQuotaExceeded is returned when a write would exceed the adapter's capacity.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrUnavailable is returned when no adapter can be used.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrInvalidBackup is returned when a backup blob cannot be restored.
	ErrInvalidBackup = errors.New("invalid backup")

	// ErrInvalidKey is returned for keys that cannot name a single entry
	// inside the namespace.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Namespace prefixes every key the engine writes. Clear only touches keys
// carrying it.
const Namespace = "todo_app_"

// Logical keys of the persisted layout.
const (
	KeyTodos         = "todos"
	KeyCategories    = "categories"
	KeyPreferences   = "preferences"
	KeyStatistics    = "statistics"
	KeyBackup        = "backup"
	KeyBackupDate    = "backup_date"
	KeySchemaVersion = "schema_version"
)

// SchemaVersion is written on first open for future migration gating.
const SchemaVersion = "1.0.0"

// Default capacities of the bundled adapters.
const (
	PrimaryQuota  int64 = 10 << 20
	FallbackQuota int64 = 50 << 20
)

// Adapter is a namespaced key-value substrate. Keys passed in are logical
// (unprefixed); implementations apply Namespace themselves.
type Adapter interface {
	// Name identifies the backend in logs and storage info.
	Name() string

	// Available probes whether the backend can be used.
	Available(ctx context.Context) bool

	// Get returns the stored bytes and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. It returns ErrQuotaExceeded if the
	// namespace would grow beyond Quota.
	Set(ctx context.Context, key string, value []byte) error

	// Replace atomically swaps every namespaced key for entries.
	Replace(ctx context.Context, entries map[string][]byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Clear removes every namespaced key and nothing else.
	Clear(ctx context.Context) error

	// Keys lists the logical keys currently stored.
	Keys(ctx context.Context) ([]string, error)

	// Size returns the bytes used by namespaced keys and values.
	Size(ctx context.Context) (int64, error)

	// Quota returns the capacity in bytes.
	Quota() int64
}

// Select returns primary when it reports available, otherwise fallback.
func Select(ctx context.Context, logger *slog.Logger, primary, fallback Adapter) (Adapter, error) {
	if primary != nil && primary.Available(ctx) {
		logger.Info("storage adapter selected", slog.String("backend", primary.Name()))
		return primary, nil
	}
	if fallback != nil && fallback.Available(ctx) {
		attrs := []any{slog.String("backend", fallback.Name())}
		if primary != nil {
			attrs = append(attrs, slog.String("unavailable", primary.Name()))
		}
		logger.Warn("primary storage unavailable, using fallback", attrs...)
		return fallback, nil
	}
	return nil, ErrUnavailable
}

func namespaced(key string) string {
	return Namespace + key
}

// checkKey rejects empty keys and keys that could address a path outside
// the namespace.
func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func logicalKey(name string) (string, bool) {
	if !strings.HasPrefix(name, Namespace) {
		return "", false
	}
	return strings.TrimPrefix(name, Namespace), true
}

func entrySize(key string, value []byte) int64 {
	return int64(len(namespaced(key)) + len(value))
}

func checkQuota(used, quota int64) error {
	if quota > 0 && used > quota {
		return fmt.Errorf("%w: %d bytes > %d", ErrQuotaExceeded, used, quota)
	}
	return nil
}
