package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"todo-engine/internal/model"
)

// BackupVersion identifies the backup envelope format.
const BackupVersion = "1"

// WarnPercentage is the usage at which StorageInfo flags a warning.
const WarnPercentage = 80.0

// Info reports capacity usage of the active adapter.
type Info struct {
	Backend    string  `json:"backend" example:"file"`
	Used       int64   `json:"used" example:"20480"`
	Quota      int64   `json:"quota" example:"10485760"`
	Percentage float64 `json:"percentage" example:"0.2"`
	Warning    bool    `json:"warning"`
}

// Backup is a snapshot of every namespaced key.
type Backup struct {
	Version       string                     `json:"version"`
	SchemaVersion string                     `json:"schema_version"`
	CreatedAt     time.Time                  `json:"created_at"`
	Data          map[string]json.RawMessage `json:"data"`
}

// backupShapes lists every key a backup may carry, with a constructor for
// the type its value must decode into.
var backupShapes = map[string]func() any{
	KeyTodos:         func() any { return new([]model.TodoItem) },
	KeyCategories:    func() any { return new([]model.Category) },
	KeyPreferences:   func() any { return new(model.Preferences) },
	KeyStatistics:    func() any { return new(map[string]json.RawMessage) },
	KeySchemaVersion: func() any { return new(string) },
	KeyBackup:        func() any { return new(map[string]json.RawMessage) },
	KeyBackupDate:    func() any { return new(time.Time) },
}

// checkBackupValue reports whether value is a well-formed entry for key.
func checkBackupValue(key string, value json.RawMessage) error {
	shape, ok := backupShapes[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidBackup, key)
	}
	if err := json.Unmarshal(value, shape()); err != nil {
		return fmt.Errorf("%w: key %q: %v", ErrInvalidBackup, key, err)
	}
	return nil
}

// Option configures a Service.
type Option func(*Service)

// WithCompressThreshold sets the payload size above which values are compressed.
func WithCompressThreshold(n int) Option {
	return func(s *Service) { s.threshold = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service layers a read-through, write-through cache over an Adapter and
// stores values as JSON.
type Service struct {
	adapter   Adapter
	logger    *slog.Logger
	threshold int
	now       func() time.Time

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewService wraps adapter.
func NewService(adapter Adapter, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		adapter:   adapter,
		logger:    logger,
		threshold: DefaultCompressThreshold,
		now:       time.Now,
		cache:     make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the name of the underlying adapter.
func (s *Service) Backend() string {
	return s.adapter.Name()
}

// EnsureSchema records SchemaVersion if no version is stored yet.
func (s *Service) EnsureSchema(ctx context.Context) error {
	var version string
	found, err := s.Get(ctx, KeySchemaVersion, &version)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	return s.Set(ctx, KeySchemaVersion, SchemaVersion)
}

// Get decodes the value stored at key into dst. It reports false when the
// key is absent or its content is unreadable.
func (s *Service) Get(ctx context.Context, key string, dst any) (bool, error) {
	payload, found, err := s.payload(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		s.logger.Warn("corrupt value treated as absent",
			slog.String("key", key), slog.String("error", err.Error()))
		s.forget(key)
		return false, nil
	}
	return true, nil
}

func (s *Service) payload(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached, true, nil
	}

	raw, found, err := s.adapter.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("storage get %s: %w", key, err)
	}
	if !found {
		return nil, false, nil
	}
	payload, err := decodeRecord(raw)
	if err != nil || !json.Valid(payload) {
		if err == nil {
			err = fmt.Errorf("payload is not valid JSON")
		}
		s.logger.Warn("corrupt value treated as absent",
			slog.String("key", key), slog.String("error", err.Error()))
		return nil, false, nil
	}

	s.mu.Lock()
	s.cache[key] = payload
	s.mu.Unlock()
	return payload, true, nil
}

// Set encodes value as JSON and writes it to the adapter and the cache.
// On error neither is modified.
func (s *Service) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	raw, err := encodeRecord(payload, s.threshold)
	if err != nil {
		return err
	}
	if err := s.adapter.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("storage set %s: %w", key, err)
	}

	s.mu.Lock()
	s.cache[key] = payload
	s.mu.Unlock()
	return nil
}

// Remove deletes key from the adapter and the cache.
func (s *Service) Remove(ctx context.Context, key string) error {
	if err := s.adapter.Remove(ctx, key); err != nil {
		return fmt.Errorf("storage remove %s: %w", key, err)
	}
	s.forget(key)
	return nil
}

// Clear removes every namespaced key.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.adapter.Clear(ctx); err != nil {
		return fmt.Errorf("storage clear: %w", err)
	}
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}

func (s *Service) forget(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}

// StorageInfo reports usage of the active adapter.
func (s *Service) StorageInfo(ctx context.Context) (Info, error) {
	used, err := s.adapter.Size(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("storage size: %w", err)
	}
	info := Info{Backend: s.adapter.Name(), Used: used, Quota: s.adapter.Quota()}
	if info.Quota > 0 {
		info.Percentage = math.Round(float64(used)/float64(info.Quota)*10000) / 100
	}
	info.Warning = info.Percentage >= WarnPercentage
	return info, nil
}

// CreateBackup snapshots every namespaced key except previous backups.
func (s *Service) CreateBackup(ctx context.Context) ([]byte, error) {
	keys, err := s.adapter.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	backup := Backup{
		Version:       BackupVersion,
		SchemaVersion: SchemaVersion,
		CreatedAt:     s.now().UTC(),
		Data:          make(map[string]json.RawMessage, len(keys)),
	}
	for _, key := range keys {
		if key == KeyBackup || key == KeyBackupDate {
			continue
		}
		payload, found, err := s.payload(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			backup.Data[key] = json.RawMessage(payload)
		}
	}

	blob, err := json.Marshal(backup)
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	return blob, nil
}

// SaveBackup stores a fresh snapshot under KeyBackup and its timestamp
// under KeyBackupDate.
func (s *Service) SaveBackup(ctx context.Context) (time.Time, error) {
	blob, err := s.CreateBackup(ctx)
	if err != nil {
		return time.Time{}, err
	}
	at := s.now().UTC()
	if err := s.Set(ctx, KeyBackup, json.RawMessage(blob)); err != nil {
		return time.Time{}, err
	}
	if err := s.Set(ctx, KeyBackupDate, at); err != nil {
		return time.Time{}, err
	}
	s.logger.Info("backup saved", slog.Int("bytes", len(blob)))
	return at, nil
}

// RestoreBackup replaces every namespaced key with the contents of blob.
// The blob is fully validated and encoded before any key is written; a
// stored backup snapshot survives the restore.
func (s *Service) RestoreBackup(ctx context.Context, blob []byte) error {
	var backup Backup
	if err := json.Unmarshal(blob, &backup); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if backup.Version == "" || backup.Data == nil {
		return fmt.Errorf("%w: missing version or data", ErrInvalidBackup)
	}

	payloads := make(map[string][]byte, len(backup.Data)+2)
	for key, value := range backup.Data {
		if err := checkBackupValue(key, value); err != nil {
			return err
		}
		payloads[key] = []byte(value)
	}
	for _, key := range []string{KeyBackup, KeyBackupDate} {
		if _, ok := payloads[key]; ok {
			continue
		}
		payload, found, err := s.payload(ctx, key)
		if err != nil {
			return err
		}
		if found {
			payloads[key] = payload
		}
	}

	entries := make(map[string][]byte, len(payloads))
	for key, payload := range payloads {
		raw, err := encodeRecord(payload, s.threshold)
		if err != nil {
			return err
		}
		entries[key] = raw
	}
	if err := s.adapter.Replace(ctx, entries); err != nil {
		return fmt.Errorf("storage replace: %w", err)
	}

	s.mu.Lock()
	s.cache = payloads
	s.mu.Unlock()
	s.logger.Info("backup restored", slog.Int("keys", len(backup.Data)))
	return nil
}
