package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type adapterCase struct {
	name string
	open func(t *testing.T, quota int64) Adapter
}

func adapterCases() []adapterCase {
	return []adapterCase{
		{"memory", func(t *testing.T, quota int64) Adapter {
			return NewMemoryAdapter(quota)
		}},
		{"file", func(t *testing.T, quota int64) Adapter {
			return NewFileAdapter(t.TempDir(), quota)
		}},
		{"sqlite", func(t *testing.T, quota int64) Adapter {
			return openSQLite(t, quota)
		}},
	}
}

func openSQLite(t *testing.T, quota int64) *SQLiteAdapter {
	t.Helper()
	a, err := NewSQLiteAdapter(filepath.Join(t.TempDir(), "todos.db"), quota, discardLogger())
	if err != nil {
		t.Fatalf("NewSQLiteAdapter() error: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAdapterSetGetRemove(t *testing.T) {
	ctx := context.Background()
	for _, tc := range adapterCases() {
		t.Run(tc.name, func(t *testing.T) {
			a := tc.open(t, 0)
			if !a.Available(ctx) {
				t.Fatal("adapter not available")
			}

			if _, found, err := a.Get(ctx, "missing"); err != nil || found {
				t.Fatalf("Get(missing) = found %v, err %v", found, err)
			}

			if err := a.Set(ctx, "todos", []byte("one")); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			if err := a.Set(ctx, "todos", []byte("two")); err != nil {
				t.Fatalf("Set() overwrite error: %v", err)
			}
			got, found, err := a.Get(ctx, "todos")
			if err != nil || !found || !bytes.Equal(got, []byte("two")) {
				t.Fatalf("Get(todos) = %q, %v, %v; want two", got, found, err)
			}

			size, err := a.Size(ctx)
			if err != nil {
				t.Fatalf("Size() error: %v", err)
			}
			if want := int64(len(Namespace+"todos") + 3); size != want {
				t.Errorf("Size() = %d, want %d", size, want)
			}

			if err := a.Remove(ctx, "todos"); err != nil {
				t.Fatalf("Remove() error: %v", err)
			}
			if err := a.Remove(ctx, "todos"); err != nil {
				t.Fatalf("Remove() of missing key error: %v", err)
			}
			if _, found, _ := a.Get(ctx, "todos"); found {
				t.Error("key still present after Remove")
			}
		})
	}
}

func TestAdapterQuota(t *testing.T) {
	ctx := context.Background()
	for _, tc := range adapterCases() {
		t.Run(tc.name, func(t *testing.T) {
			a := tc.open(t, 64)
			if err := a.Set(ctx, "k", []byte("small")); err != nil {
				t.Fatalf("Set() error: %v", err)
			}

			err := a.Set(ctx, "k", bytes.Repeat([]byte("x"), 100))
			if !errors.Is(err, ErrQuotaExceeded) {
				t.Fatalf("Set() over quota error = %v, want ErrQuotaExceeded", err)
			}
			got, _, _ := a.Get(ctx, "k")
			if string(got) != "small" {
				t.Errorf("value after failed Set = %q, want small", got)
			}
			if a.Quota() != 64 {
				t.Errorf("Quota() = %d, want 64", a.Quota())
			}
		})
	}
}

func TestAdapterReplaceAndClear(t *testing.T) {
	ctx := context.Background()
	for _, tc := range adapterCases() {
		t.Run(tc.name, func(t *testing.T) {
			a := tc.open(t, 0)
			for _, k := range []string{"a", "b"} {
				if err := a.Set(ctx, k, []byte(k)); err != nil {
					t.Fatalf("Set(%s) error: %v", k, err)
				}
			}

			if err := a.Replace(ctx, map[string][]byte{"b": []byte("B"), "c": []byte("C")}); err != nil {
				t.Fatalf("Replace() error: %v", err)
			}
			keys, err := a.Keys(ctx)
			if err != nil {
				t.Fatalf("Keys() error: %v", err)
			}
			if !slices.Equal(keys, []string{"b", "c"}) {
				t.Errorf("Keys() after Replace = %v, want [b c]", keys)
			}
			if got, _, _ := a.Get(ctx, "b"); string(got) != "B" {
				t.Errorf("Get(b) = %q, want B", got)
			}

			if err := a.Clear(ctx); err != nil {
				t.Fatalf("Clear() error: %v", err)
			}
			keys, _ = a.Keys(ctx)
			if len(keys) != 0 {
				t.Errorf("Keys() after Clear = %v, want none", keys)
			}
		})
	}
}

func TestAdapterReplaceOverQuotaKeepsData(t *testing.T) {
	ctx := context.Background()
	for _, tc := range adapterCases() {
		t.Run(tc.name, func(t *testing.T) {
			a := tc.open(t, 64)
			if err := a.Set(ctx, "a", []byte("keep")); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			err := a.Replace(ctx, map[string][]byte{"a": bytes.Repeat([]byte("x"), 100)})
			if !errors.Is(err, ErrQuotaExceeded) {
				t.Fatalf("Replace() error = %v, want ErrQuotaExceeded", err)
			}
			if got, _, _ := a.Get(ctx, "a"); string(got) != "keep" {
				t.Errorf("Get(a) = %q, want keep", got)
			}
		})
	}
}

func TestFileAdapterClearLeavesForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	foreign := filepath.Join(dir, "other_app_settings")
	if err := os.WriteFile(foreign, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := NewFileAdapter(dir, 0)
	if err := a.Set(ctx, "todos", []byte("[]")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("foreign file removed by Clear: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, Namespace+"todos")); !os.IsNotExist(err) {
		t.Errorf("namespaced file survived Clear: %v", err)
	}
}

func TestFileAdapterRejectsPathKeys(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	a := NewFileAdapter(filepath.Join(root, "data"), 0)

	for _, key := range []string{"", "..", "x/../../escaped", `x\y`, "a..b"} {
		if err := a.Set(ctx, key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Set(%q) error = %v, want ErrInvalidKey", key, err)
		}
		if _, _, err := a.Get(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Get(%q) error = %v, want ErrInvalidKey", key, err)
		}
		if err := a.Remove(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Remove(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
	if err := a.Replace(ctx, map[string][]byte{"x/../../escaped": []byte("x")}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Replace() error = %v, want ErrInvalidKey", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escaped")); !os.IsNotExist(err) {
		t.Errorf("file written outside the storage dir: %v", err)
	}
}

func TestSQLiteAdapterClearLeavesForeignRows(t *testing.T) {
	ctx := context.Background()
	a := openSQLite(t, 0)
	if _, err := a.db.Exec(`INSERT INTO kv (key, value) VALUES ('other_app_key', x'01')`); err != nil {
		t.Fatal(err)
	}
	if err := a.Set(ctx, "todos", []byte("[]")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	keys, err := a.Keys(ctx)
	if err != nil || !slices.Equal(keys, []string{"todos"}) {
		t.Fatalf("Keys() = %v, %v; want [todos]", keys, err)
	}
	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	var n int
	if err := a.db.QueryRow(`SELECT count(*) FROM kv`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("rows after Clear = %d, want 1 foreign row", n)
	}
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryAdapter(0)
	fallback := NewMemoryAdapter(0)

	got, err := Select(ctx, discardLogger(), primary, fallback)
	if err != nil || got != Adapter(primary) {
		t.Fatalf("Select() = %v, %v; want primary", got, err)
	}

	primary.SetAvailable(false)
	got, err = Select(ctx, discardLogger(), primary, fallback)
	if err != nil || got != Adapter(fallback) {
		t.Fatalf("Select() = %v, %v; want fallback", got, err)
	}

	fallback.SetAvailable(false)
	if _, err := Select(ctx, discardLogger(), primary, fallback); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Select() error = %v, want ErrUnavailable", err)
	}
}
