package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var durableKinds = []Kind{KindSQLite, KindBadger, KindPebble, KindFile}

// TestRoundTrip verifies Put followed by Get returns the same payload on
// every backend.
func TestRoundTrip(t *testing.T) {
	payload := []byte(`[{"OBJECT_ID":"1998-067A","OBJECT_TYPE":"PAYLOAD"}]`)

	for _, kind := range append(durableKinds, KindMemory) {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			store, err := Open(Options{Kind: kind, Dir: t.TempDir()})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })

			if _, ok, err := store.Get(ctx, KeySpaceDecay); err != nil || ok {
				t.Fatalf("expected miss on empty store, got ok=%v err=%v", ok, err)
			}

			before := time.Now().Add(-time.Second)
			if err := store.Put(ctx, KeySpaceDecay, payload); err != nil {
				t.Fatalf("put: %v", err)
			}

			e, ok, err := store.Get(ctx, KeySpaceDecay)
			if err != nil || !ok {
				t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(e.Data, payload) {
				t.Errorf("data mismatch: got %q, want %q", e.Data, payload)
			}
			if e.Key != KeySpaceDecay {
				t.Errorf("key = %q, want %q", e.Key, KeySpaceDecay)
			}
			if e.Time().Before(before) {
				t.Errorf("timestamp %v predates write", e.Time())
			}
		})
	}
}

// TestOverwrite verifies that a second Put replaces the first.
func TestOverwrite(t *testing.T) {
	for _, kind := range append(durableKinds, KindMemory) {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			store, err := Open(Options{Kind: kind, Dir: t.TempDir()})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })

			if err := store.Put(ctx, KeyCombined, []byte("old")); err != nil {
				t.Fatalf("put: %v", err)
			}
			// File entries are ordered by millisecond timestamps.
			time.Sleep(5 * time.Millisecond)
			if err := store.Put(ctx, KeyCombined, []byte("new")); err != nil {
				t.Fatalf("put: %v", err)
			}

			e, ok, err := store.Get(ctx, KeyCombined)
			if err != nil || !ok {
				t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
			}
			if string(e.Data) != "new" {
				t.Errorf("data = %q, want new", e.Data)
			}
		})
	}
}

// TestPersistsAcrossReopen verifies durable backends keep entries after close.
func TestPersistsAcrossReopen(t *testing.T) {
	for _, kind := range durableKinds {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			store, err := Open(Options{Kind: kind, Dir: dir})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if err := store.Put(ctx, KeyNeuraspace, []byte(`[]`)); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}

			reopened, err := Open(Options{Kind: kind, Dir: dir})
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			t.Cleanup(func() { _ = reopened.Close() })

			e, ok, err := reopened.Get(ctx, KeyNeuraspace)
			if err != nil || !ok {
				t.Fatalf("expected hit after reopen, got ok=%v err=%v", ok, err)
			}
			if string(e.Data) != `[]` {
				t.Errorf("data = %q, want []", e.Data)
			}
		})
	}
}

// TestKeysAreIndependent verifies that keys sharing a prefix do not collide.
func TestKeysAreIndependent(t *testing.T) {
	for _, kind := range append(durableKinds, KindMemory) {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			store, err := Open(Options{Kind: kind, Dir: t.TempDir()})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })

			if err := store.Put(ctx, "space", []byte("a")); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := store.Put(ctx, KeySpaceDecay, []byte("b")); err != nil {
				t.Fatalf("put: %v", err)
			}

			e, ok, err := store.Get(ctx, "space")
			if err != nil || !ok || string(e.Data) != "a" {
				t.Errorf("space: got %q ok=%v err=%v", e.Data, ok, err)
			}
			e, ok, err = store.Get(ctx, KeySpaceDecay)
			if err != nil || !ok || string(e.Data) != "b" {
				t.Errorf("%s: got %q ok=%v err=%v", KeySpaceDecay, e.Data, ok, err)
			}
		})
	}
}

func TestFileStorePrune(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir, 2)

	for i := 0; i < 4; i++ {
		if err := store.Put(ctx, KeyCombined, []byte{byte('0' + i)}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	files, err := filepath.Glob(filepath.Join(dir, KeyCombined+"_*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files after prune, got %d", len(files))
	}

	e, ok, err := store.Get(ctx, KeyCombined)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(e.Data) != "3" {
		t.Errorf("data = %q, want 3", e.Data)
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	store := NewFileStore(t.TempDir(), 0)
	if err := store.Put(context.Background(), "../escape", []byte("x")); err == nil {
		t.Fatal("expected error for key with path separator")
	}
}

// TestLazyDegradesToNoop verifies that an unopenable store behaves as an
// always-empty cache instead of failing callers.
func TestLazyDegradesToNoop(t *testing.T) {
	ctx := context.Background()
	calls := 0
	lazy := NewLazy(func() (Backend, error) {
		calls++
		return nil, errors.New("disk on fire")
	}, testLogger())

	if err := lazy.Put(ctx, KeyCombined, []byte("x")); err != nil {
		t.Fatalf("put on degraded cache should succeed silently: %v", err)
	}
	if _, ok, err := lazy.Get(ctx, KeyCombined); ok || err != nil {
		t.Fatalf("get on degraded cache: ok=%v err=%v", ok, err)
	}
	if calls != 1 {
		t.Errorf("opener called %d times, want 1", calls)
	}
	if !errors.Is(lazy.Err(), ErrCacheUnavailable) {
		t.Errorf("Err() = %v, want ErrCacheUnavailable", lazy.Err())
	}
	if err := lazy.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestLazyOpensOnFirstUse(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	lazy := NewLazy(func() (Backend, error) {
		return Open(Options{Kind: KindSQLite, Dir: dir})
	}, testLogger())
	t.Cleanup(func() { _ = lazy.Close() })

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("cache dir should not exist before first use, stat err=%v", err)
	}

	if err := lazy.Put(ctx, KeyCombined, []byte("[]")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cache.db")); err != nil {
		t.Errorf("expected cache.db to be created: %v", err)
	}
	if lazy.Err() != nil {
		t.Errorf("unexpected Err(): %v", lazy.Err())
	}
}

func TestLazyUnopenableDir(t *testing.T) {
	// A regular file where the cache directory should be.
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lazy := NewLazy(func() (Backend, error) {
		return Open(Options{Kind: KindSQLite, Dir: filepath.Join(blocker, "cache")})
	}, testLogger())

	if _, ok, err := lazy.Get(context.Background(), KeyCombined); ok || err != nil {
		t.Fatalf("expected silent miss, got ok=%v err=%v", ok, err)
	}
	if !errors.Is(lazy.Err(), ErrCacheUnavailable) {
		t.Errorf("Err() = %v, want ErrCacheUnavailable", lazy.Err())
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"sqlite", "BADGER", " pebble ", "file", "memory"} {
		if _, err := ParseKind(s); err != nil {
			t.Errorf("ParseKind(%q): %v", s, err)
		}
	}
	if _, err := ParseKind("redis"); err == nil {
		t.Error("expected error for unknown backend")
	}
}
