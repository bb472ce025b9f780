// Package cache provides a durable, process-local key/value store used to keep
// raw source payloads and the canonical dataset across restarts.
//
// Values are opaque bytes stamped with their write time. Several backends are
// available; all of them are opened through Lazy, which establishes the store
// on first use and degrades to a no-op when it cannot be opened.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Well-known keys.
const (
	KeySpaceDecay = "space_decay_data"
	KeyNeuraspace = "neuraspace_data"
	KeyCombined   = "combined_normalized_data"
)

// ErrCacheUnavailable is reported when the backing store cannot be opened.
var ErrCacheUnavailable = errors.New("cache unavailable")

// Entry is one persisted record.
type Entry struct {
	Key  string `json:"key"`
	Data []byte `json:"data"`
	// Timestamp is the write time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Time returns the entry's write time.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Store is the read/write contract used by the loader.
// A missing key is reported as ok == false with a nil error.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Backend is a Store that owns resources.
type Backend interface {
	Store
	io.Closer
}

// Kind names a backend implementation.
type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindBadger Kind = "badger"
	KindPebble Kind = "pebble"
	KindFile   Kind = "file"
	KindMemory Kind = "memory"
)

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSQLite, KindBadger, KindPebble, KindFile, KindMemory:
		return k, nil
	default:
		return "", fmt.Errorf("unknown cache backend %q", s)
	}
}

// Options configures Open.
type Options struct {
	Kind Kind
	Dir  string
	// MaxFiles bounds the number of files kept per key by the file backend.
	MaxFiles int
}

// Open opens or creates the backend described by opts.
func Open(opts Options) (Backend, error) {
	if opts.Kind != KindMemory && strings.TrimSpace(opts.Dir) == "" {
		return nil, fmt.Errorf("cache dir is required for %s backend", opts.Kind)
	}
	switch opts.Kind {
	case KindSQLite:
		return OpenSQLite(opts.Dir)
	case KindBadger:
		return OpenBadger(opts.Dir)
	case KindPebble:
		return OpenPebble(opts.Dir)
	case KindFile:
		return NewFileStore(opts.Dir, opts.MaxFiles), nil
	case KindMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Kind)
	}
}

func now() int64 {
	return time.Now().UnixMilli()
}

// nopStore stands in for a backend that could not be opened.
type nopStore struct{}

func (nopStore) Get(context.Context, string) (Entry, bool, error) { return Entry{}, false, nil }
func (nopStore) Put(context.Context, string, []byte) error        { return nil }
func (nopStore) Close() error                                     { return nil }
