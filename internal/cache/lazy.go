package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Lazy opens its backend on first access. If opening fails the failure is
// logged once and every later Get misses and every Put is dropped; the store
// is not retried for the lifetime of the process.
type Lazy struct {
	open   func() (Backend, error)
	logger *slog.Logger

	once    sync.Once
	backend Backend
	err     error
}

// NewLazy wraps an opener. open is called at most once.
func NewLazy(open func() (Backend, error), logger *slog.Logger) *Lazy {
	return &Lazy{open: open, logger: logger}
}

func (l *Lazy) store() Backend {
	l.once.Do(func() {
		b, err := l.open()
		if err != nil {
			l.err = fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
			l.backend = nopStore{}
			l.logger.Warn("cache store could not be opened, continuing without cache", "error", err)
			return
		}
		l.backend = b
		l.logger.Debug("cache store opened")
	})
	return l.backend
}

// Get returns the entry stored under key.
func (l *Lazy) Get(ctx context.Context, key string) (Entry, bool, error) {
	return l.store().Get(ctx, key)
}

// Put stores data under key, replacing any previous entry.
func (l *Lazy) Put(ctx context.Context, key string, data []byte) error {
	return l.store().Put(ctx, key, data)
}

// Err returns ErrCacheUnavailable (wrapped) if the backend failed to open.
// It is nil before first use.
func (l *Lazy) Err() error {
	return l.err
}

// Close closes the backend if it was opened.
func (l *Lazy) Close() error {
	l.once.Do(func() { l.backend = nopStore{} })
	return l.backend.Close()
}
