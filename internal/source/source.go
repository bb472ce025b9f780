// Package source reads the two raw catalogs from their origins: the internal
// catalog from the Remote Data Service (JSON over HTTP) and the orbital-decay
// catalog from a delimited text file or URL.
//
// Readers do not retry. Malformed individual records are skipped with a
// warning; document-level failures are returned as ErrParse and transport or
// file failures as ErrSourceUnavailable.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrSourceUnavailable wraps network and file read failures.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrParse wraps failures to decode a fetched document.
	ErrParse = errors.New("parse error")
)

// Reader fetches one raw dataset.
type Reader[T any] interface {
	Fetch(ctx context.Context) ([]T, error)
}

const (
	defaultTimeout = 30 * time.Second
	// maxBodyBytes bounds the size of a remote document.
	maxBodyBytes = 50 << 20
)

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// readLimited reads r fully, failing if it exceeds maxBodyBytes.
func readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d byte limit", maxBodyBytes)
	}
	return body, nil
}
