package pipeline

import (
	"encoding/json"
	"time"

	"github.com/star/spacedecay/internal/catalog"
)

// SourceState is the lifecycle of one raw dataset within a load.
type SourceState int

const (
	StateUninitialized SourceState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s SourceState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// MarshalText encodes the state by name.
func (s SourceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SourceStatus reports how a raw dataset was obtained.
type SourceStatus struct {
	Source    catalog.SourceTag
	Key       string
	State     SourceState
	FromCache bool
	Records   int
	UpdatedAt time.Time
	Err       error
}

// MarshalJSON renders Err as a string.
func (s SourceStatus) MarshalJSON() ([]byte, error) {
	out := struct {
		Source    catalog.SourceTag `json:"source"`
		Key       string            `json:"key"`
		State     SourceState       `json:"state"`
		FromCache bool              `json:"from_cache"`
		Records   int               `json:"records"`
		UpdatedAt *time.Time        `json:"updated_at,omitempty"`
		Error     string            `json:"error,omitempty"`
	}{
		Source:    s.Source,
		Key:       s.Key,
		State:     s.State,
		FromCache: s.FromCache,
		Records:   s.Records,
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt.UTC()
		out.UpdatedAt = &t
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return json.Marshal(out)
}
