package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/star/spacedecay/internal/catalog"
)

// RemoteReader retrieves the internal catalog from the Remote Data Service.
type RemoteReader struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRemoteReader creates a reader for the service endpoint at url
// (typically ending in /api/data).
func NewRemoteReader(url string, timeout time.Duration, logger *slog.Logger) *RemoteReader {
	return &RemoteReader{
		url:        url,
		httpClient: newHTTPClient(timeout),
		logger:     logger,
	}
}

// URL returns the configured endpoint.
func (r *RemoteReader) URL() string {
	return r.url
}

// serviceError is the body the service returns alongside a 5xx status.
type serviceError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Fetch performs an HTTP GET and decodes the JSON array of records.
func (r *RemoteReader) Fetch(ctx context.Context) ([]catalog.RawRecordA, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", ErrSourceUnavailable, r.url, err)
	}
	defer resp.Body.Close()

	body, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var se serviceError
		if json.Unmarshal(body, &se) == nil && se.Error != "" {
			return nil, fmt.Errorf("%w: status %d from %s: %s", ErrSourceUnavailable, resp.StatusCode, r.url, joinNonEmpty(se.Error, se.Details))
		}
		return nil, fmt.Errorf("%w: unexpected status code %d from %s", ErrSourceUnavailable, resp.StatusCode, r.url)
	}

	return decodeRecordsA(body, r.logger)
}

// decodeRecordsA decodes a JSON array, skipping elements that are not
// objects of the expected shape.
func decodeRecordsA(body []byte, logger *slog.Logger) ([]catalog.RawRecordA, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: decoding catalog array: %w", ErrParse, err)
	}

	records := make([]catalog.RawRecordA, 0, len(items))
	for i, item := range items {
		var rec catalog.RawRecordA
		if err := json.Unmarshal(item, &rec); err != nil {
			logger.Warn("skipping malformed catalog record", "index", i, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ": ")
}
