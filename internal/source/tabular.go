package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/star/spacedecay/internal/catalog"
)

// RequiredColumns must appear in the decay catalog header.
var RequiredColumns = []string{"OBJECT_TYPE", "LAUNCH_DATE", "OBJECT_NAME", "OBJECT_ID", "COUNTRY_CODE", "object_type"}

// TabularReader reads the orbital-decay catalog from a local CSV file or,
// when the location is an http(s) URL, from a remote one.
type TabularReader struct {
	location   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTabularReader creates a reader for a file path or http(s) URL.
func NewTabularReader(location string, timeout time.Duration, logger *slog.Logger) *TabularReader {
	return &TabularReader{
		location:   location,
		httpClient: newHTTPClient(timeout),
		logger:     logger,
	}
}

// Location returns the configured path or URL.
func (t *TabularReader) Location() string {
	return t.location
}

// Fetch reads and decodes the catalog.
func (t *TabularReader) Fetch(ctx context.Context) ([]catalog.RawRecordB, error) {
	data, err := t.read(ctx)
	if err != nil {
		return nil, err
	}
	return ParseDecayCSV(bytes.NewReader(data), t.logger)
}

func (t *TabularReader) read(ctx context.Context) ([]byte, error) {
	if !isRemote(t.location) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		f, err := os.Open(t.location)
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %w", ErrSourceUnavailable, t.location, err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrSourceUnavailable, t.location, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrSourceUnavailable, err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", ErrSourceUnavailable, t.location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d from %s", ErrSourceUnavailable, resp.StatusCode, t.location)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", ErrSourceUnavailable, err)
	}
	return data, nil
}

// ParseDecayCSV decodes decay catalog rows from r. The first row is the
// header; rows with the wrong number of fields or broken quoting are skipped
// with a warning log.
func ParseDecayCSV(r io.Reader, logger *slog.Logger) ([]catalog.RawRecordB, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty decay catalog", ErrParse)
		}
		return nil, fmt.Errorf("%w: reading header: %w", ErrParse, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("%w: decay catalog missing columns %v", ErrParse, missing)
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating CSV decoder: %w", ErrParse, err)
	}

	var records []catalog.RawRecordB
	for row := 2; ; row++ {
		var rec catalog.RawRecordB
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) || errors.Is(err, csvutil.ErrFieldCount) {
				logger.Warn("skipping malformed decay catalog row", "row", row, "error", err)
				continue
			}
			return nil, fmt.Errorf("%w: decoding row %d: %w", ErrParse, row, err)
		}
		records = append(records, rec)
	}

	logger.Debug("parsed decay catalog", "records", len(records))
	return records, nil
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
