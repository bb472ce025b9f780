package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Retention bounds for launch years. Objects outside this range are dropped.
const (
	MinYear = 1957
	MaxYear = 2024
)

// ObjectType classifies a canonical object.
type ObjectType string

const (
	TypeSatellite ObjectType = "satellite"
	TypeDebris    ObjectType = "debris"
	TypeUnknown   ObjectType = "unknown"
)

// SourceTag records which catalog a canonical object came from.
type SourceTag string

const (
	SourceCatalogA SourceTag = "catalogA"
	SourceCatalogB SourceTag = "catalogB"
)

// UnknownCountry is used when no region can be resolved.
const UnknownCountry = "unknown"

// Operator is one entry of a catalogA object's operator list.
type Operator struct {
	Name        string `json:"name,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// RawRecordA is an object from the internal catalog (Remote Data Service).
// Every field is optional; missing fields decode to their zero value.
type RawRecordA struct {
	ID            string     `json:"id,omitempty"`
	Name          string     `json:"name,omitempty"`
	LaunchDate    LaunchTime `json:"launch_date,omitempty"`
	ObjectType    string     `json:"object_type,omitempty"`
	ObjectSubtype string     `json:"object_subtype,omitempty"`
	Operators     []Operator `json:"operators,omitempty"`
}

// RawRecordB is a row of the orbital-decay catalog.
type RawRecordB struct {
	ObjectID    string `csv:"OBJECT_ID" json:"OBJECT_ID"`
	ObjectName  string `csv:"OBJECT_NAME" json:"OBJECT_NAME"`
	LaunchDate  string `csv:"LAUNCH_DATE" json:"LAUNCH_DATE"`
	ObjectType  string `csv:"OBJECT_TYPE" json:"OBJECT_TYPE"`
	Subtype     string `csv:"object_type" json:"object_type"`
	CountryCode string `csv:"COUNTRY_CODE" json:"COUNTRY_CODE"`
}

// CanonicalObject is the unified representation of a space object.
// Year is zero when the launch date could not be parsed.
type CanonicalObject struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Year    int        `json:"year,omitempty"`
	Type    ObjectType `json:"type"`
	Subtype string     `json:"subtype"`
	Country string     `json:"country"`
	Source  SourceTag  `json:"source"`
}

// LaunchTime holds a catalogA launch timestamp as received. The service emits
// RFC 3339 strings, plain dates or Unix milliseconds depending on the record,
// so the raw text is kept and interpreted by Year.
type LaunchTime string

// UnmarshalJSON accepts a string, a number (Unix milliseconds) or null.
func (lt *LaunchTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*lt = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("launch_date: %w", err)
		}
		*lt = LaunchTime(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("launch_date: %w", err)
	}
	*lt = LaunchTime(n.String())
	return nil
}

// Year returns the launch year and whether the timestamp could be parsed.
func (lt LaunchTime) Year() (int, bool) {
	s := string(lt)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && len(s) > 4 {
		return time.UnixMilli(ms).UTC().Year(), true
	}
	return parseYear(s)
}

// Dataset is a canonical object set together with load metadata.
type Dataset struct {
	Objects  []CanonicalObject
	LoadedAt time.Time
	// Degraded is set when the objects come from the cached canonical
	// result because a live source failed.
	Degraded bool
}
