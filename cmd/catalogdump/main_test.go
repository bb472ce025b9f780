package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/star/spacedecay/internal/catalog"
	"github.com/star/spacedecay/internal/pipeline"
)

func TestSortedCounts(t *testing.T) {
	got := sortedCounts(map[string]int{"France": 2, "United States": 5, "China": 2, "unknown": 1})
	want := []count{{"United States", 5}, {"China", 2}, {"France", 2}, {"unknown", 1}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPrintSummary(t *testing.T) {
	ds := &catalog.Dataset{
		LoadedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Degraded: true,
		Objects: []catalog.CanonicalObject{
			{ID: "X1", Name: "DEB", Year: 2001, Type: catalog.TypeDebris, Country: "United States", Source: catalog.SourceCatalogB},
			{ID: "X2", Name: "SAT", Year: 2002, Type: catalog.TypeSatellite, Country: "France", Source: catalog.SourceCatalogB},
			{ID: "X3", Name: "HIDDEN", Year: 2003, Type: catalog.TypeSatellite, Country: "France", Source: catalog.SourceCatalogA},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, ds, 2)
	out := buf.String()

	for _, want := range []string{"3 objects", "degraded", "2024-05-01T00:00:00Z", "United States", "France", "X1", "X2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "HIDDEN") {
		t.Errorf("object list should stop at top=2:\n%s", out)
	}
}

func TestPrintSources(t *testing.T) {
	var buf bytes.Buffer
	printSources(&buf, []pipeline.SourceStatus{
		{Source: catalog.SourceCatalogA, Key: "neuraspace_data", State: pipeline.StateFailed, Err: errors.New("connection refused")},
		{Source: catalog.SourceCatalogB, Key: "space_decay_data", State: pipeline.StateLoaded, FromCache: true, Records: 42},
	})
	out := buf.String()
	for _, want := range []string{"neuraspace_data", "failed", "connection refused", "loaded", "42"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
