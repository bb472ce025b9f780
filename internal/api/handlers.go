package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/star/spacedecay/internal/catalog"
	"github.com/star/spacedecay/internal/pipeline"
)

type objectsResponse struct {
	Count    int                       `json:"count"`
	LoadedAt time.Time                 `json:"loaded_at"`
	Degraded bool                      `json:"degraded"`
	Objects  []catalog.CanonicalObject `json:"objects"`
}

type metadataResponse struct {
	Count      int                        `json:"count"`
	LoadedAt   time.Time                  `json:"loaded_at"`
	AgeSeconds float64                    `json:"age_seconds"`
	Degraded   bool                       `json:"degraded"`
	ByType     map[catalog.ObjectType]int `json:"by_type"`
	BySource   map[catalog.SourceTag]int  `json:"by_source"`
	Sources    []pipeline.SourceStatus    `json:"sources"`
}

type refreshResponse struct {
	Count    int                     `json:"count"`
	Degraded bool                    `json:"degraded"`
	Sources  []pipeline.SourceStatus `json:"sources"`
	Error    string                  `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// objectFilter matches the optional type, country and source query
// parameters case-insensitively. Empty parameters match everything.
type objectFilter struct {
	objType string
	country string
	source  string
}

func (f objectFilter) match(obj catalog.CanonicalObject) bool {
	if f.objType != "" && !strings.EqualFold(string(obj.Type), f.objType) {
		return false
	}
	if f.country != "" && !strings.EqualFold(obj.Country, f.country) {
		return false
	}
	if f.source != "" && !strings.EqualFold(string(obj.Source), f.source) {
		return false
	}
	return true
}

func objectsHandler(datasets *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := datasets.Get()
		if ds == nil {
			writeError(w, http.StatusServiceUnavailable, "dataset not loaded")
			return
		}

		q := r.URL.Query()
		filter := objectFilter{
			objType: strings.TrimSpace(q.Get("type")),
			country: strings.TrimSpace(q.Get("country")),
			source:  strings.TrimSpace(q.Get("source")),
		}

		objects := make([]catalog.CanonicalObject, 0, len(ds.Objects))
		for _, obj := range ds.Objects {
			if filter.match(obj) {
				objects = append(objects, obj)
			}
		}

		writeJSON(w, http.StatusOK, objectsResponse{
			Count:    len(objects),
			LoadedAt: ds.LoadedAt.UTC(),
			Degraded: ds.Degraded,
			Objects:  objects,
		})
	}
}

func metadataHandler(datasets *catalog.Store, loader Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := datasets.Get()
		if ds == nil {
			writeError(w, http.StatusServiceUnavailable, "dataset not loaded")
			return
		}

		byType := make(map[catalog.ObjectType]int)
		bySource := make(map[catalog.SourceTag]int)
		for _, obj := range ds.Objects {
			byType[obj.Type]++
			bySource[obj.Source]++
		}

		writeJSON(w, http.StatusOK, metadataResponse{
			Count:      len(ds.Objects),
			LoadedAt:   ds.LoadedAt.UTC(),
			AgeSeconds: datasets.AgeSeconds(),
			Degraded:   ds.Degraded,
			ByType:     byType,
			BySource:   bySource,
			Sources:    loader.Sources(),
		})
	}
}

// refreshHandler reloads both sources bypassing raw cache reads. The held
// dataset is replaced only when the load produced a usable dataset.
func refreshHandler(logger *slog.Logger, datasets *catalog.Store, loader Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// A started load runs to completion even if the client goes away.
		ds, err := loader.Refresh(context.WithoutCancel(r.Context()))
		resp := refreshResponse{Sources: loader.Sources()}
		if err != nil {
			logger.Warn("catalog refresh failed", "component", "api", "error", err)
			resp.Error = err.Error()
			if cur := datasets.Get(); cur != nil {
				resp.Count = len(cur.Objects)
				resp.Degraded = cur.Degraded
			}
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		datasets.Set(ds)
		resp.Count = len(ds.Objects)
		resp.Degraded = ds.Degraded
		writeJSON(w, http.StatusOK, resp)
	}
}
