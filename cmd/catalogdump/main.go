// Command catalogdump runs one dataset load with the service configuration
// and prints a summary of the canonical catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/star/spacedecay/internal/cache"
	"github.com/star/spacedecay/internal/catalog"
	"github.com/star/spacedecay/internal/config"
	"github.com/star/spacedecay/internal/pipeline"
	"github.com/star/spacedecay/internal/source"
)

func main() {
	refresh := flag.Bool("refresh", false, "bypass cached raw datasets")
	top := flag.Int("top", 10, "number of countries and objects to list")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR loading config:", err)
		os.Exit(1)
	}

	cacheStore := cache.NewLazy(func() (cache.Backend, error) {
		return cache.Open(cfg.CacheOptions())
	}, logger)
	defer cacheStore.Close()

	loader := pipeline.NewLoader(
		cacheStore,
		source.NewRemoteReader(cfg.DataServiceURL, cfg.FetchTimeout, logger),
		source.NewTabularReader(cfg.DecaySource, cfg.FetchTimeout, logger),
		catalog.NewNormalizer(cfg.LocaleTag()),
		pipeline.Config{FetchTimeout: cfg.FetchTimeout},
		logger,
	)

	load := loader.LoadCanonicalDataset
	if *refresh {
		load = loader.Refresh
	}
	ds, loadErr := load(context.Background())

	printSources(os.Stdout, loader.Sources())
	if loadErr != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", loadErr)
		os.Exit(1)
	}
	printSummary(os.Stdout, ds, *top)
}

func printSources(w io.Writer, statuses []pipeline.SourceStatus) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Sources")
	t.AppendHeader(table.Row{"Source", "Cache key", "State", "From cache", "Records", "Error"})
	for _, s := range statuses {
		errText := ""
		if s.Err != nil {
			errText = s.Err.Error()
		}
		t.AppendRow(table.Row{s.Source, s.Key, s.State, s.FromCache, s.Records, errText})
	}
	t.Render()
}

type count struct {
	key string
	n   int
}

// sortedCounts orders by count descending, then key.
func sortedCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, n := range m {
		out = append(out, count{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}

func printSummary(w io.Writer, ds *catalog.Dataset, top int) {
	byType := make(map[string]int)
	byCountry := make(map[string]int)
	for _, obj := range ds.Objects {
		byType[string(obj.Type)]++
		byCountry[obj.Country]++
	}

	mode := "fresh"
	if ds.Degraded {
		mode = "degraded (cached)"
	}
	fmt.Fprintf(w, "\n%d objects, loaded %s, %s\n\n", len(ds.Objects), ds.LoadedAt.UTC().Format(time.RFC3339), mode)

	types := table.NewWriter()
	types.SetOutputMirror(w)
	types.SetStyle(table.StyleLight)
	types.SetTitle("By type")
	types.AppendHeader(table.Row{"Type", "Objects"})
	for _, c := range sortedCounts(byType) {
		types.AppendRow(table.Row{c.key, c.n})
	}
	types.AppendFooter(table.Row{"Total", len(ds.Objects)})
	types.Render()

	countries := table.NewWriter()
	countries.SetOutputMirror(w)
	countries.SetStyle(table.StyleLight)
	countries.SetTitle(fmt.Sprintf("Top %d countries", top))
	countries.AppendHeader(table.Row{"Country", "Objects"})
	for i, c := range sortedCounts(byCountry) {
		if i == top {
			break
		}
		countries.AppendRow(table.Row{c.key, c.n})
	}
	countries.Render()

	objects := table.NewWriter()
	objects.SetOutputMirror(w)
	objects.SetStyle(table.StyleLight)
	objects.SetTitle(fmt.Sprintf("First %d objects", top))
	objects.AppendHeader(table.Row{"ID", "Name", "Year", "Type", "Subtype", "Country", "Source"})
	for i, obj := range ds.Objects {
		if i == top {
			break
		}
		objects.AppendRow(table.Row{obj.ID, obj.Name, obj.Year, obj.Type, obj.Subtype, obj.Country, obj.Source})
	}
	objects.Render()
}
