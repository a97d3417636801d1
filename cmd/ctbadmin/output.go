package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable returns a tab-aligned writer; callers must Flush it.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printTimings(w io.Writer, a *app) error {
	snap := a.collector.Snapshot(a.started, 5)
	fmt.Fprintf(w, "\nrequests: %d (failed %d)  p50 %.0fms  p95 %.0fms  total %.0fms  wall %s\n",
		snap.Requests, snap.Failures, snap.RequestP50Ms, snap.RequestP95Ms, snap.TotalMs,
		time.Since(a.started).Round(time.Millisecond))
	tw := newTable(w)
	for _, p := range snap.SlowestPaths {
		fmt.Fprintf(tw, "  %s\t%d×\tavg %.0fms\tmax %.0fms\terrors %d\n", p.Path, p.Count, p.AvgMs, p.MaxMs, p.Errors)
	}
	for _, q := range snap.SlowestQueries {
		fmt.Fprintf(tw, "  %s\t%d×\tavg %.1fms\tmax %.1fms\n", q.Path, q.Count, q.AvgMs, q.MaxMs)
	}
	return tw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
