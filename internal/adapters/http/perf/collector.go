package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize bounds the number of retained entries. A CLI run issues far
// fewer calls than this.
const DefaultRingSize = 1024

// EntryKind distinguishes backend calls from local state queries.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is one timed operation.
type Entry struct {
	Kind       EntryKind
	Path       string // "METHOD /path" for requests, "kv.VERB" for queries
	StatusCode int    // 0 when no response was received, or for queries
	DurationMs float64
	Timestamp  time.Time
}

// Failed reports whether the entry is a request that got no 2xx answer.
func (e Entry) Failed() bool {
	return e.Kind == KindRequest && (e.StatusCode == 0 || e.StatusCode >= 400)
}

// Collector is a fixed-size ring of timing entries. Old entries are
// overwritten once the ring is full.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int64
}

// NewCollector creates a collector holding up to size entries.
// PRE: none; size <= 0 selects DefaultRingSize
// POST: Returns an empty collector
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size), size: size}
}

// Record stores e, overwriting the oldest entry when full.
// Safe on a nil collector.
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	atomic.AddInt64(&c.count, 1)
}

// TotalRecorded returns the number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	if c == nil {
		return 0
	}
	return atomic.LoadInt64(&c.count)
}

// PathStat aggregates the timings of one request path or query verb.
type PathStat struct {
	Path    string
	Count   int
	Errors  int
	AvgMs   float64
	MaxMs   float64
	TotalMs float64
}

// Snapshot is the aggregated view printed after a command.
type Snapshot struct {
	Requests       int
	Failures       int
	RequestP50Ms   float64
	RequestP95Ms   float64
	TotalMs        float64
	SlowestPaths   []PathStat
	SlowestQueries []PathStat
}

// Snapshot aggregates the retained entries recorded at or after since.
// PRE: topN >= 0
// POST: Returns per-path stats sorted by average duration, slowest first
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, c.size)
	copy(buf, c.entries)
	c.mu.Unlock()

	var durations []float64
	requests := map[string]*PathStat{}
	queries := map[string]*PathStat{}
	snap := Snapshot{}

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		stats := queries
		if e.Kind == KindRequest {
			stats = requests
			durations = append(durations, e.DurationMs)
			snap.Requests++
			snap.TotalMs += e.DurationMs
			if e.Failed() {
				snap.Failures++
			}
		}
		s, ok := stats[e.Path]
		if !ok {
			s = &PathStat{Path: e.Path}
			stats[e.Path] = s
		}
		s.Count++
		s.TotalMs += e.DurationMs
		s.MaxMs = math.Max(s.MaxMs, e.DurationMs)
		if e.Failed() {
			s.Errors++
		}
	}

	snap.SlowestPaths = topByAvg(requests, topN)
	snap.SlowestQueries = topByAvg(queries, topN)
	if len(durations) > 0 {
		sort.Float64s(durations)
		snap.RequestP50Ms = percentile(durations, 50)
		snap.RequestP95Ms = percentile(durations, 95)
	}
	return snap
}

// percentile interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func topByAvg(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Path < list[j].Path
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
