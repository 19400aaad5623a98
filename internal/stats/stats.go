// Package stats maintains the small on-disk counters consumed by the
// external supervisor, plus Prometheus metrics for the /metrics route.
package stats

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is the persisted stats document.
type Snapshot struct {
	StartTime       time.Time `json:"startTime"`
	RequestCount    int64     `json:"requestCount"`
	LastRequestTime time.Time `json:"lastRequestTime"`
	Port            int       `json:"port"`
}

// Stats holds the process-wide counters. Counter updates are atomic; the
// stats file is rewritten wholesale under a brief lock on each request.
type Stats struct {
	path      string
	startTime time.Time
	port      int

	requestCount atomic.Int64
	lastRequest  atomic.Int64 // unix nanos

	writeMu sync.Mutex
}

// New creates the stats tracker and persists the initial document.
func New(path string, port int) *Stats {
	s := &Stats{
		path:      path,
		startTime: time.Now(),
		port:      port,
	}
	s.persist()
	return s
}

// RecordRequest bumps the counters and rewrites the stats file.
func (s *Stats) RecordRequest() {
	s.requestCount.Add(1)
	s.lastRequest.Store(time.Now().UnixNano())
	RequestsTotal.Inc()
	s.persist()
}

// RequestCount returns the number of requests served since start.
func (s *Stats) RequestCount() int64 {
	return s.requestCount.Load()
}

// UptimeSeconds returns whole seconds since process start.
func (s *Stats) UptimeSeconds() int64 {
	return int64(time.Since(s.startTime).Seconds())
}

// StartTime returns the process start time.
func (s *Stats) StartTime() time.Time {
	return s.startTime
}

func (s *Stats) snapshot() Snapshot {
	var last time.Time
	if n := s.lastRequest.Load(); n > 0 {
		last = time.Unix(0, n)
	}
	return Snapshot{
		StartTime:       s.startTime,
		RequestCount:    s.requestCount.Load(),
		LastRequestTime: last,
		Port:            s.port,
	}
}

func (s *Stats) persist() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		slog.Warn("stats directory unavailable", "error", err)
		return
	}
	data, err := json.MarshalIndent(s.snapshot(), "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		slog.Warn("stats write failed", "path", s.path, "error", err)
	}
}

// Load reads a persisted stats document, for the info subcommand.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
