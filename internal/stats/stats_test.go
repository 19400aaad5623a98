package stats

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStatsPersistAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")

	s := New(path, 8123)
	s.RecordRequest()
	s.RecordRequest()

	snap, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if snap.RequestCount != 2 {
		t.Fatalf("unexpected request count: %d", snap.RequestCount)
	}
	if snap.Port != 8123 {
		t.Fatalf("unexpected port: %d", snap.Port)
	}
	if snap.StartTime.IsZero() {
		t.Fatal("startTime must be persisted")
	}
	if time.Since(snap.LastRequestTime) > time.Minute {
		t.Fatalf("lastRequestTime looks wrong: %v", snap.LastRequestTime)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("missing stats file must error")
	}
}

func TestUptime(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "stats.json"), 0)
	if s.UptimeSeconds() < 0 {
		t.Fatal("uptime must be non-negative")
	}
	if s.RequestCount() != 0 {
		t.Fatal("fresh stats start at zero requests")
	}
}
