package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/openclaw/internal/heartbeat"
)

func newTestRunLog(t *testing.T) *RunLog {
	t.Helper()
	log, err := OpenRunLog(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestRunLogRecordAndRecent(t *testing.T) {
	log := newTestRunLog(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC)
	recs := []heartbeat.RunRecord{
		{Name: "brief", StartedAt: base, Duration: 1200 * time.Millisecond, Response: "first"},
		{Name: "brief", StartedAt: base.Add(time.Hour), Duration: 800 * time.Millisecond, Response: "second"},
		{Name: "cleanup", StartedAt: base.Add(2 * time.Hour), Duration: 50 * time.Millisecond, Err: "agent missing"},
	}
	for _, rec := range recs {
		if err := log.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := log.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Recent = %d rows, want 3", len(all))
	}
	// Newest first.
	if all[0].Name != "cleanup" || all[2].Response != "first" {
		t.Errorf("order wrong: %+v", all)
	}
	if all[0].Err != "agent missing" {
		t.Errorf("error not stored: %+v", all[0])
	}
	if all[1].Duration != 800*time.Millisecond {
		t.Errorf("duration = %s", all[1].Duration)
	}
	if !all[2].StartedAt.Equal(base) {
		t.Errorf("started_at = %s, want %s", all[2].StartedAt, base)
	}

	named, err := log.Recent(ctx, "brief", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(named) != 2 {
		t.Errorf("Recent(brief) = %d rows, want 2", len(named))
	}

	limited, err := log.Recent(ctx, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d rows", len(limited))
	}
}

func TestRunLogEmpty(t *testing.T) {
	log := newTestRunLog(t)

	runs, err := log.Recent(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("fresh run log has %d rows", len(runs))
	}
}
