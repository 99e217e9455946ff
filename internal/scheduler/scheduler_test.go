package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/concretesite/designstore/internal/design"
	"github.com/concretesite/designstore/internal/kv"
	"github.com/concretesite/designstore/internal/model"
	"github.com/concretesite/designstore/internal/testutil"
)

func TestNew(t *testing.T) {
	logger := testutil.TestLoggerSilent()

	s := New(logger)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cron == nil {
		t.Error("New() scheduler has nil cron")
	}
	if s.logger != logger {
		t.Error("New() scheduler has wrong logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	if err := s.Add(Job{Name: "noop", Schedule: "@hourly", Run: func(context.Context) error { return nil }}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	s.Start()
	s.Stop()
}

func TestScheduler_Add(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	noop := func(context.Context) error { return nil }

	if err := s.Add(Job{Name: "a", Schedule: "*/5 * * * *", Run: noop}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(Job{Name: "a", Schedule: "@hourly", Run: noop}); err == nil {
		t.Error("Add() accepted a duplicate name")
	}
	if err := s.Add(Job{Name: "b", Schedule: "every tuesday", Run: noop}); err == nil {
		t.Error("Add() accepted an invalid schedule")
	}
	if got := len(s.Jobs()); got != 1 {
		t.Errorf("len(Jobs()) = %d; want 1", got)
	}
}

func TestScheduler_TriggerRecordsResult(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	boom := errors.New("boom")
	calls := 0
	if err := s.Add(Job{Name: "flaky", Schedule: "@hourly", Run: func(context.Context) error {
		calls++
		if calls == 1 {
			return boom
		}
		return nil
	}}); err != nil {
		t.Fatal(err)
	}

	if err := s.Trigger("flaky"); !errors.Is(err, boom) {
		t.Fatalf("Trigger() error = %v; want boom", err)
	}
	jobs := s.Jobs()
	if jobs[0].LastErr != "boom" || jobs[0].LastRun.IsZero() {
		t.Errorf("job info after failure = %+v", jobs[0])
	}

	if err := s.Trigger("flaky"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if jobs = s.Jobs(); jobs[0].LastErr != "" {
		t.Errorf("LastErr = %q; want cleared", jobs[0].LastErr)
	}

	if err := s.Trigger("missing"); err == nil {
		t.Error("Trigger() of unknown job should fail")
	}
}

func TestScheduler_JobsSorted(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	noop := func(context.Context) error { return nil }
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.Add(Job{Name: name, Schedule: "@daily", Run: noop}); err != nil {
			t.Fatal(err)
		}
	}
	s.Start()
	defer s.Stop()

	jobs := s.Jobs()
	want := []string{"alpha", "mid", "zeta"}
	for i, j := range jobs {
		if j.Name != want[i] {
			t.Errorf("jobs[%d] = %q; want %q", i, j.Name, want[i])
		}
		if j.NextRun.IsZero() {
			t.Errorf("job %q has no next run after Start", j.Name)
		}
	}
}

func TestMaintenanceJobs_Memory(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })
	logger := testutil.TestLoggerSilent()
	store := design.NewStore(mem, design.Options{Logger: logger})

	jobs := MaintenanceJobs(store, logger)
	if len(jobs) != 1 || jobs[0].Name != "history-compact" {
		t.Fatalf("jobs = %+v; want only history-compact", jobs)
	}

	if err := store.Save(ctx, model.DefaultSettings(), "tester", "first"); err != nil {
		t.Fatal(err)
	}
	entries, err := store.History().List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	ids := []string{"dangling"}
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if err := kv.SetJSON(ctx, mem, design.KeyHistoryIndex, ids, 0); err != nil {
		t.Fatal(err)
	}

	s := New(logger)
	for _, j := range jobs {
		if err := s.Add(j); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Trigger("history-compact"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	got, err := kv.GetJSON[[]string](ctx, mem, design.KeyHistoryIndex)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range *got {
		if id == "dangling" {
			t.Errorf("index still holds dangling id: %v", *got)
		}
	}
}

func TestMaintenanceJobs_SQLitePurge(t *testing.T) {
	ctx := context.Background()
	sq, err := kv.OpenSQLite(ctx, filepath.Join(t.TempDir(), "design.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })

	logger := testutil.TestLoggerSilent()
	store := design.NewStore(kv.WithRetry(sq, kv.DefaultRetryOptions()), design.Options{Logger: logger})

	jobs := MaintenanceJobs(store, logger)
	if len(jobs) != 2 {
		t.Fatalf("len(jobs) = %d; want 2", len(jobs))
	}

	if err := sq.Set(ctx, "short", []byte("x"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	s := New(logger)
	for _, j := range jobs {
		if err := s.Add(j); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Trigger("sqlite-purge"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	n, err := sq.PurgeExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second purge removed %d rows; want 0", n)
	}
}
