package jobs

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/lazyreader/textbookd/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(),
		filepath.Join(t.TempDir(), "test.db"), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitForStatus(t *testing.T, s *store.Store, id, want string) store.JobRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := s.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if rec.Status == want {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %q", id, want)
	return store.JobRecord{}
}

func TestRunnerExecutesJob(t *testing.T) {
	s := testStore(t)
	r := NewRunner(s, Config{Workers: 2}, slog.New(slog.DiscardHandler))
	r.Start(context.Background())
	defer r.Stop()

	done := make(chan struct{})
	id, err := r.Submit(context.Background(), FuncJob{
		Name: "test_job",
		Fn: func(ctx context.Context) error {
			close(done)
			return nil
		},
	}, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}

	rec := waitForStatus(t, s, id, store.JobStatusCompleted)
	if rec.Type != "test_job" {
		t.Errorf("type = %q", rec.Type)
	}
	if rec.StartedAt == nil || rec.FinishedAt == nil {
		t.Error("timestamps not recorded")
	}
}

func TestRunnerRecordsFailure(t *testing.T) {
	s := testStore(t)
	r := NewRunner(s, Config{Workers: 1}, slog.New(slog.DiscardHandler))
	r.Start(context.Background())
	defer r.Stop()

	id, err := r.Submit(context.Background(), FuncJob{
		Name: "failing_job",
		Fn: func(ctx context.Context) error {
			return errors.New("extraction exploded")
		},
	}, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rec := waitForStatus(t, s, id, store.JobStatusFailed)
	if rec.Error != "extraction exploded" {
		t.Errorf("error = %q", rec.Error)
	}
}

func TestRunnerQueueFull(t *testing.T) {
	s := testStore(t)
	r := NewRunner(s, Config{Workers: 1, QueueSize: 1}, slog.New(slog.DiscardHandler))
	r.Start(context.Background())
	defer r.Stop()

	block := make(chan struct{})
	slow := FuncJob{Name: "slow", Fn: func(ctx context.Context) error {
		<-block
		return nil
	}}
	defer close(block)

	// The worker blocks on the first job; the queue holds one more. A
	// submit must eventually overflow.
	var overflowErr error
	for i := 0; i < 10; i++ {
		if _, err := r.Submit(context.Background(), slow, nil); err != nil {
			overflowErr = err
			break
		}
	}
	if overflowErr == nil {
		t.Fatal("queue never reported full")
	}
}

func TestRunnerSubmitBeforeStart(t *testing.T) {
	s := testStore(t)
	r := NewRunner(s, Config{}, slog.New(slog.DiscardHandler))

	if _, err := r.Submit(context.Background(), FuncJob{Name: "x", Fn: func(ctx context.Context) error { return nil }}, nil); err == nil {
		t.Fatal("expected error before Start")
	}
}

func TestRunnerStopWaitsForWorkers(t *testing.T) {
	s := testStore(t)
	r := NewRunner(s, Config{Workers: 1}, slog.New(slog.DiscardHandler))
	r.Start(context.Background())

	started := make(chan struct{})
	id, err := r.Submit(context.Background(), FuncJob{
		Name: "cancellable",
		Fn: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-started
	r.Stop()

	rec, err := s.GetJob(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != store.JobStatusFailed {
		t.Errorf("status = %q, want failed after cancellation", rec.Status)
	}
}
