package progress

import (
	stderrors "errors"
	"sync"
	"testing"
)

func TestStore_RegisterPending(t *testing.T) {
	s := NewStore()
	s.Register("t1")

	rec, ok := s.Get("t1")
	if !ok {
		t.Fatal("expected record for registered task")
	}
	if rec.Status != StatusPending {
		t.Errorf("expected pending, got %s", rec.Status)
	}
}

func TestStore_UnknownID(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get("nope"); ok {
		t.Error("expected no record for unknown id")
	}
}

func TestStore_PercentageMonotonic(t *testing.T) {
	s := NewStore()
	s.Register("t1")
	s.Progress("t1", "extracting audio", 30)
	s.Progress("t1", "stale update", 10)

	rec, _ := s.Get("t1")
	if rec.Percentage != 30 {
		t.Errorf("expected percentage to stay at 30, got %d", rec.Percentage)
	}
	if rec.Message != "stale update" {
		t.Errorf("expected message to still update, got %q", rec.Message)
	}
}

func TestStore_PercentageClamped(t *testing.T) {
	s := NewStore()
	s.Register("t1")
	s.Progress("t1", "done-ish", 140)
	rec, _ := s.Get("t1")
	if rec.Percentage != 100 {
		t.Errorf("expected clamp to 100, got %d", rec.Percentage)
	}
}

func TestStore_NoWritesAfterTerminal(t *testing.T) {
	s := NewStore()
	s.Register("t1")
	s.Succeed("t1", Result{VideoURL: "https://bucket/clip.mp4"})

	s.Progress("t1", "late update", 50)
	s.Fail("t1", stderrors.New("late failure"))

	rec, _ := s.Get("t1")
	if rec.Status != StatusSucceeded {
		t.Errorf("expected succeeded to stick, got %s", rec.Status)
	}
	if rec.Result == nil || rec.Result.VideoURL != "https://bucket/clip.mp4" {
		t.Errorf("expected result preserved, got %+v", rec.Result)
	}
}

func TestStore_FailKeepsLastPercentage(t *testing.T) {
	s := NewStore()
	s.Register("t1")
	s.Progress("t1", "diarizing", 50)
	s.Fail("t1", stderrors.New("sidecar down"))

	rec, _ := s.Get("t1")
	if rec.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", rec.Status)
	}
	if rec.Percentage != 50 {
		t.Errorf("expected percentage 50 at failure, got %d", rec.Percentage)
	}
	if rec.Error != "sidecar down" {
		t.Errorf("expected error message, got %q", rec.Error)
	}
}

func TestStore_NotifierSeesEveryWrite(t *testing.T) {
	s := NewStore()
	var mu sync.Mutex
	var seen []Status
	s.SetNotifier(func(id string, rec Record) {
		mu.Lock()
		seen = append(seen, rec.Status)
		mu.Unlock()
	})

	s.Register("t1")
	s.Progress("t1", "fetching", 10)
	s.Succeed("t1", Result{})

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusPending, StatusInProgress, StatusSucceeded}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(seen))
	}
	for i, st := range want {
		if seen[i] != st {
			t.Errorf("notification %d: expected %s, got %s", i, st, seen[i])
		}
	}
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := NewStore()
	s.Register("t1")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i <= 100; i++ {
			s.Progress("t1", "working", i)
		}
		s.Succeed("t1", Result{})
	}()
	go func() {
		defer wg.Done()
		last := -1
		for i := 0; i < 1000; i++ {
			rec, ok := s.Get("t1")
			if !ok {
				t.Error("record disappeared")
				return
			}
			if rec.Percentage < last {
				t.Errorf("observed percentage regression: %d -> %d", last, rec.Percentage)
				return
			}
			last = rec.Percentage
		}
	}()
	wg.Wait()
}
