// Package progress tracks the lifecycle of processing tasks. It is the only
// structure shared between the dispatcher's worker and status-polling readers.
package progress

import (
	"sync"
	"time"
)

// Status is a task lifecycle state.
type Status string

const (
	// StatusPending means the task is registered but not started.
	StatusPending Status = "pending"
	// StatusInProgress means the task is being processed.
	StatusInProgress Status = "in_progress"
	// StatusSucceeded is the terminal success state.
	StatusSucceeded Status = "succeeded"
	// StatusFailed is the terminal failure state.
	StatusFailed Status = "failed"
)

// Result is the output of a successful task.
type Result struct {
	// VideoURL is the retrievable location of the output clip.
	VideoURL string `json:"video_url"`
	// MatchingSpeakers are the labels that matched the reference voice.
	MatchingSpeakers []string `json:"matching_speakers"`
	// SpeakerDistances maps every observed label to its distance, kept for
	// diagnostics even for non-matching labels.
	SpeakerDistances map[string]float64 `json:"speaker_distances"`
}

// Record is the stored state for one task id.
type Record struct {
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Percentage int       `json:"percentage"`
	Result     *Result   `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal reports whether the record is in a final state.
func (r Record) Terminal() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}

// Notifier observes record updates, e.g. to stream them to SSE subscribers.
type Notifier func(taskID string, rec Record)

// Store is a concurrent map of task id to Record. Each record has a single
// writer (the task's worker); readers may poll concurrently. Records are
// replaced atomically, never partially updated.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
	notify  Notifier
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]Record)}
}

// SetNotifier installs a callback invoked after every record write.
// Must be called before any task is registered.
func (s *Store) SetNotifier(fn Notifier) {
	s.notify = fn
}

// Register creates a Pending record for a new task id.
func (s *Store) Register(taskID string) {
	s.set(taskID, Record{Status: StatusPending})
}

// Progress records an in-progress update. Percentage never moves backwards
// within a task's lifetime, and updates after a terminal state are dropped.
func (s *Store) Progress(taskID, message string, percentage int) {
	s.mu.Lock()
	prev, ok := s.records[taskID]
	if ok && prev.Terminal() {
		s.mu.Unlock()
		return
	}
	if percentage < prev.Percentage {
		percentage = prev.Percentage
	}
	if percentage > 100 {
		percentage = 100
	}
	rec := Record{
		Status:     StatusInProgress,
		Message:    message,
		Percentage: percentage,
		UpdatedAt:  time.Now().UTC(),
	}
	s.records[taskID] = rec
	s.mu.Unlock()

	s.published(taskID, rec)
}

// Succeed writes the terminal success record.
func (s *Store) Succeed(taskID string, result Result) {
	s.setTerminal(taskID, Record{
		Status:     StatusSucceeded,
		Percentage: 100,
		Result:     &result,
	})
}

// Fail writes the terminal failure record.
func (s *Store) Fail(taskID string, err error) {
	s.mu.RLock()
	pct := s.records[taskID].Percentage
	s.mu.RUnlock()
	s.setTerminal(taskID, Record{
		Status:     StatusFailed,
		Percentage: pct,
		Error:      err.Error(),
	})
}

// Get returns the record for a task id and whether it exists.
func (s *Store) Get(taskID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[taskID]
	return rec, ok
}

func (s *Store) set(taskID string, rec Record) {
	rec.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.records[taskID] = rec
	s.mu.Unlock()
	s.published(taskID, rec)
}

// setTerminal writes a terminal record unless one already exists.
func (s *Store) setTerminal(taskID string, rec Record) {
	rec.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	if prev, ok := s.records[taskID]; ok && prev.Terminal() {
		s.mu.Unlock()
		return
	}
	s.records[taskID] = rec
	s.mu.Unlock()
	s.published(taskID, rec)
}

func (s *Store) published(taskID string, rec Record) {
	if s.notify != nil {
		s.notify(taskID, rec)
	}
}
