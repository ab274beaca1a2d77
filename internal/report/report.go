// Package report records the per-unit outcome of a pipeline run so callers
// can see which channels, days or messages succeeded when others failed.
package report

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Unit kinds.
const (
	KindChannel = "channel"
	KindDay     = "day"
	KindWeek    = "week"
	KindMessage = "message"
)

// Unit is the outcome of one independently processed unit of work.
type Unit struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Run collects unit outcomes. It is safe for concurrent use.
type Run struct {
	ID         string    `json:"runId"`
	Operation  string    `json:"operation"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Units      []Unit    `json:"units"`

	mu sync.Mutex
}

// New starts a run for operation with a fresh ULID.
func New(operation string) *Run {
	return &Run{
		ID:        ulid.Make().String(),
		Operation: operation,
		StartedAt: time.Now().UTC(),
		Units:     []Unit{},
	}
}

// Record adds a unit that succeeded when err is nil and failed otherwise.
func (r *Run) Record(kind, key string, err error) {
	u := Unit{Kind: kind, Key: key, Status: StatusOK}
	if err != nil {
		u.Status = StatusFailed
		u.Detail = err.Error()
	}
	r.add(u)
}

// Skip adds a unit that was intentionally not processed.
func (r *Run) Skip(kind, key, reason string) {
	r.add(Unit{Kind: kind, Key: key, Status: StatusSkipped, Detail: reason})
}

// Merge appends the units of other.
func (r *Run) Merge(other *Run) {
	if other == nil || other == r {
		return
	}
	other.mu.Lock()
	units := append([]Unit(nil), other.Units...)
	other.mu.Unlock()

	r.mu.Lock()
	r.Units = append(r.Units, units...)
	r.mu.Unlock()
}

// Finish stamps the end time and returns r.
func (r *Run) Finish() *Run {
	r.mu.Lock()
	r.FinishedAt = time.Now().UTC()
	r.mu.Unlock()
	return r
}

// Count returns the number of units with status s.
func (r *Run) Count(s Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.Units {
		if u.Status == s {
			n++
		}
	}
	return n
}

// Err joins the failed units into one error, or returns nil.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, u := range r.Units {
		if u.Status == StatusFailed {
			errs = append(errs, fmt.Errorf("%s %s: %s", u.Kind, u.Key, u.Detail))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %d of %d units failed: %w", r.Operation, len(errs), len(r.Units), errors.Join(errs...))
}

func (r *Run) add(u Unit) {
	r.mu.Lock()
	r.Units = append(r.Units, u)
	r.mu.Unlock()
}
