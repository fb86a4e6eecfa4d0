package recording

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"aircheck/internal/radiko"
)

// Status represents the lifecycle of a recording job.
type Status string

const (
	StatusPending           Status = "pending"
	StatusAuthenticating    Status = "authenticating"
	StatusResolvingPlaylist Status = "resolving_playlist"
	StatusFetching          Status = "fetching"
	StatusFinalizing        Status = "finalizing"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusAuthenticating,
	StatusResolvingPlaylist,
	StatusFetching,
	StatusFinalizing,
	StatusCompleted,
	StatusFailed,
}

// forwardTransitions maps each working status to its successor on the happy
// path. Failure is recorded through SetFailed, never through Transition.
var forwardTransitions = map[Status]Status{
	StatusPending:           StatusAuthenticating,
	StatusAuthenticating:    StatusResolvingPlaylist,
	StatusResolvingPlaylist: StatusFetching,
	StatusFetching:          StatusFinalizing,
	StatusFinalizing:        StatusCompleted,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// Terminal reports whether the status ends the job.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one per-invocation recording.
type Job struct {
	ID         string
	Station    radiko.Station
	Window     radiko.TimeWindow
	OutputPath string

	Status  Status
	Session radiko.Session
	Err     error

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewJob builds a pending job for one station and window.
func NewJob(station radiko.Station, window radiko.TimeWindow, outputPath string) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Station:    station,
		Window:     window,
		OutputPath: outputPath,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
	}
}

// Transition advances the job exactly one step along the forward path.
// Backward, skipping, and post-terminal moves are rejected.
func (j *Job) Transition(next Status) error {
	expected, ok := forwardTransitions[j.Status]
	if !ok || next != expected {
		return fmt.Errorf("invalid status transition %s -> %s", j.Status, next)
	}
	j.Status = next
	switch next {
	case StatusAuthenticating:
		if j.StartedAt.IsZero() {
			j.StartedAt = time.Now()
		}
	case StatusCompleted:
		j.FinishedAt = time.Now()
	}
	return nil
}

// SetFailed moves the job to failed and records its root cause. The first
// recorded cause wins; terminal jobs are left untouched.
func (j *Job) SetFailed(err error) {
	if j.Status.Terminal() {
		return
	}
	j.Status = StatusFailed
	j.FinishedAt = time.Now()
	if j.Err == nil {
		j.Err = err
	}
}
