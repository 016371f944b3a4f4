// Package jobs is the boundary to the external job store: the API enqueues
// work and polls progress, the worker process dequeues and runs it.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrQueueUnavailable wraps every failure to reach the job store. Callers
// must not read it as "job finished".
var ErrQueueUnavailable = errors.New("jobs: queue unavailable")

const (
	StatusQueued   = "queued"
	StatusStarted  = "started"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// Queue is what request handling needs from the job store.
type Queue interface {
	// Enqueue schedules a named job for a user and returns its id.
	Enqueue(ctx context.Context, name string, userID uint, payload any) (string, error)
	// Progress reports the last recorded progress of a job. found is false
	// when the store has no record of the id, which includes finished jobs
	// whose bookkeeping already expired.
	Progress(ctx context.Context, jobID string) (progress int, found bool, err error)
}

// Job is a dequeued unit of work.
type Job struct {
	ID         string
	Name       string
	UserID     uint
	Payload    json.RawMessage
	Status     string
	EnqueuedAt time.Time
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(j.Payload, v)
}
