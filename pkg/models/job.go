package models

import (
	"fmt"
	"time"
)

// JobType identifies the work a job requests against an image.
type JobType string

const (
	JobTypeClassify JobType = "classify"
)

// JobStatus is a job's position in its lifecycle.
type JobStatus string

const (
	JobStatusIssued  JobStatus = "issued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// transitions is the set of legal status edges. Anything not listed here is
// rejected with a StateError.
var transitions = map[JobStatus][]JobStatus{
	JobStatusIssued:  {JobStatusRunning, JobStatusError},
	JobStatusRunning: {JobStatusDone, JobStatusError},
}

// CanTransition reports whether from -> to is a legal status edge.
func CanTransition(from, to JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateError reports an illegal job status transition. The job is left
// unchanged when this error is returned; it indicates an ordering bug at the
// call site, not a condition to retry.
type StateError struct {
	JobID int64
	From  JobStatus
	To    JobStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("job %d: illegal transition %s -> %s", e.JobID, e.From, e.To)
}

// Job is a unit of requested work against one image. Status may only move
// along issued -> running -> done, with error reachable from issued and
// running; use Run, Finish and Fail rather than assigning Status directly.
type Job struct {
	ID            int64     `db:"id"             json:"id"`
	JobType       JobType   `db:"job_type"       json:"job_type"`
	Status        JobStatus `db:"status"         json:"status"`
	StatusMessage string    `db:"status_message" json:"status_message,omitempty"`
	ImageID       int64     `db:"image_id"       json:"image_id"`
	ModelIDs      []int64   `db:"-"              json:"model_ids,omitempty"`
	DateIssued    time.Time `db:"date_issued"    json:"date_issued"`
	LastModified  time.Time `db:"last_modified"  json:"last_modified"`
}

// Run moves the job from issued to running.
func (j *Job) Run() error {
	return j.transition(JobStatusRunning)
}

// Finish moves the job from running to done.
func (j *Job) Finish() error {
	return j.transition(JobStatusDone)
}

// Fail moves the job to error and records the message. The message is only
// set when the transition is legal.
func (j *Job) Fail(msg string) error {
	if err := j.transition(JobStatusError); err != nil {
		return err
	}
	j.StatusMessage = msg
	return nil
}

func (j *Job) transition(to JobStatus) error {
	if !CanTransition(j.Status, to) {
		return &StateError{JobID: j.ID, From: j.Status, To: to}
	}
	j.Status = to
	return nil
}
