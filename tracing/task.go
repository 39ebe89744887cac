package tracing

import "github.com/sim-arch/dirsim/sim"

// A TaskStep represents a milestone in the processing of task
type TaskStep struct {
	Time sim.VTimeInSec `json:"time"`
	What string         `json:"what"`
}

// A Task is a task
type Task struct {
	ID         string         `json:"id"`
	ParentID   string         `json:"parent_id"`
	Kind       string         `json:"kind"`
	What       string         `json:"what"`
	Where      string         `json:"where"`
	StartTime  sim.VTimeInSec `json:"start_time"`
	EndTime    sim.VTimeInSec `json:"end_time"`
	Steps      []TaskStep     `json:"steps"`
	Detail     interface{}    `json:"-"`
	ParentTask *Task          `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// A DelayEvent marks a point where a task's processing was held up waiting
// on some resource (a full buffer, a locked directory entry, ...).
type DelayEvent struct {
	EventID string         `json:"event_id"`
	TaskID  string         `json:"task_id"`
	Type    string         `json:"type"`
	What    string         `json:"what"`
	Source  string         `json:"source"`
	Time    sim.VTimeInSec `json:"time"`
}

// A ProgressEvent marks that a task reached a named milestone without
// ending.
type ProgressEvent struct {
	ProgressID string         `json:"progress_id"`
	TaskID     string         `json:"task_id"`
	Source     string         `json:"source"`
	Time       sim.VTimeInSec `json:"time"`
	Reason     string         `json:"reason"`
}

// A DependencyEvent records that a progress milestone depended on a set of
// other tasks.
type DependencyEvent struct {
	ProgressID      string   `json:"progress_id"`
	DependentID     []string `json:"dependent_id"`
	DependentIDJSON string   `json:"-"`
}
