package scheduler

import "errors"

var (
	// ErrHalt, returned by a task, ends that task's loop without error.
	ErrHalt = errors.New("halt task")
	// ErrNoTasks is returned by Run when nothing was added.
	ErrNoTasks = errors.New("no tasks scheduled")
	// ErrInvalidTask is returned by Add for a task without name, interval or func.
	ErrInvalidTask = errors.New("invalid task")
	// ErrRunning is returned by Add once Run has started.
	ErrRunning = errors.New("scheduler already running")
)
