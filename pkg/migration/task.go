package migration

import (
	"context"
	"fmt"
)

// Progress is one update published by a Task.
type Progress struct {
	Percent int
	Message string
}

// TaskFunc is an orchestration call run by a Task.
type TaskFunc func(ctx context.Context, onProgress ProgressFunc) error

// Task runs one orchestration call on its own goroutine.
type Task struct {
	cancel   context.CancelFunc
	progress chan Progress
	done     chan struct{}
	err      error
}

// progressBuffer is the number of updates a slow reader may lag behind.
const progressBuffer = 32

// Start runs fn with a cancellable child of ctx and returns immediately.
func Start(ctx context.Context, fn TaskFunc) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel:   cancel,
		progress: make(chan Progress, progressBuffer),
		done:     make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer close(t.progress)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		t.err = fn(ctx, t.publish)
	}()

	return t
}

// publish never blocks the worker. When the buffer is full the oldest
// update is dropped.
func (t *Task) publish(percent int, message string) {
	p := Progress{Percent: percent, Message: message}
	for {
		select {
		case t.progress <- p:
			return
		default:
		}
		select {
		case <-t.progress:
		default:
		}
	}
}

// Progress delivers updates and is closed when the task ends.
func (t *Task) Progress() <-chan Progress {
	return t.progress
}

// Cancel asks the task to stop at its next checkpoint.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed when the task ends.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task ends and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}
