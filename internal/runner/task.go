package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/cesargomez89/tidarr/internal/domain"
)

// Task runs fn in its own goroutine behind the domain.Process interface.
// Interrupt and Kill both cancel fn's context; fn is expected to return
// promptly once it does.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result domain.Result
}

func Go(ctx context.Context, fn func(ctx context.Context) domain.Result) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer cancel()
		var res domain.Result
		defer func() {
			if r := recover(); r != nil {
				res = domain.Result{Err: fmt.Errorf("panic: %v", r)}
			}
			t.mu.Lock()
			t.result = res
			t.mu.Unlock()
			close(t.done)
		}()
		res = fn(ctx)
	}()

	return t
}

func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) Result() domain.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

func (t *Task) Interrupt() error {
	t.cancel()
	return nil
}

func (t *Task) Kill() error {
	t.cancel()
	return nil
}
