package shared

import (
	"context"
	"fmt"
)

// Task is a unit of work run by [Join].
type Task func(ctx context.Context) error

// Join runs tasks with at most limit in flight and waits for all of them.
//
// The first error is returned as soon as it is observed. Tasks already running
// are left to finish on their own and tasks not yet started are never started.
// A limit <= 0 runs every task at once.
func Join(ctx context.Context, limit int, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(tasks) {
		limit = len(tasks)
	}

	// Buffered for every task so stragglers never block after an early return.
	results := make(chan error, len(tasks))
	sem := make(chan struct{}, limit)
	stop := make(chan struct{})

	go func() {
		for _, task := range tasks {
			select {
			case sem <- struct{}{}:
			case <-stop:
				return
			}

			select {
			case <-stop:
				<-sem
				return
			default:
			}

			go func(task Task) {
				defer func() { <-sem }()
				results <- runTask(ctx, task)
			}(task)
		}
	}()

	for range tasks {
		select {
		case err := <-results:
			if err != nil {
				close(stop)
				return err
			}
		case <-ctx.Done():
			close(stop)
			return ctx.Err()
		}
	}
	return nil
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}
