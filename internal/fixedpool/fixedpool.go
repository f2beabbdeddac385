// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package fixedpool runs a fixed set of long lived tasks, one goroutine each.
package fixedpool

import (
	"context"
	"errors"
	"sync"

	"github.com/z5labs/wirehttp/internal/try"
)

// Task is a unit of work run by [Wait].
type Task func(context.Context) error

// Wait runs every task concurrently and blocks until all of them return.
// The first task to fail cancels the context given to the rest, with its
// error as the cause. A panicking task fails with a [try.PanicError].
// The returned error joins every failure in task order.
func Wait(ctx context.Context, tasks ...Task) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	errs := make([]error, len(tasks))
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()

			err := run(ctx, task)
			if err != nil {
				errs[i] = err
				cancel(err)
			}
		}(i, task)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func run(ctx context.Context, task Task) (err error) {
	defer try.Recover(&err)

	return task(ctx)
}
