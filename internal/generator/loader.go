package generator

import (
	"context"
	"errors"
	"sync"

	"github.com/lcardona/depositrack/internal/domain"
)

// TaskError accumulates multiple errors produced during bulk loading.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Inserter is the write slice of the store the loader needs.
type Inserter interface {
	InsertDeposit(ctx context.Context, d domain.Deposit) error
	UpsertContact(ctx context.Context, c domain.Contact) error
}

// Loader writes a generated dataset into a store using a worker pool.
type Loader struct {
	store   Inserter
	workers int
}

// NewLoader creates a Loader with the provided concurrency.
func NewLoader(store Inserter, workers int) *Loader {
	if workers <= 0 {
		workers = 4
	}
	return &Loader{store: store, workers: workers}
}

// Load inserts every deposit and contact of the dataset.
func (l *Loader) Load(ctx context.Context, ds Dataset) error {
	if err := l.run(ctx, len(ds.Deposits), func(idx int) error {
		return l.store.InsertDeposit(ctx, ds.Deposits[idx])
	}); err != nil {
		return err
	}
	return l.run(ctx, len(ds.Contacts), func(idx int) error {
		return l.store.UpsertContact(ctx, ds.Contacts[idx])
	})
}

func (l *Loader) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
