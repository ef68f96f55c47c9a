// Package batch runs one operation over many documents (volumes, bio files,
// match files) so that a failing document is reported and counted while its
// siblings carry on.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/internal/logging"
)

// Status is the outcome of one document.
type Status string

const (
	Succeeded Status = "succeeded"
	Skipped   Status = "skipped"
	Failed    Status = "failed"
)

// Func processes one document.
type Func func(ctx context.Context, id string) error

// Classify maps an error to an outcome. Documents that are missing or
// malformed are skipped; anything else is a failure.
func Classify(err error) Status {
	switch {
	case err == nil:
		return Succeeded
	case errors.Is(err, errors.ErrNotFound), errors.Is(err, errors.ErrInvalidInput),
		errors.Is(err, errors.ErrOutOfRange), errors.Is(err, errors.ErrInconsistent),
		errors.Is(err, errors.ErrMalformedTags):
		return Skipped
	default:
		return Failed
	}
}

// Summary is the outcome of a run.
type Summary struct {
	RunID     string
	Operation string
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Duration  time.Duration
	// Errors holds the error of every document that did not succeed.
	Errors map[string]error
}

// OK reports whether no document failed. Skipped documents do not count.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Runner processes documents with bounded parallelism.
type Runner struct {
	Operation string
	// Workers bounds the number of documents processed at once; values
	// below 1 mean one.
	Workers int
	// Metrics, when set, receives one observation per document.
	Metrics *Metrics
}

// Run calls fn for every id and waits for all of them. Documents not
// started when ctx is cancelled are skipped.
func (r *Runner) Run(ctx context.Context, ids []string, fn Func) Summary {
	workers := max(r.Workers, 1)
	sum := Summary{
		RunID:     uuid.NewString(),
		Operation: r.Operation,
		Total:     len(ids),
		Errors:    make(map[string]error),
	}
	ctx = logging.WithRunID(ctx, sum.RunID)
	start := time.Now()

	sem := semaphore.NewWeighted(int64(workers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(id string, err error, elapsed time.Duration) {
		s := Classify(err)
		mu.Lock()
		defer mu.Unlock()
		switch s {
		case Succeeded:
			sum.Succeeded++
		case Skipped:
			sum.Skipped++
			sum.Errors[id] = err
			logging.DocumentSkipped(ctx, id, err.Error(), "operation", r.Operation)
		default:
			sum.Failed++
			sum.Errors[id] = err
			logging.DocumentFailed(ctx, id, err, "operation", r.Operation)
		}
		if r.Metrics != nil {
			r.Metrics.observe(r.Operation, s, elapsed.Seconds())
		}
	}

	for i, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			for _, rest := range ids[i:] {
				record(rest, errors.NewValidation("run", "cancelled: "+err.Error()), 0)
			}
			break
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)
			t := time.Now()
			err := run(ctx, id, fn)
			record(id, err, time.Since(t))
		}(id)
	}
	wg.Wait()

	sum.Duration = time.Since(start)
	logging.BatchSummary(ctx, r.Operation, sum.Total, sum.Succeeded, sum.Skipped, sum.Failed, sum.Duration)
	return sum
}

// run calls fn, turning a panic into a failure of that document.
func run(ctx context.Context, id string, fn Func) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Wrapf(errPanic, "%s: %v", id, p)
		}
	}()
	return fn(ctx, id)
}

var errPanic = errors.New("panic")
