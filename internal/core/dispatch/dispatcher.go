package dispatch

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/bookcast/ingest/internal/core"
)

// Dispatcher hands heavy work to a Runner and reports the outcome through
// the callback webhook. The job receives a fresh background context: the
// triggering HTTP request is long gone by the time the job runs, so every
// value the job needs must be captured into its closure.
type Dispatcher struct {
	runner   Runner
	notifier core.Notifier
}

func NewDispatcher(runner Runner, notifier core.Notifier) *Dispatcher {
	return &Dispatcher{runner: runner, notifier: notifier}
}

// Dispatch schedules job and returns immediately. Exactly one notification
// is attempted when the job finishes, panics included.
func (d *Dispatcher) Dispatch(bookID, callbackURL string, job func(ctx context.Context) (string, error)) {
	jobID := uuid.NewString()
	d.runner.Submit(func() {
		ctx := context.Background()
		log.Printf("Dispatch: job %s started for book %s", jobID, bookID)

		defer func() {
			if r := recover(); r != nil {
				log.Printf("Dispatch: job %s for book %s panicked: %v", jobID, bookID, r)
				d.notifier.Notify(ctx, callbackURL, bookID, "error", fmt.Sprintf("internal error: %v", r))
			}
		}()

		message, err := job(ctx)
		if err != nil {
			log.Printf("Dispatch: job %s for book %s failed: %v", jobID, bookID, err)
			d.notifier.Notify(ctx, callbackURL, bookID, "error", err.Error())
			return
		}
		log.Printf("Dispatch: job %s for book %s completed", jobID, bookID)
		d.notifier.Notify(ctx, callbackURL, bookID, "completed", message)
	})
}
