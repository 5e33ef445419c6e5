package autosave

import (
	"context"
	"sync"
)

type Outcome string

const (
	OutcomeSaved     Outcome = "saved"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

type Result struct {
	Outcome Outcome
	Err     error
}

// Ticket resolves once the debounced save it belongs to has finished or been
// cancelled. Edits coalesced into one save share a ticket.
type Ticket struct {
	done   chan struct{}
	once   sync.Once
	result Result
}

func newTicket() *Ticket {
	return &Ticket{done: make(chan struct{})}
}

func (t *Ticket) resolve(r Result) {
	t.once.Do(func() {
		t.result = r
		close(t.done)
	})
}

func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the ticket resolves or ctx ends.
func (t *Ticket) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the outcome without blocking.
func (t *Ticket) Result() (Result, bool) {
	select {
	case <-t.done:
		return t.result, true
	default:
		return Result{}, false
	}
}
