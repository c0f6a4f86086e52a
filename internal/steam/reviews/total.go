package reviews

import (
	"context"
	"sync"
)

// Total is the review count the provider announces on the first page that
// carries one. It is resolved exactly once, to a value or to the failure that
// prevented one, and stays resolved afterwards.
type Total struct {
	once  sync.Once
	done  chan struct{}
	value int
	err   error
}

func newTotal() *Total {
	return &Total{done: make(chan struct{})}
}

func (t *Total) settle(value int, err error) bool {
	settled := false
	t.once.Do(func() {
		t.value = value
		t.err = err
		settled = true
		close(t.done)
	})
	return settled
}

func (t *Total) resolve(value int) bool {
	return t.settle(value, nil)
}

func (t *Total) reject(err error) bool {
	return t.settle(0, err)
}

// Done is closed once the total is resolved.
func (t *Total) Done() <-chan struct{} {
	return t.done
}

// Resolved reports, without blocking, whether Wait would return immediately.
func (t *Total) Resolved() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the total is resolved or ctx is done, cancelling ctx
// does not affect the total itself.
func (t *Total) Wait(ctx context.Context) (int, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
