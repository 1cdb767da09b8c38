// Package ticket provides a mutual exclusion lock granted in strict arrival order.
package ticket

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStalled is returned to a waiter that did not get the lock within the stall timeout.
// The waiter leaves the queue: it never takes the lock from the current holder.
var ErrStalled = errors.New("lock holder stalled")

type waiter struct {
	ticket uint64
	ready  chan struct{}
}

// Lock is a fair mutex: waiters are served in the order they called Lock.
// The zero value is an unlocked lock without stall timeout.
type Lock struct {
	mu      sync.Mutex
	held    bool
	next    uint64
	serving uint64
	queue   []*waiter
	// StallTimeout is the longest a waiter will queue before giving up with ErrStalled. Zero means no limit.
	StallTimeout time.Duration
}

func New(stallTimeout time.Duration) *Lock {
	return &Lock{
		StallTimeout: stallTimeout,
	}
}

// Lock blocks until it's the caller's turn. It returns ErrStalled after StallTimeout,
// or the context error if the context is done first. In both cases the lock is not held.
func (l *Lock) Lock(ctx context.Context) error {
	l.mu.Lock()
	ticket := l.next
	l.next++
	if !l.held && len(l.queue) == 0 {
		l.held = true
		l.serving = ticket
		l.mu.Unlock()
		return nil
	}
	w := &waiter{
		ticket: ticket,
		ready:  make(chan struct{}),
	}
	l.queue = append(l.queue, w)
	l.mu.Unlock()

	var stalled <-chan time.Time
	if l.StallTimeout > 0 {
		timer := time.NewTimer(l.StallTimeout)
		defer timer.Stop()
		stalled = timer.C
	}

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		return l.abandon(w, ctx.Err())
	case <-stalled:
		return l.abandon(w, ErrStalled)
	}
}

// abandon removes the waiter from the queue. If the lock was handed over
// in the meantime, it's passed on to the next waiter.
func (l *Lock) abandon(w *waiter, err error) error {
	l.mu.Lock()
	for i, queued := range l.queue {
		if queued == w {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			l.mu.Unlock()
			return err
		}
	}
	l.mu.Unlock()
	// not in the queue anymore: we've been given the lock
	l.Unlock()
	return err
}

// Unlock hands the lock to the next waiter, or leaves it free
func (l *Lock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		panic("ticket: unlock of unlocked lock")
	}
	if len(l.queue) == 0 {
		l.held = false
		return
	}
	w := l.queue[0]
	l.queue = l.queue[1:]
	l.serving = w.ticket
	close(w.ready)
}

// Waiting returns the number of callers queued for the lock
func (l *Lock) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Serving returns the ticket of the current (or last) holder
func (l *Lock) Serving() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.serving
}
