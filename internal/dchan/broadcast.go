package dchan

import (
	"context"
	"fmt"
	"sync"
)

// Sender is the single producer handle of a bounded broadcast channel.
//
// The channel retains the most recent values in a ring of fixed capacity.
// Each [Receiver] holds its own cursor into the ring;
// a receiver that falls more than capacity values behind
// is told how many values it missed, through [RecvResult.Lagged],
// and is moved forward to the oldest value still retained.
type Sender[T any] struct {
	s *shared[T]
}

// Receiver is an independently progressing consumer handle
// created through [*Sender.Subscribe].
//
// Receives on a single Receiver must not happen concurrently,
// but [*Receiver.Close] may be called from any goroutine
// and wakes a blocked receive.
type Receiver[T any] struct {
	s *shared[T]

	// Absolute position of the next value to read.
	// Guarded by s.mu.
	next uint64

	// Guarded by s.mu.
	closed bool

	done      chan struct{}
	closeOnce sync.Once
}

// RecvResult is the outcome of a successful receive.
// Exactly one of Val or Lagged is meaningful:
// if Lagged is zero, Val holds the received value.
type RecvResult[T any] struct {
	Val T

	// The number of values that were overwritten
	// before the receiver could read them.
	Lagged uint64
}

type shared[T any] struct {
	mu sync.Mutex

	slots []slot[T]

	// Position that the next sent value will occupy.
	tail uint64

	nReceivers int

	closed bool

	// Closed and replaced on every send and on close,
	// so that any number of waiting receivers wake at once.
	ready chan struct{}
}

type slot[T any] struct {
	pos uint64
	val T
}

// NewBroadcast returns the producer handle for a new broadcast channel
// retaining up to capacity unread values.
// It panics if capacity is less than 1.
func NewBroadcast[T any](capacity int) *Sender[T] {
	if capacity < 1 {
		panic(fmt.Errorf("BUG: broadcast capacity must be at least 1 (got %d)", capacity))
	}

	return &Sender[T]{
		s: &shared[T]{
			slots: make([]slot[T], capacity),
			ready: make(chan struct{}),
		},
	}
}

// Subscribe returns a new Receiver that observes
// only values sent after this call.
//
// Subscribing to a closed channel returns a receiver
// that immediately reports [ErrClosed]
// and is not included in the receiver count.
func (tx *Sender[T]) Subscribe() *Receiver[T] {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rx := &Receiver[T]{
		s:    s,
		next: s.tail,
		done: make(chan struct{}),
	}

	if s.closed {
		rx.closed = true
		close(rx.done)
		return rx
	}

	s.nReceivers++
	return rx
}

// Send stores v in the channel and wakes all waiting receivers.
// It returns the number of receivers live at the time of the send.
//
// If there are no live receivers, v is not stored
// and Send returns [ErrNoReceivers].
// If the channel has been closed, Send returns [ErrClosed].
func (tx *Sender[T]) Send(v T) (int, error) {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if s.nReceivers == 0 {
		return 0, ErrNoReceivers
	}

	idx := s.tail % uint64(len(s.slots))
	s.slots[idx] = slot[T]{pos: s.tail, val: v}
	s.tail++

	close(s.ready)
	s.ready = make(chan struct{})

	return s.nReceivers, nil
}

// ReceiverCount reports the number of receivers that have not been closed.
func (tx *Sender[T]) ReceiverCount() int {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	return tx.s.nReceivers
}

// Close marks the channel closed.
// Receivers may still read any retained values they have not yet seen,
// after which they observe [ErrClosed].
// Close is safe to call more than once.
func (tx *Sender[T]) Close() {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.ready)
}

// Recv blocks until a value or lag notice is available,
// the channel is closed and drained, or ctx is done.
//
// Once the channel is closed and rx has read every retained value,
// Recv returns [ErrClosed].
// If ctx finishes first, Recv returns the context's cause
// and rx remains usable.
func (rx *Receiver[T]) Recv(ctx context.Context) (RecvResult[T], error) {
	for {
		res, ready, err := rx.tryRecv()
		if err != errEmpty {
			return res, err
		}

		select {
		case <-ctx.Done():
			return RecvResult[T]{}, context.Cause(ctx)
		case <-rx.done:
			return RecvResult[T]{}, ErrClosed
		case <-ready:
			// Something changed; check again.
		}
	}
}

// TryRecv is the non-blocking form of [*Receiver.Recv].
// It returns [ErrEmpty] if nothing is available yet.
func (rx *Receiver[T]) TryRecv() (RecvResult[T], error) {
	res, _, err := rx.tryRecv()
	if err == errEmpty {
		return res, ErrEmpty
	}
	return res, err
}

// tryRecv returns errEmpty along with the current ready channel
// when rx has nothing to read yet.
func (rx *Receiver[T]) tryRecv() (RecvResult[T], <-chan struct{}, error) {
	s := rx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if rx.closed {
		return RecvResult[T]{}, nil, ErrClosed
	}

	if rx.next < s.tail {
		capacity := uint64(len(s.slots))
		var oldest uint64
		if s.tail > capacity {
			oldest = s.tail - capacity
		}

		if rx.next < oldest {
			missed := oldest - rx.next
			rx.next = oldest
			return RecvResult[T]{Lagged: missed}, nil, nil
		}

		sl := s.slots[rx.next%capacity]
		if sl.pos != rx.next {
			panic(fmt.Errorf(
				"BUG: slot holds position %d but receiver expected %d",
				sl.pos, rx.next,
			))
		}
		rx.next++
		return RecvResult[T]{Val: sl.val}, nil, nil
	}

	if s.closed {
		return RecvResult[T]{}, nil, ErrClosed
	}

	return RecvResult[T]{}, s.ready, errEmpty
}

// Close releases rx, so that it no longer counts
// towards the sender's receiver count.
// Further receives on rx report [ErrClosed].
// Close is safe to call more than once.
func (rx *Receiver[T]) Close() {
	rx.closeOnce.Do(func() {
		s := rx.s
		s.mu.Lock()
		defer s.mu.Unlock()

		if rx.closed {
			// Created after the sender closed; never counted.
			return
		}

		rx.closed = true
		s.nReceivers--
		close(rx.done)
	})
}
