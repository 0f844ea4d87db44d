package eyeball

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"runtime"

	"github.com/gordian-engine/eyeball/internal/dchan"
)

// Subscriber receives the values published by an [*Observable]
// after the subscriber was created.
//
// Values arrive in publish order.
// If the subscriber falls further behind than the observable's history,
// the values it missed are skipped without error,
// and it resumes from the oldest value still retained.
//
// A Subscriber must not be read from multiple goroutines at once.
// Dropping a Subscriber without calling Close is fine;
// it is released when garbage collected.
type Subscriber[T any] struct {
	log *slog.Logger

	rx *dchan.Receiver[T]

	// Optional; applied to each received value.
	clone func(T) T
}

func newSubscriber[T any](
	log *slog.Logger, rx *dchan.Receiver[T], clone func(T) T,
) *Subscriber[T] {
	s := &Subscriber[T]{
		log:   log,
		rx:    rx,
		clone: clone,
	}

	runtime.AddCleanup(s, func(rx *dchan.Receiver[T]) {
		rx.Close()
	}, rx)

	return s
}

// Next blocks until the next value is available and returns it.
//
// Once the observable is closed and no buffered values remain,
// or once s is closed, Next returns [ErrExhausted],
// and keeps returning it on every later call.
//
// If ctx finishes first, Next returns the context's cause,
// and s remains usable.
func (s *Subscriber[T]) Next(ctx context.Context) (T, error) {
	for {
		res, err := s.rx.Recv(ctx)
		if err != nil {
			var zero T
			if errors.Is(err, dchan.ErrClosed) {
				return zero, ErrExhausted
			}
			return zero, err
		}

		if v, ok := s.accept(res); ok {
			return v, nil
		}
	}
}

// TryNext returns the next value if one is already available,
// without blocking.
//
// The boolean result is false if nothing is available yet.
// Once the sequence has ended, TryNext returns [ErrExhausted],
// the same as [*Subscriber.Next].
func (s *Subscriber[T]) TryNext() (T, bool, error) {
	for {
		res, err := s.rx.TryRecv()
		if err != nil {
			var zero T
			if errors.Is(err, dchan.ErrEmpty) {
				return zero, false, nil
			}
			return zero, false, ErrExhausted
		}

		if v, ok := s.accept(res); ok {
			return v, true, nil
		}
	}
}

// Values returns an iterator over the values of s.
// Iteration stops when the sequence ends or ctx finishes.
//
// The caller may break out of the loop at any time
// and continue reading from s later.
func (s *Subscriber[T]) Values(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Close releases s.
// It has no effect on the observable or on other subscribers.
// A concurrent call to Next returns [ErrExhausted].
// Close is safe to call more than once.
func (s *Subscriber[T]) Close() {
	s.rx.Close()
}

// accept converts a receive result into a value,
// reporting false for a lag notice.
func (s *Subscriber[T]) accept(res dchan.RecvResult[T]) (T, bool) {
	if res.Lagged > 0 {
		s.log.Debug("Subscriber lagged; skipping missed values", "missed", res.Lagged)
		var zero T
		return zero, false
	}

	if s.clone != nil {
		return s.clone(res.Val), true
	}
	return res.Val, true
}
