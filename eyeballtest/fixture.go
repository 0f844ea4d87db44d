package eyeballtest

import (
	"sync"
	"testing"

	"github.com/gordian-engine/eyeball"
	"github.com/gordian-engine/eyeball/internal/dtest"
)

// ObservableFixture wraps an [*eyeball.Observable]
// with a test logger and a record of every publish
// that reached at least one subscriber.
//
// Create an instance with [NewObservableFixture].
type ObservableFixture[T any] struct {
	Observable *eyeball.Observable[T]

	mu        sync.Mutex
	publishes []Publish[T]
}

// Publish is a single recorded publish.
type Publish[T any] struct {
	Val       T
	Receivers int
}

// NewObservableFixture returns an ObservableFixture holding initial.
//
// Any OnPublish callback in cfg is still called,
// after the fixture records the publish.
// The observable is closed when the test finishes.
func NewObservableFixture[T any](
	t *testing.T, initial T, cfg eyeball.ObservableConfig[T],
) *ObservableFixture[T] {
	t.Helper()

	f := new(ObservableFixture[T])

	inner := cfg.OnPublish
	cfg.OnPublish = func(v T, n int) {
		f.mu.Lock()
		f.publishes = append(f.publishes, Publish[T]{Val: v, Receivers: n})
		f.mu.Unlock()

		if inner != nil {
			inner(v, n)
		}
	}

	f.Observable = eyeball.NewWithConfig(dtest.NewLogger(t), initial, cfg)
	t.Cleanup(f.Observable.Close)

	return f
}

// Publishes returns a copy of the publishes recorded so far.
func (f *ObservableFixture[T]) Publishes() []Publish[T] {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Publish[T], len(f.publishes))
	copy(out, f.publishes)
	return out
}
