package eyeball

import "github.com/gordian-engine/eyeball/internal/dtrace"

// ObservableConfig is the configuration passed to [NewWithConfig].
// The zero value is valid.
type ObservableConfig[T any] struct {
	// How many published values to retain for subscribers
	// that have not yet read them.
	// Zero means 1.
	History int

	// Clone returns an independent copy of a value.
	// Subscribers always receive a clone,
	// and the change-detecting updates compare against a clone.
	// If nil, plain assignment is used,
	// which is only a deep copy for types without
	// pointers, slices, or maps.
	Clone func(T) T

	// OnPublish, if set, is called after every publish
	// that reached at least one subscriber,
	// with the published value and the subscriber count.
	// It is called without any of the observable's locks held.
	OnPublish func(value T, receivers int)

	// Tracer provider for publish spans.
	// If nil, a no-op provider is used.
	TracerProvider dtrace.TracerProvider
}
