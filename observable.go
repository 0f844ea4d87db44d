package eyeball

import (
	"context"
	"fmt"
	"hash/maphash"
	"log/slog"
	"runtime"
	"sync"

	"github.com/gordian-engine/eyeball/internal/dchan"
	"github.com/gordian-engine/eyeball/internal/dtrace"
)

// Observable is a value whose changes are broadcast to subscribers.
//
// There is no way to mutate the held value directly;
// every mutation goes through [*Observable.Set], [*Observable.Replace],
// [*Observable.Update], or one of the change-detecting updates,
// all of which publish the new value.
//
// Observable is intended to have a single logical writer.
// Concurrent writers are serialized, and subscribers observe
// values in the order the writes were committed.
// [*Observable.Get] and [*Observable.Subscribe]
// may be called from any goroutine.
type Observable[T any] struct {
	log *slog.Logger

	tracer    dtrace.Tracer
	onPublish func(T, int)
	clone     func(T) T
	seed      maphash.Seed

	// Nil unless a Clone function was configured,
	// in which case each subscriber clones what it receives.
	subscriberClone func(T) T

	mu  sync.RWMutex
	val T

	// Number of publishes so far,
	// used to identify values in diagnostics.
	version uint64

	tx *dchan.Sender[T]
}

// New returns an Observable holding initial,
// using the default configuration.
func New[T any](initial T) *Observable[T] {
	return NewWithConfig(nil, initial, ObservableConfig[T]{})
}

// NewWithConfig returns an Observable holding initial.
// If log is nil, log output is discarded.
//
// NewWithConfig panics if cfg.History is negative.
func NewWithConfig[T any](
	log *slog.Logger, initial T, cfg ObservableConfig[T],
) *Observable[T] {
	if cfg.History < 0 {
		panic(fmt.Errorf("BUG: ObservableConfig.History must not be negative (got %d)", cfg.History))
	}
	history := cfg.History
	if history == 0 {
		history = 1
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	clone := cfg.Clone
	if clone == nil {
		clone = func(v T) T { return v }
	}

	o := &Observable[T]{
		log: log,

		tracer:    dtrace.TracerFrom(cfg.TracerProvider),
		onPublish: cfg.OnPublish,
		clone:     clone,
		seed:      maphash.MakeSeed(),

		subscriberClone: cfg.Clone,

		val: initial,

		tx: dchan.NewBroadcast[T](history),
	}

	// Subscribers only reference the channel,
	// so o becomes unreachable once its owner drops it,
	// and the subscribers then see the end of their sequence.
	runtime.AddCleanup(o, func(tx *dchan.Sender[T]) {
		tx.Close()
	}, o.tx)

	return o
}

// Subscribe returns a new Subscriber that observes
// every value published after this call.
// The current value is not replayed.
func (o *Observable[T]) Subscribe() *Subscriber[T] {
	return newSubscriber(o.log, o.tx.Subscribe(), o.subscriberClone)
}

// SubscriberCount reports the number of subscribers
// that have not been closed or garbage collected.
// Subscribers created after [*Observable.Close] are not counted.
func (o *Observable[T]) SubscriberCount() int {
	return o.tx.ReceiverCount()
}

// Get returns the current value.
//
// If T contains references, the caller must treat
// the referenced data as read-only.
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.val
}

// Set replaces the held value with v and publishes it.
func (o *Observable[T]) Set(v T) {
	_ = o.Replace(v)
}

// Replace replaces the held value with v, publishes it,
// and returns the previous value.
// The value is published even if it is equal to the previous one.
func (o *Observable[T]) Replace(v T) T {
	var prev T
	o.commit(func(cur *T) bool {
		prev = *cur
		*cur = v
		return true
	})
	return prev
}

// Update calls f with a pointer to the held value,
// then publishes the result.
//
// Subscribers are notified even if f did not change anything.
// Use [UpdateIfChanged] or [UpdateIfHashChanged]
// to skip notifications for no-op updates.
//
// f is called with the observable's lock held,
// so it must not call any methods on o.
func (o *Observable[T]) Update(f func(*T)) {
	o.commit(func(cur *T) bool {
		f(cur)
		return true
	})
}

// UpdateIfChangedFunc calls f with a pointer to the held value,
// and publishes the result only if eq reports that it differs
// from the value before f was called.
// It reports whether the value was published.
//
// The comparison is against a copy made with the configured Clone function.
func (o *Observable[T]) UpdateIfChangedFunc(eq func(a, b T) bool, f func(*T)) bool {
	return o.commit(func(cur *T) bool {
		prev := o.clone(*cur)
		f(cur)
		return !eq(prev, *cur)
	})
}

// UpdateIfHashChangedFunc calls f with a pointer to the held value,
// and publishes the result only if its hash differs
// from the hash of the value before f was called.
// It reports whether the value was published.
//
// The hash function writes the relevant content of a value into h.
// A hash collision would hide a real change;
// with a 64-bit hash that risk is accepted.
func (o *Observable[T]) UpdateIfHashChangedFunc(hash func(h *maphash.Hash, v T), f func(*T)) bool {
	var h maphash.Hash
	h.SetSeed(o.seed)

	return o.commit(func(cur *T) bool {
		hash(&h, *cur)
		before := h.Sum64()

		f(cur)

		h.Reset()
		hash(&h, *cur)
		return h.Sum64() != before
	})
}

// Close ends every subscriber's sequence,
// after they read any values still buffered.
// Mutations after Close still change the held value
// but publish nothing.
// Close is safe to call more than once.
func (o *Observable[T]) Close() {
	o.tx.Close()
}

// UpdateIfChanged calls f with a pointer to o's value,
// and publishes the result only if it is not equal
// to the value before f was called.
// It reports whether the value was published.
func UpdateIfChanged[T comparable](o *Observable[T], f func(*T)) bool {
	return o.UpdateIfChangedFunc(func(a, b T) bool { return a == b }, f)
}

// UpdateIfHashChanged calls f with a pointer to o's value,
// and publishes the result only if its hash
// differs from the hash of the value before f was called.
// It reports whether the value was published.
//
// The hash is [maphash.WriteComparable], which follows == semantics:
// pointer, channel, and interface fields holding pointers
// are hashed by address rather than by what they point to,
// and a NaN float hashes to a random value,
// so a T containing NaN publishes on every call.
// Use [*Observable.UpdateIfHashChangedFunc] to hash content instead.
func UpdateIfHashChanged[T comparable](o *Observable[T], f func(*T)) bool {
	return o.UpdateIfHashChangedFunc(func(h *maphash.Hash, v T) {
		maphash.WriteComparable(h, v)
	}, f)
}

// publication is the record of a single publish,
// reported after the lock is released.
type publication[T any] struct {
	Val       T
	Receivers int
	Version   uint64
}

// commit calls mutate with the held value under the write lock,
// and publishes the result if mutate returns true.
// Diagnostics are emitted after the lock is released.
// It reports whether a publish happened.
func (o *Observable[T]) commit(mutate func(*T) bool) bool {
	p, ok := o.commitLocked(mutate)
	if ok {
		o.report(p)
	}
	return ok
}

func (o *Observable[T]) commitLocked(mutate func(*T) bool) (publication[T], bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !mutate(&o.val) {
		return publication[T]{}, false
	}

	return o.publishLocked(), true
}

// publishLocked sends the current value to all live subscribers.
// It must be called with o.mu held for writing,
// so that values enter the channel in commit order.
func (o *Observable[T]) publishLocked() publication[T] {
	o.version++

	if o.tx.ReceiverCount() == 0 {
		return publication[T]{}
	}

	v := o.clone(o.val)

	// ErrNoReceivers means every subscriber went away since the check above,
	// and ErrClosed means o was closed;
	// neither concerns the writer.
	n, err := o.tx.Send(v)
	if err != nil {
		return publication[T]{}
	}

	return publication[T]{
		Val:       v,
		Receivers: n,
		Version:   o.version,
	}
}

// report emits the diagnostics for p, if it reached any subscriber.
func (o *Observable[T]) report(p publication[T]) {
	if p.Receivers == 0 {
		return
	}

	o.log.Debug(
		"Broadcast observable update",
		"receivers", p.Receivers,
		"version", p.Version,
	)

	_, span := o.tracer.Start(
		context.Background(),
		"observable publish",
		dtrace.WithAttributes(
			dtrace.ReceiversAttr(p.Receivers),
			dtrace.VersionAttr(p.Version),
		),
	)
	if span.IsRecording() {
		span.SetAttributes(dtrace.ValueAttr(p.Val))
	}
	span.End()

	if o.onPublish != nil {
		o.onPublish(p.Val, p.Receivers)
	}
}
