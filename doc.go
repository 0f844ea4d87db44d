// Package eyeball provides observable values:
// a single-writer container for a value of type T
// whose changes are pushed to any number of subscribers.
//
// An [*Observable] holds the current value.
// Every mutation goes through one of its update methods,
// so that changing the value and notifying subscribers never diverge.
// Each [*Subscriber] pulls values published after it subscribed,
// in publish order.
//
// Observables retain a bounded history of published values
// (one value by default).
// A subscriber that falls further behind than that history
// silently skips ahead to the oldest value still retained;
// subscribers are meant to converge on the latest value,
// not to observe every intermediate one.
//
// Closing the observable, or letting it be garbage collected,
// ends every subscriber's sequence once the subscriber
// has read whatever remains buffered.
package eyeball
