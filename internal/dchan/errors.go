package dchan

import "errors"

// ErrClosed is returned by [*Sender.Send] after the channel is closed,
// and by receives once a closed channel has been drained
// or the receiver itself has been closed.
var ErrClosed = errors.New("broadcast channel closed")

// ErrNoReceivers is returned by [*Sender.Send]
// when no receivers are live to accept the value.
var ErrNoReceivers = errors.New("no live receivers")

// ErrEmpty is returned by [*Receiver.TryRecv]
// when no value is available yet.
var ErrEmpty = errors.New("no value available")

// errEmpty tells the blocking receive path to wait on the ready channel.
var errEmpty = errors.New("empty")
