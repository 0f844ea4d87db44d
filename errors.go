package eyeball

import "errors"

// ErrExhausted is returned from [*Subscriber.Next]
// once the subscriber's sequence has ended,
// either because the [*Observable] was closed
// and no buffered values remain,
// or because the subscriber itself was closed.
//
// It is a normal completion signal.
// Every later call to Next returns it again.
var ErrExhausted = errors.New("subscriber exhausted")
