package dtest

import (
	"testing"
	"time"
)

// soon is how long the "Soon" helpers wait
// before failing the test.
// It is generous so that loaded CI machines do not flake.
const soon = time.Second

// ReceiveSoon returns the value received from ch,
// failing the test if nothing arrives within a short duration.
func ReceiveSoon[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(soon):
		t.Fatalf("did not receive value within %s", soon)
		var zero T
		return zero
	}
}

// SendSoon sends v on ch,
// failing the test if the send does not complete within a short duration.
func SendSoon[T any](t *testing.T, ch chan<- T, v T) {
	t.Helper()

	select {
	case ch <- v:
		// Okay.
	case <-time.After(soon):
		t.Fatalf("could not send value within %s", soon)
	}
}

// IsSending asserts that ch is immediately readable.
// Typically ch is a closed signal channel.
func IsSending[T any](t *testing.T, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		// Okay.
	default:
		t.Fatal("channel should have been ready to receive")
	}
}

// NotSending asserts that ch does not become readable
// within a brief window.
func NotSending[T any](t *testing.T, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		t.Fatal("channel should not have been ready to receive")
	case <-time.After(10 * time.Millisecond):
		// Okay.
	}
}
