package eyeballtest

import (
	"context"
	"time"

	"github.com/gordian-engine/eyeball"
	"github.com/stretchr/testify/require"
)

// TestingT is the subset of *testing.T used by the helpers in this package.
type TestingT interface {
	require.TestingT
	Helper()
}

// nextTimeout bounds how long the helpers wait for a value.
const nextTimeout = time.Second

// NextSoon returns the next value from s,
// failing the test if none arrives within a short duration
// or if the sequence has ended.
func NextSoon[T any](t TestingT, s *eyeball.Subscriber[T]) T {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), nextTimeout)
	defer cancel()

	v, err := s.Next(ctx)
	require.NoError(t, err)
	return v
}

// RequireNext asserts that the next value from s equals want.
func RequireNext[T any](t TestingT, s *eyeball.Subscriber[T], want T) {
	t.Helper()

	require.Equal(t, want, NextSoon(t, s))
}

// RequireExhausted asserts that s has reached the end of its sequence.
func RequireExhausted[T any](t TestingT, s *eyeball.Subscriber[T]) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), nextTimeout)
	defer cancel()

	v, err := s.Next(ctx)
	require.ErrorIsf(t, err, eyeball.ErrExhausted, "expected end of sequence, got value %v", v)
}

// RequireNoValue asserts that s is still active
// but has nothing to read right now,
// without consuming anything if that holds.
func RequireNoValue[T any](t TestingT, s *eyeball.Subscriber[T]) {
	t.Helper()

	v, ok, err := s.TryNext()
	require.NoError(t, err, "expected an idle subscriber, but its sequence has ended")
	require.Falsef(t, ok, "expected no value, got %v", v)
}
