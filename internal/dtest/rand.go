package dtest

import (
	"crypto/sha256"
	"math/rand/v2"
	"testing"
)

// RandomIntsForTest returns n pseudorandom ints,
// derived from a seed based on the test name,
// so that a failing sequence is reproducible.
func RandomIntsForTest(t *testing.T, n int) []int {
	// Sha256 happens to be the right size for the chacha8 seed,
	// and it means we are not limited by the length of any particular test name.
	seed := sha256.Sum256([]byte(t.Name()))
	rng := rand.New(rand.NewChaCha8(seed))

	out := make([]int, n)
	for i := range out {
		out[i] = rng.Int()
	}

	return out
}
