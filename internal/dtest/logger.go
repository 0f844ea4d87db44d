package dtest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a logger whose output is routed through t.Log,
// so it only appears for failing or verbose tests.
func NewLogger(t *testing.T) *slog.Logger {
	return slogt.New(t)
}
