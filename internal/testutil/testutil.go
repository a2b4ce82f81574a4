// Package testutil holds helpers shared by the repository, hub, merge and
// CLI tests.
package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/briefcase/internal/ids"
)

// Partition is the narrow id window tests use so replica ranges have
// short, readable ids (replica 2 starts at 0x200000).
var Partition = ids.Partition{Bits: 20}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
