// Package hostmem reports host memory so that large backbones can be checked
// against what the machine has free before they are materialised.
package hostmem

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/mem"
)

// Report is a snapshot of host memory in bytes.
type Report struct {
	Total       uint64
	Available   uint64
	UsedPercent float64
}

// String formats the report for logs.
func (r Report) String() string {
	return fmt.Sprintf("%s available of %s (%.1f%% used)",
		humanize.IBytes(r.Available), humanize.IBytes(r.Total), r.UsedPercent)
}

// Fits reports whether n bytes fit into available memory.
func (r Report) Fits(n uint64) bool { return n <= r.Available }

// Probe reads host memory.
type Probe func(ctx context.Context) (Report, error)

// Read is the Probe backed by the operating system.
func Read(ctx context.Context) (Report, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reading host memory: %w", err)
	}
	return Report{Total: v.Total, Available: v.Available, UsedPercent: v.UsedPercent}, nil
}

// Per-parameter copies held while training with Adam: value, gradient and two moments.
const (
	inferenceCopies = 1
	trainingCopies  = 4
)

// Estimate returns the bytes needed to hold params float32 parameters and
// state float32 buffers (such as batch norm moving statistics).
func Estimate(params, state int, training bool) uint64 {
	copies := inferenceCopies
	if training {
		copies = trainingCopies
	}
	return uint64(params*copies+state) * 4
}

// Format renders n bytes with binary units.
func Format(n uint64) string { return humanize.IBytes(n) }
