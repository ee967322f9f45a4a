// Package status renders the state of a migration ledger for humans.
package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/loykin/bridges/pkg/migration"
)

// Info aggregates status information: every known unit and the last batch.
type Info struct {
	Units     []migration.Status
	LastBatch int64
}

// FromRunner collects status information through a runner.
func FromRunner(ctx context.Context, r *migration.Runner) (Info, error) {
	units, err := r.Status(ctx)
	if err != nil {
		return Info{}, err
	}
	var last int64
	for _, u := range units {
		last = max(last, u.Batch)
	}
	return Info{Units: units, LastBatch: last}, nil
}

// Pending returns the names of registered units not yet applied.
func (i Info) Pending() []string {
	var out []string
	for _, u := range i.Units {
		if u.Registered && !u.Applied {
			out = append(out, u.Name)
		}
	}
	return out
}

// Missing returns applied units that are no longer registered.
func (i Info) Missing() []string {
	var out []string
	for _, u := range i.Units {
		if !u.Registered {
			out = append(out, u.Name)
		}
	}
	return out
}

// FormatHuman returns a human-friendly multiline string for CLI output.
// verbose=false prints the summary only; verbose=true adds one line per unit.
func (i Info) FormatHuman(verbose bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "batch: %d\npending: %v\n", i.LastBatch, i.Pending())
	if missing := i.Missing(); len(missing) > 0 {
		fmt.Fprintf(&b, "missing: %v\n", missing)
	}
	if !verbose {
		return b.String()
	}
	width := 0
	for _, u := range i.Units {
		width = max(width, len(u.Name))
	}
	b.WriteString("migrations:\n")
	for _, u := range i.Units {
		state := "pending"
		switch {
		case !u.Registered:
			state = fmt.Sprintf("missing (batch %d)", u.Batch)
		case u.Applied:
			state = fmt.Sprintf("applied (batch %d)", u.Batch)
		}
		fmt.Fprintf(&b, "  %-*s  %s\n", width, u.Name, state)
	}
	return b.String()
}
