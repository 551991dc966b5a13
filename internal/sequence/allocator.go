// Package sequence allocates the short human-readable identifiers used on
// orders, dispatches and inventory items (ORD001, DIS002, RM-003). IDs are
// sequential per prefix with a zero-padded numeric suffix. Allocation is
// optimistic: the caller derives a candidate from the last issued ID, relies
// on a unique constraint to reject a concurrent winner, and retries.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultPadWidth is the suffix width below which numbers are zero padded.
// Note the sources compare ids as strings, so a sequence stalls once the
// suffix outgrows the pad width ("DIS999" sorts above "DIS1000"); the count
// of tarpaulin consignments per prefix sits well inside that bound.
const DefaultPadWidth = 3

// LastIDFunc returns the lexicographically largest ID issued for a prefix,
// or empty when none exists. Repositories provide this over their tables.
type LastIDFunc func(ctx context.Context, prefix string) (string, error)

// Allocator derives candidate IDs from the last issued one
type Allocator struct {
	lastID   LastIDFunc
	padWidth int
}

// New creates an allocator over the given lookup
func New(lastID LastIDFunc) *Allocator {
	return &Allocator{lastID: lastID, padWidth: DefaultPadWidth}
}

// Next returns the candidate ID following the last issued one for the
// prefix. The first ID of a prefix is prefix + "001" (or prefix + "-001"
// when the prefix already ends in a dash separator convention, which is the
// caller's choice of prefix spelling, e.g. "RM-").
func (a *Allocator) Next(ctx context.Context, prefix string) (string, error) {
	last, err := a.lastID(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("looking up last id for prefix %s: %w", prefix, err)
	}

	return NextInSequence(prefix, last, a.padWidth)
}

// NextScoped returns the next candidate for a prefix scoped to a date, e.g.
// transaction ids of the form TR-20260901-001. The scope resets the counter
// each day.
func (a *Allocator) NextScoped(ctx context.Context, prefix string, day time.Time) (string, error) {
	scoped := fmt.Sprintf("%s%s-", prefix, day.UTC().Format("20060102"))
	return a.Next(ctx, scoped)
}

// NextInSequence computes the successor of last for the given prefix. An
// empty last starts the sequence at 1. A malformed last (no parsable
// numeric suffix) is an error rather than a silent restart, since
// restarting would collide with existing rows.
func NextInSequence(prefix, last string, padWidth int) (string, error) {
	if last == "" {
		return prefix + pad(1, padWidth), nil
	}

	suffix := strings.TrimPrefix(last, prefix)
	if suffix == last || suffix == "" {
		return "", fmt.Errorf("id %q does not carry prefix %q", last, prefix)
	}

	n, err := strconv.Atoi(suffix)
	if err != nil {
		return "", fmt.Errorf("id %q has a non-numeric suffix: %w", last, err)
	}

	return prefix + pad(n+1, padWidth), nil
}

func pad(n, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}
