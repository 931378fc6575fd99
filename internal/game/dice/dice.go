// Package dice provides the single-die abstraction, its randomness sources,
// and the roll-result audit types used by every polydie surface.
package dice

import (
	"fmt"
	"strings"
)

// RollResult holds the audit trail for one roll call against a single die.
//
// Postcondition: Total() == sum(Values).
type RollResult struct {
	Notation string // expression that produced the roll, e.g. "3d6"
	Faces    int    // face count of the rolled die
	Values   []int  // individual face values in draw order
}

// Total returns the sum of all rolled values.
//
// Postcondition: return value == sum(r.Values).
func (r RollResult) Total() int {
	total := 0
	for _, v := range r.Values {
		total += v
	}
	return total
}

// String returns a human-readable audit string in the format:
//
//	"3d6 → [1 4 6] = 11"
//
// Precondition: r.Notation is non-empty.
func (r RollResult) String() string {
	if r.Notation == "" {
		panic("dice: RollResult.String() precondition violated: Notation must be non-empty")
	}
	parts := make([]string, len(r.Values))
	for i, v := range r.Values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%s → [%s] = %d", r.Notation, strings.Join(parts, " "), r.Total())
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
