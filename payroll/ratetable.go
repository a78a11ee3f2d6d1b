/*
ratetable.go - Immutable bracket tables for statutory contribution rules

PURPOSE:
  A RateTable is the data half of a contribution rule: an ordered sequence
  of (upper_bound, amount) pairs partitioning [0, +inf) with no gaps and
  no overlaps. Lookup uses the statutory CEILING-MATCH convention: the
  smallest bracket whose upper bound is >= the compensation wins, because
  contribution is credited against the bracket ceiling, not raw pay.

CLAMPING:
  Compensation above the table's maximum bound matches the LAST bracket
  (ceiling-capped contribution) rather than erroring. The last entry is
  therefore the +inf bracket in spirit; its bound doubles as the cap.

INVARIANTS (enforced at construction, never at query time):
  - at least one bracket
  - strictly increasing upper bounds

SEE ALSO:
  - contribution.go: the calculator forms that consume these tables
  - tax.go: progressive tax brackets (different shape, same philosophy)
*/
package payroll

import (
	"fmt"
)

// Bracket is one rate table entry. The meaning of Amount depends on the
// calculator form: a precomputed total contribution for fixed tables,
// unused for pure ceiling tables.
type Bracket struct {
	UpperBound Money
	Amount     Money
}

// RateTable is an immutable, ordered bracket sequence.
type RateTable struct {
	brackets []Bracket
}

// NewRateTable validates and builds a RateTable.
func NewRateTable(brackets []Bracket) (*RateTable, error) {
	if len(brackets) == 0 {
		return nil, fmt.Errorf("%w: no brackets", ErrInvalidRateTable)
	}
	for i := 1; i < len(brackets); i++ {
		if brackets[i].UpperBound.LessThanOrEqual(brackets[i-1].UpperBound) {
			return nil, fmt.Errorf("%w: bounds not strictly increasing at index %d (%s after %s)",
				ErrInvalidRateTable, i, brackets[i].UpperBound, brackets[i-1].UpperBound)
		}
	}
	t := &RateTable{brackets: make([]Bracket, len(brackets))}
	copy(t.brackets, brackets)
	return t, nil
}

// NewCeilingTable builds a table from bare bounds. Used by the
// percent-of-base form, where only the matched ceiling matters.
func NewCeilingTable(bounds []Money) (*RateTable, error) {
	brackets := make([]Bracket, len(bounds))
	for i, b := range bounds {
		brackets[i] = Bracket{UpperBound: b}
	}
	return NewRateTable(brackets)
}

// Match locates the smallest bracket whose upper bound >= compensation.
// Compensation above the maximum bound clamps to the last bracket.
func (t *RateTable) Match(compensation Money) Bracket {
	for _, b := range t.brackets {
		if b.UpperBound.GreaterThanOrEqual(compensation) {
			return b
		}
	}
	return t.brackets[len(t.brackets)-1]
}

// Ceiling returns the matched bracket's upper bound (the credited base).
func (t *RateTable) Ceiling(compensation Money) Money {
	return t.Match(compensation).UpperBound
}

// Max returns the table's highest bound (the cap).
func (t *RateTable) Max() Money {
	return t.brackets[len(t.brackets)-1].UpperBound
}

// Len returns the number of brackets.
func (t *RateTable) Len() int { return len(t.brackets) }

// Brackets returns a copy of the bracket sequence.
func (t *RateTable) Brackets() []Bracket {
	out := make([]Bracket, len(t.brackets))
	copy(out, t.brackets)
	return out
}

// SteppedBounds builds the bound sequence [first, first+step, ..., last].
// Convenience for statutory salary-credit tables published as uniform
// bands (e.g., 3,250 to 24,750 in 500-peso steps, capped at 25,000).
// A non-positive step yields nil, which NewCeilingTable rejects as an
// empty table.
func SteppedBounds(first, step, last Money) []Money {
	if !step.IsPositive() {
		return nil
	}
	var bounds []Money
	for b := first; b.LessThanOrEqual(last); b = b.Add(step) {
		bounds = append(bounds, b)
	}
	if len(bounds) == 0 || bounds[len(bounds)-1].LessThan(last) {
		bounds = append(bounds, last)
	}
	return bounds
}
