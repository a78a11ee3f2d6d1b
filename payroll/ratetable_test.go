package payroll_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// Note: d and mscTable are shared by the other _test.go files in this package.

func d(v float64) payroll.Money { return decimal.NewFromFloat(v) }

// mscTable is the 2023-revision salary credit table shape: 3,250 to
// 24,750 in 500 steps, capped at 25,000.
func mscTable(t *testing.T) *payroll.RateTable {
	t.Helper()
	table, err := payroll.NewCeilingTable(payroll.SteppedBounds(d(3250), d(500), d(25000)))
	if err != nil {
		t.Fatalf("NewCeilingTable: %v", err)
	}
	return table
}

func eq(t *testing.T, got, want payroll.Money, label string) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", label, got, want)
	}
}

// =============================================================================
// CONSTRUCTION INVARIANTS
// =============================================================================

func TestNewRateTable_Empty_Rejected(t *testing.T) {
	_, err := payroll.NewRateTable(nil)
	if !errors.Is(err, payroll.ErrInvalidRateTable) {
		t.Fatalf("expected ErrInvalidRateTable, got %v", err)
	}
}

func TestNewRateTable_NonIncreasingBounds_Rejected(t *testing.T) {
	_, err := payroll.NewRateTable([]payroll.Bracket{
		{UpperBound: d(1000)},
		{UpperBound: d(1000)},
	})
	if !errors.Is(err, payroll.ErrInvalidRateTable) {
		t.Fatalf("expected ErrInvalidRateTable, got %v", err)
	}

	_, err = payroll.NewRateTable([]payroll.Bracket{
		{UpperBound: d(2000)},
		{UpperBound: d(1000)},
	})
	if !errors.Is(err, payroll.ErrInvalidRateTable) {
		t.Fatalf("expected ErrInvalidRateTable, got %v", err)
	}
}

// =============================================================================
// CEILING-MATCH SEMANTICS
// =============================================================================

func TestRateTable_Match_CeilingConvention(t *testing.T) {
	// GIVEN: the stepped salary credit table
	table := mscTable(t)

	// WHEN/THEN: the smallest bound >= compensation wins. An exact bound
	// matches itself, anything just above it credits to the next band,
	// and anything below the first bound credits to the first.
	eq(t, table.Ceiling(d(3250)), d(3250), "Ceiling(3250)")
	eq(t, table.Ceiling(d(3250.01)), d(3750), "Ceiling(3250.01)")
	eq(t, table.Ceiling(d(3749.99)), d(3750), "Ceiling(3749.99)")
	eq(t, table.Ceiling(d(100)), d(3250), "Ceiling(100)")
}

func TestRateTable_Match_ClampsAboveMax(t *testing.T) {
	// GIVEN: compensation above the table's cap
	table := mscTable(t)

	// THEN: the last bracket applies, never an error
	eq(t, table.Ceiling(d(1000000)), d(25000), "Ceiling(1000000)")
	eq(t, table.Max(), d(25000), "Max()")
}

func TestSteppedBounds_AppendsIrregularLast(t *testing.T) {
	// The 2023 schedule steps 3,250..24,750 by 500 and then jumps to a
	// 25,000 cap that is NOT on the step grid.
	bounds := payroll.SteppedBounds(d(3250), d(500), d(25000))

	if len(bounds) != 45 {
		t.Fatalf("expected 45 bounds, got %d", len(bounds))
	}
	eq(t, bounds[0], d(3250), "first bound")
	eq(t, bounds[43], d(24750), "last stepped bound")
	eq(t, bounds[44], d(25000), "cap bound")
}

func TestSteppedBounds_ExactGrid(t *testing.T) {
	bounds := payroll.SteppedBounds(d(1000), d(1000), d(3000))
	if len(bounds) != 3 {
		t.Fatalf("expected 3 bounds, got %d", len(bounds))
	}
	eq(t, bounds[2], d(3000), "last bound")
}

func TestSteppedBounds_NonPositiveStep_Nil(t *testing.T) {
	// A zero or negative step must not expand at all: the nil result
	// fails table construction instead of generating bounds forever.
	for _, step := range []payroll.Money{d(0), d(-500)} {
		if bounds := payroll.SteppedBounds(d(3250), step, d(25000)); bounds != nil {
			t.Errorf("step %s: expected nil bounds, got %d", step, len(bounds))
		}
	}
	if _, err := payroll.NewCeilingTable(payroll.SteppedBounds(d(3250), d(0), d(25000))); !errors.Is(err, payroll.ErrInvalidRateTable) {
		t.Errorf("expected ErrInvalidRateTable, got %v", err)
	}
}
