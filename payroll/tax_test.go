package payroll_test

import (
	"errors"
	"testing"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST TABLE - the TRAIN-law annual schedule
// =============================================================================

func trainBrackets() []payroll.TaxBracket {
	return []payroll.TaxBracket{
		{Threshold: d(0), BaseTax: d(0), Rate: d(0)},
		{Threshold: d(250000), BaseTax: d(0), Rate: d(0.15)},
		{Threshold: d(400000), BaseTax: d(22500), Rate: d(0.20)},
		{Threshold: d(800000), BaseTax: d(102500), Rate: d(0.25)},
		{Threshold: d(2000000), BaseTax: d(402500), Rate: d(0.30)},
		{Threshold: d(8000000), BaseTax: d(2202500), Rate: d(0.35)},
	}
}

func trainTable(t *testing.T) *payroll.TaxTable {
	t.Helper()
	table, err := payroll.NewTaxTable(trainBrackets())
	if err != nil {
		t.Fatalf("NewTaxTable: %v", err)
	}
	return table
}

// =============================================================================
// TABLE CONSTRUCTION INVARIANTS
// =============================================================================

func TestNewTaxTable_RequiresZeroTaxFloor(t *testing.T) {
	_, err := payroll.NewTaxTable([]payroll.TaxBracket{
		{Threshold: d(250000), BaseTax: d(0), Rate: d(0.15)},
	})
	if !errors.Is(err, payroll.ErrInvalidTaxTable) {
		t.Fatalf("expected ErrInvalidTaxTable, got %v", err)
	}
}

func TestNewTaxTable_DiscontinuityRejected(t *testing.T) {
	// The 400k bracket claims base tax 30,000, but 15% of the 150k
	// between 250k and 400k is 22,500. The table is torn at the seam.
	_, err := payroll.NewTaxTable([]payroll.TaxBracket{
		{Threshold: d(0), BaseTax: d(0), Rate: d(0)},
		{Threshold: d(250000), BaseTax: d(0), Rate: d(0.15)},
		{Threshold: d(400000), BaseTax: d(30000), Rate: d(0.20)},
	})
	if !errors.Is(err, payroll.ErrInvalidTaxTable) {
		t.Fatalf("expected ErrInvalidTaxTable, got %v", err)
	}
}

func TestNewTaxTable_NegativeRateRejected(t *testing.T) {
	_, err := payroll.NewTaxTable([]payroll.TaxBracket{
		{Threshold: d(0), BaseTax: d(0), Rate: d(-0.1)},
	})
	if !errors.Is(err, payroll.ErrInvalidTaxTable) {
		t.Fatalf("expected ErrInvalidTaxTable, got %v", err)
	}
}

func TestNewTaxTable_DuplicateThresholdRejected(t *testing.T) {
	_, err := payroll.NewTaxTable([]payroll.TaxBracket{
		{Threshold: d(0), BaseTax: d(0), Rate: d(0)},
		{Threshold: d(250000), BaseTax: d(0), Rate: d(0.15)},
		{Threshold: d(250000), BaseTax: d(0), Rate: d(0.20)},
	})
	if !errors.Is(err, payroll.ErrInvalidTaxTable) {
		t.Fatalf("expected ErrInvalidTaxTable, got %v", err)
	}
}

// =============================================================================
// EVALUATION
// =============================================================================

func TestTaxTable_Compute_KnownPoints(t *testing.T) {
	table := trainTable(t)

	cases := []struct {
		income, want payroll.Money
	}{
		{d(0), d(0)},
		{d(-100), d(0)},
		{d(250000), d(0)},       // exactly at the exempt ceiling
		{d(300000), d(7500)},    // 15% of 50,000
		{d(400000), d(22500)},   // boundary: both formulas agree
		{d(1000000), d(152500)}, // 102,500 + 25% of 200,000
		{d(10000000), d(2902500)},
	}
	for _, tc := range cases {
		got := table.Compute(tc.income)
		if !got.Equal(tc.want) {
			t.Errorf("Compute(%s) = %s, want %s", tc.income, got, tc.want)
		}
	}
}

func TestTaxTable_ContinuousAtBoundaries(t *testing.T) {
	// Tax one peso below and at each threshold differs by at most the
	// marginal rate on that peso.
	table := trainTable(t)
	for _, b := range table.Brackets()[1:] {
		below := table.Compute(b.Threshold.Sub(d(1)))
		at := table.Compute(b.Threshold)
		jump := at.Sub(below)
		if jump.GreaterThan(d(0.36)) || jump.IsNegative() {
			t.Errorf("discontinuity at %s: tax jumps by %s", b.Threshold, jump)
		}
	}
}

func TestTaxTable_Monotonic(t *testing.T) {
	table := trainTable(t)
	prev := d(0)
	for income := d(0); income.LessThanOrEqual(d(9000000)); income = income.Add(d(123457)) {
		got := table.Compute(income)
		if got.LessThan(prev) {
			t.Errorf("tax dropped from %s to %s at income %s", prev, got, income)
		}
		prev = got
	}
}

// =============================================================================
// FILING STATUS DISPATCH
// =============================================================================

func TestTaxCalculator_UnsupportedStatus_Errors(t *testing.T) {
	// GIVEN: a calculator declaring single and married only
	calc, err := payroll.NewUnifiedTaxCalculator(trainTable(t),
		payroll.StatusSingle, payroll.StatusMarried)
	if err != nil {
		t.Fatalf("NewUnifiedTaxCalculator: %v", err)
	}

	// WHEN: computing for an undeclared status
	_, err = calc.Compute(d(300000), payroll.FilingStatus("widowed"))

	// THEN: the gap surfaces as a typed error, never a silent default
	if !errors.Is(err, payroll.ErrUnsupportedFilingStatus) {
		t.Fatalf("expected ErrUnsupportedFilingStatus, got %v", err)
	}
	var ue *payroll.UnsupportedFilingStatusError
	if !errors.As(err, &ue) || ue.Status != "widowed" {
		t.Fatalf("expected UnsupportedFilingStatusError carrying the status, got %v", err)
	}
}

func TestTaxCalculator_PerStatusTables(t *testing.T) {
	// GIVEN: distinct tables per status
	flat10, err := payroll.NewTaxTable([]payroll.TaxBracket{{Threshold: d(0), BaseTax: d(0), Rate: d(0.10)}})
	if err != nil {
		t.Fatalf("NewTaxTable: %v", err)
	}
	calc, err := payroll.NewTaxCalculator(map[payroll.FilingStatus]*payroll.TaxTable{
		payroll.StatusSingle:  trainTable(t),
		payroll.StatusMarried: flat10,
	})
	if err != nil {
		t.Fatalf("NewTaxCalculator: %v", err)
	}

	single, err := calc.Compute(d(300000), payroll.StatusSingle)
	if err != nil {
		t.Fatalf("Compute(single): %v", err)
	}
	married, err := calc.Compute(d(300000), payroll.StatusMarried)
	if err != nil {
		t.Fatalf("Compute(married): %v", err)
	}

	eq(t, single, d(7500), "single tax")
	eq(t, married, d(30000), "married tax")

	if !calc.Supports(payroll.StatusSingle) || calc.Supports(payroll.StatusHeadOfHousehold) {
		t.Error("Supports() does not reflect the declared statuses")
	}
}
