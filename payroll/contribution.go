/*
contribution.go - Statutory contribution calculators

PURPOSE:
  Pure functions mapping compensation to {employee_share, employer_share,
  total} for one contribution type, parameterized by rate tables and
  policy constants. Three calculator forms cover every discovered
  statutory variant; they differ in semantics but share one contract.

FORMS:
  FixedTable:
    Each bracket maps to a precomputed total contribution, split between
    employee and employer by a fixed fraction. Used by older social
    insurance schedules published as peso tables per salary band.

  PercentOfBase:
    Employee and employer rates applied to a matched base - either the
    bracket ceiling from a salary-credit table or raw compensation.
    Supports an employer-side flat surcharge stepping at a threshold
    (employees' compensation fund) and excess rates applied only to the
    base above a cutoff (provident fund top-up).

  PercentWithFloorCeiling:
    total = clamp(rate * salary, floor, ceiling), split by a fixed
    fraction. Below a low-salary threshold the split ratio itself can
    change (e.g., 1%/2% instead of 2%/2%).

ROUNDING:
  Every monetary output is rounded half-to-even to 2 decimal places at
  the point of final share computation, never on intermediate bracket
  lookups. Totals are defined as the sum of the rounded shares except in
  the fixed-table form, where the table total is authoritative and the
  split is verified to reconcile at construction.

EDGE CASES:
  compensation <= 0 yields all-zero shares, never an error. Non-numeric
  or missing input is the engine's responsibility; the calculators'
  precondition is a finite, non-negative number.
*/
package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONTRACT
// =============================================================================

// ContributionResult is the outcome of one contribution computation.
// Invariant: Total == EmployeeShare + EmployerShare within one cent;
// all shares >= 0.
type ContributionResult struct {
	EmployeeShare Money
	EmployerShare Money
	Total         Money
	// ReferenceBase is the base the shares were computed against
	// (matched bracket ceiling or raw compensation).
	ReferenceBase Money
}

// Reconciles reports whether the shares sum to the total within the
// one-cent tolerance. A false return indicates a table-authoring bug.
func (r ContributionResult) Reconciles() bool {
	diff := r.EmployeeShare.Add(r.EmployerShare).Sub(r.Total).Abs()
	return diff.LessThanOrEqual(shareTolerance)
}

// ContributionCalculator maps compensation to contribution shares for
// one contribution type. Implementations are pure and safe for
// concurrent use.
type ContributionCalculator interface {
	Compute(compensation Money) ContributionResult
}

func zeroResult() ContributionResult {
	return ContributionResult{
		EmployeeShare: decimal.Zero,
		EmployerShare: decimal.Zero,
		Total:         decimal.Zero,
		ReferenceBase: decimal.Zero,
	}
}

// =============================================================================
// FORM A: FIXED TABLE
// =============================================================================

// FixedTable maps each bracket to a precomputed total contribution,
// split by a fixed employee fraction.
type FixedTable struct {
	table            *RateTable
	employeeFraction Money
}

// NewFixedTable builds a fixed-table calculator. Construction verifies
// that every bracket's rounded split reconciles to its total within one
// cent; a failure means the published table was authored inconsistently.
func NewFixedTable(table *RateTable, employeeFraction Money) (*FixedTable, error) {
	if employeeFraction.IsNegative() || employeeFraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: employee fraction %s outside [0,1]", ErrInvalidRateTable, employeeFraction)
	}
	c := &FixedTable{table: table, employeeFraction: employeeFraction}
	for _, b := range table.Brackets() {
		ee, er := c.split(b.Amount)
		if ee.Add(er).Sub(b.Amount).Abs().GreaterThan(shareTolerance) {
			return nil, fmt.Errorf("%w: bracket %s total %s splits to %s + %s",
				ErrRoundingInconsistency, b.UpperBound, b.Amount, ee, er)
		}
	}
	return c, nil
}

func (c *FixedTable) split(total Money) (employee, employer Money) {
	employee = RoundShare(total.Mul(c.employeeFraction))
	employer = RoundShare(total.Sub(total.Mul(c.employeeFraction)))
	return employee, employer
}

// Compute implements ContributionCalculator.
func (c *FixedTable) Compute(compensation Money) ContributionResult {
	if compensation.LessThanOrEqual(decimal.Zero) {
		return zeroResult()
	}
	b := c.table.Match(compensation)
	ee, er := c.split(b.Amount)
	return ContributionResult{
		EmployeeShare: ee,
		EmployerShare: er,
		Total:         b.Amount,
		ReferenceBase: b.UpperBound,
	}
}

// =============================================================================
// FORM B: PERCENT OF BASE
// =============================================================================

// FlatSurcharge is an employer-side flat amount stepping at a base
// threshold (e.g., employees' compensation: 10 up to 15,000, 30 above).
type FlatSurcharge struct {
	Threshold Money
	Below     Money
	Above     Money
}

// ExcessRate applies additional rates only to the base portion above a
// cutoff (e.g., a provident-fund component on credits above 20,000).
type ExcessRate struct {
	Cutoff       Money
	EmployeeRate Money
	EmployerRate Money
}

// PercentOfBase applies employee/employer rates to a matched base.
// Table nil means the raw compensation is the base; otherwise the base
// is the table's matched bracket ceiling (salary credit).
type PercentOfBase struct {
	Table        *RateTable
	EmployeeRate Money
	EmployerRate Money
	Surcharge    *FlatSurcharge
	Excess       *ExcessRate
}

// Compute implements ContributionCalculator.
func (c PercentOfBase) Compute(compensation Money) ContributionResult {
	if compensation.LessThanOrEqual(decimal.Zero) {
		return zeroResult()
	}

	base := compensation
	if c.Table != nil {
		base = c.Table.Ceiling(compensation)
	}

	ee := base.Mul(c.EmployeeRate)
	er := base.Mul(c.EmployerRate)

	if c.Excess != nil && base.GreaterThan(c.Excess.Cutoff) {
		over := base.Sub(c.Excess.Cutoff)
		ee = ee.Add(over.Mul(c.Excess.EmployeeRate))
		er = er.Add(over.Mul(c.Excess.EmployerRate))
	}

	if c.Surcharge != nil {
		if base.LessThanOrEqual(c.Surcharge.Threshold) {
			er = er.Add(c.Surcharge.Below)
		} else {
			er = er.Add(c.Surcharge.Above)
		}
	}

	ee = RoundShare(ee)
	er = RoundShare(er)
	return ContributionResult{
		EmployeeShare: ee,
		EmployerShare: er,
		Total:         ee.Add(er),
		ReferenceBase: base,
	}
}

// =============================================================================
// FORM C: PERCENT WITH FLOOR AND CEILING
// =============================================================================

// LowSalaryRule replaces the split below a threshold: each side
// contributes its own rate on raw salary (e.g., 1% employee / 2%
// employer for salaries under 1,500).
type LowSalaryRule struct {
	Threshold    Money
	EmployeeRate Money
	EmployerRate Money
}

// PercentWithFloorCeiling computes total = clamp(Rate * salary, Floor,
// Ceiling) and splits by EmployeeFraction. Floor/Ceiling of zero mean
// unbounded on that side.
type PercentWithFloorCeiling struct {
	Rate             Money
	Floor            Money
	Ceiling          Money
	EmployeeFraction Money
	LowSalary        *LowSalaryRule
}

// Compute implements ContributionCalculator.
func (c PercentWithFloorCeiling) Compute(compensation Money) ContributionResult {
	if compensation.LessThanOrEqual(decimal.Zero) {
		return zeroResult()
	}

	if c.LowSalary != nil && compensation.LessThan(c.LowSalary.Threshold) {
		ee := RoundShare(compensation.Mul(c.LowSalary.EmployeeRate))
		er := RoundShare(compensation.Mul(c.LowSalary.EmployerRate))
		return ContributionResult{
			EmployeeShare: ee,
			EmployerShare: er,
			Total:         ee.Add(er),
			ReferenceBase: compensation,
		}
	}

	total := compensation.Mul(c.Rate)
	if c.Floor.IsPositive() && total.LessThan(c.Floor) {
		total = c.Floor
	}
	if c.Ceiling.IsPositive() && total.GreaterThan(c.Ceiling) {
		total = c.Ceiling
	}

	ee := RoundShare(total.Mul(c.EmployeeFraction))
	er := RoundShare(total.Sub(total.Mul(c.EmployeeFraction)))
	return ContributionResult{
		EmployeeShare: ee,
		EmployerShare: er,
		Total:         ee.Add(er),
		ReferenceBase: compensation,
	}
}
