/*
tax.go - Progressive withholding tax tables

PURPOSE:
  Marginal-bracket tax evaluation: given ordered brackets (threshold,
  base_tax_at_threshold, marginal_rate), the bracket containing the
  income determines tax as base + (income - threshold) * rate. The
  lowest bracket is the tax-exempt floor (base tax 0 at threshold 0).

CONTINUITY:
  The function is piecewise-linear and continuous at bracket boundaries.
  That is a property of the TABLE, so the builder enforces
      base[i+1] == base[i] + (threshold[i+1] - threshold[i]) * rate[i]
  at construction. Query time never re-checks.

FILING STATUS:
  Each supported filing status owns an independent bracket table. An
  unsupported status fails with UnsupportedFilingStatusError - never a
  silent default to another status's table.
*/
package payroll

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// TaxBracket is one marginal bracket: for income in
// [Threshold, next.Threshold), tax = BaseTax + (income-Threshold)*Rate.
type TaxBracket struct {
	Threshold Money
	BaseTax   Money
	Rate      Money
}

// TaxTable is an immutable progressive bracket table.
type TaxTable struct {
	brackets []TaxBracket
}

// NewTaxTable validates and builds a progressive table. Brackets must
// start at a zero-tax floor (threshold 0, base 0), have strictly
// increasing thresholds, non-negative rates, and be continuous at every
// boundary.
func NewTaxTable(brackets []TaxBracket) (*TaxTable, error) {
	if len(brackets) == 0 {
		return nil, fmt.Errorf("%w: no brackets", ErrInvalidTaxTable)
	}
	bs := make([]TaxBracket, len(brackets))
	copy(bs, brackets)
	sort.Slice(bs, func(i, j int) bool { return bs[i].Threshold.LessThan(bs[j].Threshold) })

	if !bs[0].Threshold.IsZero() || !bs[0].BaseTax.IsZero() {
		return nil, fmt.Errorf("%w: first bracket must be the zero-tax floor", ErrInvalidTaxTable)
	}
	for i := 0; i < len(bs); i++ {
		if bs[i].Rate.IsNegative() {
			return nil, fmt.Errorf("%w: negative rate at threshold %s", ErrInvalidTaxTable, bs[i].Threshold)
		}
		if i == 0 {
			continue
		}
		if bs[i].Threshold.LessThanOrEqual(bs[i-1].Threshold) {
			return nil, fmt.Errorf("%w: thresholds not strictly increasing at %s", ErrInvalidTaxTable, bs[i].Threshold)
		}
		want := bs[i-1].BaseTax.Add(bs[i].Threshold.Sub(bs[i-1].Threshold).Mul(bs[i-1].Rate))
		if bs[i].BaseTax.Sub(want).Abs().GreaterThan(shareTolerance) {
			return nil, fmt.Errorf("%w: discontinuity at threshold %s: base tax %s, expected %s",
				ErrInvalidTaxTable, bs[i].Threshold, bs[i].BaseTax, want)
		}
	}
	return &TaxTable{brackets: bs}, nil
}

// Compute evaluates annual tax on a non-negative taxable income.
// Monotonically non-decreasing and continuous by construction.
func (t *TaxTable) Compute(annualTaxableIncome Money) Money {
	if annualTaxableIncome.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	b := t.brackets[0]
	for _, candidate := range t.brackets {
		if candidate.Threshold.GreaterThan(annualTaxableIncome) {
			break
		}
		b = candidate
	}
	tax := b.BaseTax.Add(annualTaxableIncome.Sub(b.Threshold).Mul(b.Rate))
	return RoundShare(tax)
}

// Brackets returns a copy of the bracket sequence.
func (t *TaxTable) Brackets() []TaxBracket {
	out := make([]TaxBracket, len(t.brackets))
	copy(out, t.brackets)
	return out
}

// =============================================================================
// TAX CALCULATOR - per-filing-status table lookup
// =============================================================================

// TaxCalculator holds one bracket table per supported filing status.
type TaxCalculator struct {
	tables map[FilingStatus]*TaxTable
}

// NewTaxCalculator builds a calculator from status-keyed tables.
func NewTaxCalculator(tables map[FilingStatus]*TaxTable) (*TaxCalculator, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no filing status tables", ErrInvalidTaxTable)
	}
	m := make(map[FilingStatus]*TaxTable, len(tables))
	for status, table := range tables {
		if table == nil {
			return nil, fmt.Errorf("%w: nil table for status %q", ErrInvalidTaxTable, status)
		}
		m[status] = table
	}
	return &TaxCalculator{tables: m}, nil
}

// NewUnifiedTaxCalculator registers the same table under every given
// status. Post-2018 PH withholding makes no status distinction, but the
// statuses remain declared so anything else still errors.
func NewUnifiedTaxCalculator(table *TaxTable, statuses ...FilingStatus) (*TaxCalculator, error) {
	tables := make(map[FilingStatus]*TaxTable, len(statuses))
	for _, s := range statuses {
		tables[s] = table
	}
	return NewTaxCalculator(tables)
}

// Compute evaluates annual withholding tax for the given status.
func (c *TaxCalculator) Compute(annualTaxableIncome Money, status FilingStatus) (Money, error) {
	table, ok := c.tables[status]
	if !ok {
		return decimal.Zero, &UnsupportedFilingStatusError{Status: status}
	}
	return table.Compute(annualTaxableIncome), nil
}

// Supports reports whether a status has a table.
func (c *TaxCalculator) Supports(status FilingStatus) bool {
	_, ok := c.tables[status]
	return ok
}

// Statuses returns the supported filing statuses, sorted.
func (c *TaxCalculator) Statuses() []FilingStatus {
	out := make([]FilingStatus, 0, len(c.tables))
	for s := range c.tables {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
