/*
engine.go - Batch payroll orchestration

PURPOSE:
  Runs one PolicySet across a batch of employee records, producing one
  PayrollResult per record plus aggregate totals. Records are
  independent (no cross-record state), so the engine fans them out over
  a worker pool; output preserves input order regardless.

PER-RECORD ALGORITHM:
  1. Attendance-adjusted gross pay: basic salary (optionally prorated by
     days worked), plus allowances, plus overtime per category premium,
     minus late/absence deductions derived from the policy's
     working-days convention.
  2. Each contribution calculator against its configured base (basic
     salary or gross pay).
  3. Taxable income = gross - employee contribution shares, floored at 0.
  4. Annualize (x12), subtract standard deduction and clamped dependent
     deductions, floor at 0, apply the tax table, divide by 12.
  5. Total deductions = employee shares + monthly tax + loans.
  6. Net pay = gross - total deductions.
     Employer cost = gross + employer shares.

FAILURE POLICY:
  A malformed record yields a per-record error entry; the batch
  continues. Missing mandatory fields abort the batch before any record
  is processed. Batch cancellation is cooperative: the context is
  checked between records, never mid-record (each record is
  sub-millisecond and side-effect-free).
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/shopspring/decimal"
)

// Engine computes payroll batches. Stateless apart from its worker
// count; safe for concurrent use.
type Engine struct {
	// Workers caps batch parallelism. Zero means GOMAXPROCS.
	Workers int
}

// NewEngine returns an engine with default parallelism.
func NewEngine() *Engine { return &Engine{} }

// ComputeBatch processes rows independently under the given policy,
// stamping results with the payroll period (YYYY-MM). The returned
// outcomes preserve input order. The error return is batch-level only:
// missing required fields or context cancellation; per-record failures
// live inside the result.
func (e *Engine) ComputeBatch(ctx context.Context, period string, rows []RawRecord, policy *PolicySet) (*BatchResult, error) {
	if err := CheckRequiredFields(rows); err != nil {
		return nil, err
	}

	outcomes := make([]RecordOutcome, len(rows))

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(rows) {
		workers = len(rows)
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				outcomes[i] = e.computeOne(i, period, rows[i], policy)
			}
		}()
	}

feed:
	for i := range rows {
		select {
		case <-ctx.Done():
			break feed
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &BatchResult{
		Policy:   policy.ID,
		Period:   period,
		Outcomes: outcomes,
		Summary:  summarize(outcomes),
	}, nil
}

func (e *Engine) computeOne(index int, period string, row RawRecord, policy *PolicySet) RecordOutcome {
	rec, err := ParseRecord(row, policy)
	if err != nil {
		return RecordOutcome{Index: index, Err: asRecordError(index, rec.EmployeeID, err)}
	}
	result, err := e.ComputeRecord(rec, policy)
	if err != nil {
		return RecordOutcome{Index: index, Err: asRecordError(index, rec.EmployeeID, err)}
	}
	result.Period = period
	return RecordOutcome{Index: index, Result: result}
}

// ComputeRecord computes a single validated record. Pure: computing the
// same record under the same PolicySet twice yields identical results.
func (e *Engine) ComputeRecord(rec EmployeeRecord, policy *PolicySet) (*PayrollResult, error) {
	dailyRate := rec.BasicSalary.Div(policy.WorkingDaysPerMonth)
	hourlyRate := dailyRate.Div(policy.HoursPerDay)
	minuteRate := hourlyRate.Div(decimal.NewFromInt(60))

	basePay := rec.BasicSalary
	if policy.ScaleByDaysWorked && rec.DaysWorked.IsPositive() {
		basePay = dailyRate.Mul(rec.DaysWorked)
	}

	overtime := decimal.Zero
	for cat, hours := range rec.OvertimeHours {
		mult, ok := policy.OvertimeMultiplier(cat)
		if !ok {
			continue
		}
		overtime = overtime.Add(hourlyRate.Mul(mult).Mul(hours))
	}

	lateDeduction := RoundShare(minuteRate.Mul(rec.LateMinutes))
	absenceDeduction := RoundShare(dailyRate.Mul(rec.AbsentDays))
	overtimePay := RoundShare(overtime)

	gross := RoundShare(basePay.Add(rec.Allowances).Add(overtimePay).Sub(lateDeduction).Sub(absenceDeduction))

	lines := make([]ContributionLine, 0, len(policy.Contributions))
	employeeShares := decimal.Zero
	employerShares := decimal.Zero
	for _, rule := range policy.Contributions {
		base := rec.BasicSalary
		if rule.Base == BaseGrossPay {
			base = gross
		}
		res := rule.Calc.Compute(base)
		if !res.Reconciles() {
			return nil, fmt.Errorf("%w: %s on base %s", ErrRoundingInconsistency, rule.Type, base)
		}
		lines = append(lines, ContributionLine{Type: rule.Type, Result: res})
		employeeShares = employeeShares.Add(res.EmployeeShare)
		employerShares = employerShares.Add(res.EmployerShare)
	}

	taxable := gross.Sub(employeeShares)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	deps := rec.Dependents
	if deps > policy.MaxDependents {
		deps = policy.MaxDependents
	}
	annualTaxable := taxable.Mul(decimal.NewFromInt(12)).
		Sub(policy.StandardDeduction).
		Sub(policy.DependentDeduction.Mul(decimal.NewFromInt(int64(deps))))
	if annualTaxable.IsNegative() {
		annualTaxable = decimal.Zero
	}

	annualTax, err := policy.Tax.Compute(annualTaxable, rec.TaxStatus)
	if err != nil {
		return nil, err
	}
	monthlyTax := RoundShare(annualTax.Div(decimal.NewFromInt(12)))

	totalDeductions := employeeShares.Add(monthlyTax).Add(rec.Loans)

	return &PayrollResult{
		EmployeeID:       rec.EmployeeID,
		FullName:         rec.FullName,
		Dependents:       deps,
		BasicSalary:      rec.BasicSalary,
		Allowances:       rec.Allowances,
		OvertimePay:      overtimePay,
		LateDeduction:    lateDeduction,
		AbsenceDeduction: absenceDeduction,
		GrossSalary:      gross,
		Contributions:    lines,
		TaxableIncome:    taxable,
		WithholdingTax:   monthlyTax,
		Loans:            rec.Loans,
		TotalDeductions:  totalDeductions,
		NetPay:           gross.Sub(totalDeductions),
		EmployerCost:     gross.Add(employerShares),
	}, nil
}

// =============================================================================
// SUMMARY
// =============================================================================

func summarize(outcomes []RecordOutcome) BatchSummary {
	s := BatchSummary{
		EmployeeCount:     len(outcomes),
		TotalGross:        decimal.Zero,
		TotalNet:          decimal.Zero,
		TotalEmployerCost: decimal.Zero,
		Failures:          make(map[string]int),
	}
	for _, o := range outcomes {
		if o.Err != nil {
			s.Failed++
			s.Failures[failureReason(o.Err)]++
			continue
		}
		s.Succeeded++
		s.TotalGross = s.TotalGross.Add(o.Result.GrossSalary)
		s.TotalNet = s.TotalNet.Add(o.Result.NetPay)
		s.TotalEmployerCost = s.TotalEmployerCost.Add(o.Result.EmployerCost)
	}
	return s
}

func failureReason(err *RecordError) string {
	switch {
	case errors.Is(err, ErrUnsupportedFilingStatus):
		return "unsupported_filing_status"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrRoundingInconsistency):
		return "rounding_inconsistency"
	default:
		return "error"
	}
}

func asRecordError(index int, employeeID string, err error) *RecordError {
	re := &RecordError{Index: index, EmployeeID: employeeID, Reason: err.Error(), Err: err}
	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		re.Field = invalid.Field
		re.Reason = invalid.Reason
	}
	return re
}
