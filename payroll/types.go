/*
Package payroll provides the core payroll computation engine.

PURPOSE:
  This package contains jurisdiction-agnostic types and algorithms for
  computing per-employee payroll outcomes: statutory contributions,
  withholding tax, net pay, and employer cost. The statutory rules
  themselves (bracket tables, rates, deductions) are data, bundled into
  immutable PolicySet values - the engine never hardcodes a rate.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: Monetary value backed by decimal.Decimal (no float drift)
  - EmployeeRecord: One employee's attendance/compensation input
  - PayrollResult: The derived, immutable per-employee outcome
  - RecordOutcome: Result-or-error for one record in a batch
  - BatchSummary: Aggregate totals plus failure accounting

DESIGN PRINCIPLES:
  1. Immutability: PayrollResult is created once per record per run,
     never updated in place. A re-run produces a new result.
  2. Precision: decimal.Decimal everywhere money flows; rounding happens
     half-even at final share computation, nowhere else.
  3. Partial success: one malformed record never aborts a batch. Each
     record resolves to a result or a typed error.
  4. Policies as data: adding a statutory year registers a PolicySet,
     it never forks engine code.

SEE ALSO:
  - policy.go: PolicySet definition and registry
  - contribution.go: Contribution calculator forms
  - tax.go: Progressive withholding tax tables
  - engine.go: Batch orchestration
*/
package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// Money is the monetary value type used throughout the engine.
// Aliased so signatures read in domain terms while keeping the full
// decimal.Decimal API available.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float input.
func NewMoney(v float64) Money { return decimal.NewFromFloat(v) }

// MoneyFromInt creates a Money value from an integer peso amount.
func MoneyFromInt(v int64) Money { return decimal.NewFromInt(v) }

// RoundShare applies the engine-wide rounding policy: round half-to-even
// to 2 decimal places. Applied exactly once, at final share computation.
// Intermediate bracket lookups and rate products stay unrounded.
func RoundShare(m Money) Money { return m.RoundBank(2) }

// shareTolerance is the reconciliation tolerance for employee+employer
// shares against a precomputed total (one cent).
var shareTolerance = decimal.New(1, -2)

// =============================================================================
// FILING STATUS
// =============================================================================

// FilingStatus identifies which withholding tax table applies to an
// employee. Which statuses are supported is a property of the PolicySet's
// tax calculator, not of this type: parsing accepts any normalized string
// and the calculator rejects statuses it has no table for.
type FilingStatus string

const (
	StatusSingle          FilingStatus = "single"
	StatusMarried         FilingStatus = "married"
	StatusHeadOfHousehold FilingStatus = "head_of_household"
)

// =============================================================================
// CONTRIBUTION TYPES AND BASES
// =============================================================================

// ContributionType names a statutory contribution scheme.
type ContributionType string

const (
	ContributionSocialSecurity  ContributionType = "social_security"
	ContributionHealthInsurance ContributionType = "health_insurance"
	ContributionHousingFund     ContributionType = "housing_fund"
)

// ContributionBase selects which compensation figure a contribution keys
// off. The discovered statutory variants disagree (social insurance on
// basic salary, health/housing on gross), so this is policy data.
type ContributionBase string

const (
	BaseBasicSalary ContributionBase = "basic_salary"
	BaseGrossPay    ContributionBase = "gross_pay"
)

// =============================================================================
// OVERTIME
// =============================================================================

// OvertimeCategory identifies an overtime premium class. Multipliers per
// category are PolicySet constants, never hardcoded in the engine.
type OvertimeCategory string

const (
	OvertimeRegular        OvertimeCategory = "regular"
	OvertimeRestDay        OvertimeCategory = "rest_day"
	OvertimeHoliday        OvertimeCategory = "holiday"
	OvertimeSpecialHoliday OvertimeCategory = "special_holiday"
)

// =============================================================================
// EMPLOYEE RECORD - read-only input, one per employee per run
// =============================================================================

// RawRecord is one employee row as it arrives at the input boundary:
// field names already normalized to lowercase/underscored by the caller,
// values still loosely typed (JSON numbers, spreadsheet strings).
type RawRecord map[string]any

// Recognized RawRecord field names.
const (
	FieldEmployeeID        = "employee_id"
	FieldFullName          = "full_name"
	FieldBasicSalary       = "basic_salary"
	FieldAllowances        = "allowances"
	FieldDependents        = "dependents"
	FieldTaxStatus         = "tax_status"
	FieldDaysWorked        = "days_worked"
	FieldRegularOT         = "regular_overtime_hours"
	FieldRestDayOT         = "rest_day_overtime_hours"
	FieldHolidayOT         = "holiday_overtime_hours"
	FieldSpecialHolidayOT  = "special_holiday_overtime_hours"
	FieldLateMinutes       = "late_minutes"
	FieldAbsentDays        = "absent_days"
	FieldLoans             = "loans"
)

// EmployeeRecord is the typed, validated form of one input row. The
// engine never mutates or persists it; it is a value passed in per
// computation.
type EmployeeRecord struct {
	EmployeeID  string
	FullName    string
	BasicSalary Money
	Allowances  Money
	Dependents  int
	TaxStatus   FilingStatus

	// Attendance adjustments. Zero values mean "none"; DaysWorked zero
	// means a full month (no proration even under scaling policies).
	DaysWorked    Money
	OvertimeHours map[OvertimeCategory]Money
	LateMinutes   Money
	AbsentDays    Money

	// Explicit extra deductions carried on the record (loan repayments).
	Loans Money
}

// =============================================================================
// PAYROLL RESULT - derived, immutable snapshot
// =============================================================================

// ContributionLine pairs a contribution type with its computed result,
// preserving the PolicySet's contribution order.
type ContributionLine struct {
	Type   ContributionType
	Result ContributionResult
}

// PayrollResult is the complete outcome for one employee under one
// PolicySet. Created exactly once per EmployeeRecord per engine run.
type PayrollResult struct {
	Period     string
	EmployeeID string
	FullName   string
	Dependents int

	BasicSalary      Money
	Allowances       Money
	OvertimePay      Money
	LateDeduction    Money
	AbsenceDeduction Money
	GrossSalary      Money

	Contributions []ContributionLine

	TaxableIncome   Money
	WithholdingTax  Money
	Loans           Money
	TotalDeductions Money
	NetPay          Money
	EmployerCost    Money
}

// Contribution returns the result for a contribution type, if present.
func (r *PayrollResult) Contribution(t ContributionType) (ContributionResult, bool) {
	for _, line := range r.Contributions {
		if line.Type == t {
			return line.Result, true
		}
	}
	return ContributionResult{}, false
}

// EmployeeShares sums all employee-side contribution shares.
func (r *PayrollResult) EmployeeShares() Money {
	sum := decimal.Zero
	for _, line := range r.Contributions {
		sum = sum.Add(line.Result.EmployeeShare)
	}
	return sum
}

// EmployerShares sums all employer-side contribution shares.
func (r *PayrollResult) EmployerShares() Money {
	sum := decimal.Zero
	for _, line := range r.Contributions {
		sum = sum.Add(line.Result.EmployerShare)
	}
	return sum
}

// =============================================================================
// BATCH OUTPUT
// =============================================================================

// RecordOutcome is the per-record result-or-error. Exactly one of Result
// and Err is set. Index is the record's position in the input sequence;
// outcomes preserve input order.
type RecordOutcome struct {
	Index  int
	Result *PayrollResult
	Err    *RecordError
}

// BatchSummary aggregates a run: totals across successful records plus
// failure accounting by reason. Shape follows the period summaries the
// payroll reports surface upstream.
type BatchSummary struct {
	EmployeeCount     int
	Succeeded         int
	Failed            int
	TotalGross        Money
	TotalNet          Money
	TotalEmployerCost Money
	Failures          map[string]int
}

// BatchResult is everything ComputeBatch hands back: ordered outcomes
// plus the summary. Owned exclusively by the caller once returned.
type BatchResult struct {
	Policy   PolicyID
	Period   string
	Outcomes []RecordOutcome
	Summary  BatchSummary
}

// Results returns only the successful payroll results, in input order.
func (b *BatchResult) Results() []*PayrollResult {
	out := make([]*PayrollResult, 0, b.Summary.Succeeded)
	for _, o := range b.Outcomes {
		if o.Result != nil {
			out = append(out, o.Result)
		}
	}
	return out
}

// Errors returns only the failed outcomes, in input order.
func (b *BatchResult) Errors() []*RecordError {
	out := make([]*RecordError, 0, b.Summary.Failed)
	for _, o := range b.Outcomes {
		if o.Err != nil {
			out = append(out, o.Err)
		}
	}
	return out
}
