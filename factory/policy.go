/*
Package factory provides JSON to Go PolicySet conversion.

PURPOSE:
  Converts JSON policy definitions into payroll.PolicySet values. This
  enables statutory rule configuration without code changes - a new rate
  year is a JSON document registered at runtime, not a code fork.

WHY JSON?
  - Non-developers can author rate revisions
  - Easy integration with an admin UI
  - Version control for statutory definitions
  - Database storage of policy configs

JSON SCHEMA (sketch):
  {
    "jurisdiction": "PH",
    "version_year": 2023,
    "name": "Philippines 2023",
    "standard_deduction": 90000,
    "dependent_deduction": 25000,
    "max_dependents": 4,
    "working_days_per_month": 22,
    "hours_per_day": 8,
    "scale_by_days_worked": false,
    "default_filing_status": "single",
    "overtime_multipliers": {"regular": 1.25, "rest_day": 1.3,
                             "holiday": 2.0, "special_holiday": 1.3},
    "contributions": [
      {"type": "social_security", "base": "basic_salary",
       "form": "percent_of_base",
       "bracket_bounds": {"first": 3250, "step": 500, "last": 25000},
       "employee_rate": 0.045, "employer_rate": 0.095,
       "surcharge": {"threshold": 15000, "below": 10, "above": 30}},
      {"type": "health_insurance", "base": "gross_pay",
       "form": "percent_floor_ceiling",
       "rate": 0.03, "floor": 400, "ceiling": 2400,
       "employee_fraction": 0.5}
    ],
    "tax": {"statuses": ["single", "married"],
            "brackets": [{"threshold": 0, "base_tax": 0, "rate": 0}, ...]}
  }

VALIDATION:
  The factory validates structure and delegates table invariants
  (strictly increasing bounds, tax boundary continuity) to the payroll
  constructors, so an inconsistent table never reaches the registry.

SEE ALSO:
  - payroll/policy.go: PolicySet definition
  - philippines/policies.go: the same rulesets authored in Go
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a PolicySet.
type PolicyJSON struct {
	Jurisdiction        string             `json:"jurisdiction"`
	VersionYear         int                `json:"version_year"`
	Name                string             `json:"name"`
	StandardDeduction   float64            `json:"standard_deduction"`
	DependentDeduction  float64            `json:"dependent_deduction"`
	MaxDependents       int                `json:"max_dependents"` // required when dependent_deduction is set
	WorkingDaysPerMonth float64            `json:"working_days_per_month"`
	HoursPerDay         float64            `json:"hours_per_day,omitempty"` // default 8
	ScaleByDaysWorked   bool               `json:"scale_by_days_worked,omitempty"`
	DefaultFilingStatus string             `json:"default_filing_status,omitempty"` // default "single"
	OvertimeMultipliers map[string]float64 `json:"overtime_multipliers,omitempty"`
	Contributions       []ContributionJSON `json:"contributions"`
	Tax                 TaxJSON            `json:"tax"`
}

// ContributionJSON represents one contribution rule. Form selects which
// calculator shape the remaining fields configure.
type ContributionJSON struct {
	Type string `json:"type"`
	Base string `json:"base"`
	Form string `json:"form"` // fixed_table, percent_of_base, percent_floor_ceiling

	// fixed_table
	Brackets         []BracketJSON `json:"brackets,omitempty"`
	EmployeeFraction float64       `json:"employee_fraction,omitempty"` // also percent_floor_ceiling

	// percent_of_base
	BracketBounds *SteppedBoundsJSON `json:"bracket_bounds,omitempty"`
	Bounds        []float64          `json:"bounds,omitempty"`
	EmployeeRate  float64            `json:"employee_rate,omitempty"`
	EmployerRate  float64            `json:"employer_rate,omitempty"`
	Surcharge     *SurchargeJSON     `json:"surcharge,omitempty"`
	Excess        *ExcessJSON        `json:"excess,omitempty"`

	// percent_floor_ceiling
	Rate      float64        `json:"rate,omitempty"`
	Floor     float64        `json:"floor,omitempty"`
	Ceiling   float64        `json:"ceiling,omitempty"`
	LowSalary *LowSalaryJSON `json:"low_salary,omitempty"`
}

// BracketJSON is one fixed-table entry.
type BracketJSON struct {
	UpperBound float64 `json:"upper_bound"`
	Amount     float64 `json:"amount"`
}

// SteppedBoundsJSON compacts uniform salary-credit bands.
type SteppedBoundsJSON struct {
	First float64 `json:"first"`
	Step  float64 `json:"step"`
	Last  float64 `json:"last"`
}

// SurchargeJSON is the employer-side flat surcharge step.
type SurchargeJSON struct {
	Threshold float64 `json:"threshold"`
	Below     float64 `json:"below"`
	Above     float64 `json:"above"`
}

// ExcessJSON is the above-cutoff excess contribution component.
type ExcessJSON struct {
	Cutoff       float64 `json:"cutoff"`
	EmployeeRate float64 `json:"employee_rate"`
	EmployerRate float64 `json:"employer_rate"`
}

// LowSalaryJSON is the below-threshold split override.
type LowSalaryJSON struct {
	Threshold    float64 `json:"threshold"`
	EmployeeRate float64 `json:"employee_rate"`
	EmployerRate float64 `json:"employer_rate"`
}

// TaxJSON configures the withholding calculator. Either Tables (one
// bracket set per status) or the unified Statuses+Brackets shorthand.
type TaxJSON struct {
	Tables   map[string][]TaxBracketJSON `json:"tables,omitempty"`
	Statuses []string                    `json:"statuses,omitempty"`
	Brackets []TaxBracketJSON            `json:"brackets,omitempty"`
}

// TaxBracketJSON is one progressive bracket.
type TaxBracketJSON struct {
	Threshold float64 `json:"threshold"`
	BaseTax   float64 `json:"base_tax"`
	Rate      float64 `json:"rate"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to PolicySet values.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON string into a PolicySet.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (*payroll.PolicySet, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PolicyJSON to a validated PolicySet.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (*payroll.PolicySet, error) {
	contributions := make([]payroll.ContributionRule, 0, len(pj.Contributions))
	for _, cj := range pj.Contributions {
		rule, err := parseContribution(cj)
		if err != nil {
			return nil, fmt.Errorf("contribution %q: %w", cj.Type, err)
		}
		contributions = append(contributions, rule)
	}

	tax, err := parseTax(pj.Tax)
	if err != nil {
		return nil, err
	}

	hoursPerDay := pj.HoursPerDay
	if hoursPerDay == 0 {
		hoursPerDay = 8
	}
	defaultStatus := payroll.FilingStatus(pj.DefaultFilingStatus)
	if defaultStatus == "" {
		defaultStatus = payroll.StatusSingle
	}

	multipliers := make(map[payroll.OvertimeCategory]payroll.Money, len(pj.OvertimeMultipliers))
	for cat, m := range pj.OvertimeMultipliers {
		multipliers[payroll.OvertimeCategory(cat)] = decimal.NewFromFloat(m)
	}

	p := &payroll.PolicySet{
		ID:                  payroll.PolicyID{Jurisdiction: pj.Jurisdiction, VersionYear: pj.VersionYear},
		Name:                pj.Name,
		Contributions:       contributions,
		Tax:                 tax,
		StandardDeduction:   decimal.NewFromFloat(pj.StandardDeduction),
		DependentDeduction:  decimal.NewFromFloat(pj.DependentDeduction),
		MaxDependents:       pj.MaxDependents,
		WorkingDaysPerMonth: decimal.NewFromFloat(pj.WorkingDaysPerMonth),
		HoursPerDay:         decimal.NewFromFloat(hoursPerDay),
		ScaleByDaysWorked:   pj.ScaleByDaysWorked,
		OvertimeMultipliers: multipliers,
		DefaultFilingStatus: defaultStatus,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseContribution(cj ContributionJSON) (payroll.ContributionRule, error) {
	rule := payroll.ContributionRule{
		Type: payroll.ContributionType(cj.Type),
		Base: payroll.ContributionBase(cj.Base),
	}

	switch cj.Form {
	case "fixed_table":
		brackets := make([]payroll.Bracket, len(cj.Brackets))
		for i, bj := range cj.Brackets {
			brackets[i] = payroll.Bracket{
				UpperBound: decimal.NewFromFloat(bj.UpperBound),
				Amount:     decimal.NewFromFloat(bj.Amount),
			}
		}
		table, err := payroll.NewRateTable(brackets)
		if err != nil {
			return rule, err
		}
		calc, err := payroll.NewFixedTable(table, decimal.NewFromFloat(cj.EmployeeFraction))
		if err != nil {
			return rule, err
		}
		rule.Calc = calc

	case "percent_of_base":
		calc := payroll.PercentOfBase{
			EmployeeRate: decimal.NewFromFloat(cj.EmployeeRate),
			EmployerRate: decimal.NewFromFloat(cj.EmployerRate),
		}
		table, err := parseBounds(cj)
		if err != nil {
			return rule, err
		}
		calc.Table = table
		if cj.Surcharge != nil {
			calc.Surcharge = &payroll.FlatSurcharge{
				Threshold: decimal.NewFromFloat(cj.Surcharge.Threshold),
				Below:     decimal.NewFromFloat(cj.Surcharge.Below),
				Above:     decimal.NewFromFloat(cj.Surcharge.Above),
			}
		}
		if cj.Excess != nil {
			calc.Excess = &payroll.ExcessRate{
				Cutoff:       decimal.NewFromFloat(cj.Excess.Cutoff),
				EmployeeRate: decimal.NewFromFloat(cj.Excess.EmployeeRate),
				EmployerRate: decimal.NewFromFloat(cj.Excess.EmployerRate),
			}
		}
		rule.Calc = calc

	case "percent_floor_ceiling":
		calc := payroll.PercentWithFloorCeiling{
			Rate:             decimal.NewFromFloat(cj.Rate),
			Floor:            decimal.NewFromFloat(cj.Floor),
			Ceiling:          decimal.NewFromFloat(cj.Ceiling),
			EmployeeFraction: decimal.NewFromFloat(cj.EmployeeFraction),
		}
		if cj.LowSalary != nil {
			calc.LowSalary = &payroll.LowSalaryRule{
				Threshold:    decimal.NewFromFloat(cj.LowSalary.Threshold),
				EmployeeRate: decimal.NewFromFloat(cj.LowSalary.EmployeeRate),
				EmployerRate: decimal.NewFromFloat(cj.LowSalary.EmployerRate),
			}
		}
		rule.Calc = calc

	default:
		return rule, fmt.Errorf("unknown calculator form %q", cj.Form)
	}

	return rule, nil
}

func parseBounds(cj ContributionJSON) (*payroll.RateTable, error) {
	switch {
	case cj.BracketBounds != nil:
		if cj.BracketBounds.Step <= 0 {
			return nil, fmt.Errorf("%w: bracket_bounds.step must be positive, got %v",
				payroll.ErrInvalidRateTable, cj.BracketBounds.Step)
		}
		return payroll.NewCeilingTable(payroll.SteppedBounds(
			decimal.NewFromFloat(cj.BracketBounds.First),
			decimal.NewFromFloat(cj.BracketBounds.Step),
			decimal.NewFromFloat(cj.BracketBounds.Last),
		))
	case len(cj.Bounds) > 0:
		bounds := make([]payroll.Money, len(cj.Bounds))
		for i, b := range cj.Bounds {
			bounds[i] = decimal.NewFromFloat(b)
		}
		return payroll.NewCeilingTable(bounds)
	default:
		// No table: the raw compensation is the base.
		return nil, nil
	}
}

func parseTax(tj TaxJSON) (*payroll.TaxCalculator, error) {
	if len(tj.Tables) > 0 {
		tables := make(map[payroll.FilingStatus]*payroll.TaxTable, len(tj.Tables))
		for status, brackets := range tj.Tables {
			table, err := parseTaxTable(brackets)
			if err != nil {
				return nil, fmt.Errorf("tax table %q: %w", status, err)
			}
			tables[payroll.FilingStatus(status)] = table
		}
		return payroll.NewTaxCalculator(tables)
	}

	if len(tj.Statuses) == 0 || len(tj.Brackets) == 0 {
		return nil, fmt.Errorf("%w: tax requires tables or statuses+brackets", payroll.ErrInvalidTaxTable)
	}
	table, err := parseTaxTable(tj.Brackets)
	if err != nil {
		return nil, err
	}
	statuses := make([]payroll.FilingStatus, len(tj.Statuses))
	for i, s := range tj.Statuses {
		statuses[i] = payroll.FilingStatus(s)
	}
	return payroll.NewUnifiedTaxCalculator(table, statuses...)
}

func parseTaxTable(brackets []TaxBracketJSON) (*payroll.TaxTable, error) {
	bs := make([]payroll.TaxBracket, len(brackets))
	for i, bj := range brackets {
		bs[i] = payroll.TaxBracket{
			Threshold: decimal.NewFromFloat(bj.Threshold),
			BaseTax:   decimal.NewFromFloat(bj.BaseTax),
			Rate:      decimal.NewFromFloat(bj.Rate),
		}
	}
	return payroll.NewTaxTable(bs)
}
