package factory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// FIXTURES
// =============================================================================

// policy2023JSON is the 2023 revision authored as configuration instead
// of Go code. Parsing it must yield the same numbers as the preset.
const policy2023JSON = `{
	"jurisdiction": "PH",
	"version_year": 2023,
	"name": "Philippines 2023 (JSON)",
	"standard_deduction": 90000,
	"dependent_deduction": 25000,
	"max_dependents": 4,
	"working_days_per_month": 22,
	"hours_per_day": 8,
	"default_filing_status": "single",
	"overtime_multipliers": {"regular": 1.25, "rest_day": 1.3, "holiday": 2.0, "special_holiday": 1.3},
	"contributions": [
		{
			"type": "social_security", "base": "basic_salary", "form": "percent_of_base",
			"bracket_bounds": {"first": 3250, "step": 500, "last": 25000},
			"employee_rate": 0.045, "employer_rate": 0.095,
			"surcharge": {"threshold": 15000, "below": 10, "above": 30}
		},
		{
			"type": "health_insurance", "base": "gross_pay", "form": "percent_floor_ceiling",
			"rate": 0.03, "floor": 400, "ceiling": 2400, "employee_fraction": 0.5
		},
		{
			"type": "housing_fund", "base": "gross_pay", "form": "percent_floor_ceiling",
			"rate": 0.04, "ceiling": 200, "employee_fraction": 0.5,
			"low_salary": {"threshold": 1500, "employee_rate": 0.01, "employer_rate": 0.02}
		}
	],
	"tax": {
		"statuses": ["single", "married", "head_of_household"],
		"brackets": [
			{"threshold": 0, "base_tax": 0, "rate": 0},
			{"threshold": 250000, "base_tax": 0, "rate": 0.15},
			{"threshold": 400000, "base_tax": 22500, "rate": 0.20},
			{"threshold": 800000, "base_tax": 102500, "rate": 0.25},
			{"threshold": 2000000, "base_tax": 402500, "rate": 0.30},
			{"threshold": 8000000, "base_tax": 2202500, "rate": 0.35}
		]
	}
}`

func d(v float64) payroll.Money { return decimal.NewFromFloat(v) }

// =============================================================================
// PARSING
// =============================================================================

func TestParsePolicy_FullConfiguration(t *testing.T) {
	policy, err := factory.NewPolicyFactory().ParsePolicy(policy2023JSON)
	require.NoError(t, err)

	assert.Equal(t, "PH", policy.ID.Jurisdiction)
	assert.Equal(t, 2023, policy.ID.VersionYear)
	require.Len(t, policy.Contributions, 3)
	assert.Equal(t, payroll.BaseBasicSalary, policy.Contributions[0].Base)
	assert.Equal(t, payroll.BaseGrossPay, policy.Contributions[1].Base)
	assert.True(t, policy.Tax.Supports(payroll.StatusHeadOfHousehold))
	assert.Equal(t, payroll.StatusSingle, policy.DefaultFilingStatus)
}

func TestParsePolicy_ComputesLikeThePreset(t *testing.T) {
	// GIVEN: the JSON-authored 2023 ruleset
	policy, err := factory.NewPolicyFactory().ParsePolicy(policy2023JSON)
	require.NoError(t, err)

	// WHEN: computing the reference earner
	batch, err := payroll.NewEngine().ComputeBatch(context.Background(), "2023-06",
		[]payroll.RawRecord{{
			payroll.FieldEmployeeID:  "E-1",
			payroll.FieldFullName:    "Juan dela Cruz",
			payroll.FieldBasicSalary: 25000.0,
			payroll.FieldAllowances:  5000.0,
			payroll.FieldDependents:  1,
		}}, policy)
	require.NoError(t, err)
	res := batch.Outcomes[0].Result
	require.NotNil(t, res)

	// THEN: identical outcome to the Go-authored preset
	assert.True(t, res.GrossSalary.Equal(d(30000)), "gross = %s", res.GrossSalary)
	assert.True(t, res.TaxableIncome.Equal(d(28325)), "taxable = %s", res.TaxableIncome)
	assert.True(t, res.NetPay.Equal(d(28325)), "net = %s", res.NetPay)
	assert.True(t, res.EmployerCost.Equal(d(32955)), "employer cost = %s", res.EmployerCost)
}

func TestParsePolicy_FixedTableForm(t *testing.T) {
	policy, err := factory.NewPolicyFactory().ParsePolicy(`{
		"jurisdiction": "PH", "version_year": 2021, "name": "fixed table",
		"standard_deduction": 90000, "dependent_deduction": 25000, "max_dependents": 4,
		"working_days_per_month": 22,
		"contributions": [{
			"type": "social_security", "base": "basic_salary", "form": "fixed_table",
			"employee_fraction": 0.5,
			"brackets": [
				{"upper_bound": 10000, "amount": 1300},
				{"upper_bound": 20000, "amount": 2600}
			]
		}],
		"tax": {"statuses": ["single"], "brackets": [{"threshold": 0, "base_tax": 0, "rate": 0.1}]}
	}`)
	require.NoError(t, err)

	res := policy.Contributions[0].Calc.Compute(d(15000))
	assert.True(t, res.Total.Equal(d(2600)), "total = %s", res.Total)
	assert.True(t, res.EmployeeShare.Equal(d(1300)), "employee = %s", res.EmployeeShare)
}

// =============================================================================
// REJECTION - malformed configurations never reach the registry
// =============================================================================

func TestParsePolicy_UnknownForm_Rejected(t *testing.T) {
	_, err := factory.NewPolicyFactory().ParsePolicy(`{
		"jurisdiction": "PH", "version_year": 2023, "name": "x",
		"working_days_per_month": 22,
		"contributions": [{"type": "social_security", "base": "basic_salary", "form": "lookup_magic"}],
		"tax": {"statuses": ["single"], "brackets": [{"threshold": 0, "base_tax": 0, "rate": 0}]}
	}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown calculator form")
}

func TestParsePolicy_DiscontinuousTaxTable_Rejected(t *testing.T) {
	_, err := factory.NewPolicyFactory().ParsePolicy(`{
		"jurisdiction": "PH", "version_year": 2023, "name": "x",
		"working_days_per_month": 22,
		"contributions": [{"type": "social_security", "base": "basic_salary",
			"form": "percent_of_base", "employee_rate": 0.045, "employer_rate": 0.095}],
		"tax": {"statuses": ["single"], "brackets": [
			{"threshold": 0, "base_tax": 0, "rate": 0},
			{"threshold": 250000, "base_tax": 99999, "rate": 0.15}
		]}
	}`)
	assert.ErrorIs(t, err, payroll.ErrInvalidTaxTable)
}

func TestParsePolicy_MissingTax_Rejected(t *testing.T) {
	_, err := factory.NewPolicyFactory().ParsePolicy(`{
		"jurisdiction": "PH", "version_year": 2023, "name": "x",
		"working_days_per_month": 22,
		"contributions": [{"type": "social_security", "base": "basic_salary",
			"form": "percent_of_base", "employee_rate": 0.045, "employer_rate": 0.095}],
		"tax": {}
	}`)
	assert.ErrorIs(t, err, payroll.ErrInvalidTaxTable)
}

func TestParsePolicy_NonPositiveBoundsStep_Rejected(t *testing.T) {
	// A zero or negative step would otherwise expand to an unbounded
	// band sequence. Rejected before any bounds are generated.
	for _, step := range []string{"0", "-500"} {
		_, err := factory.NewPolicyFactory().ParsePolicy(`{
			"jurisdiction": "PH", "version_year": 2023, "name": "x",
			"working_days_per_month": 22,
			"contributions": [{"type": "social_security", "base": "basic_salary",
				"form": "percent_of_base", "employee_rate": 0.045, "employer_rate": 0.095,
				"bracket_bounds": {"first": 3250, "step": ` + step + `, "last": 25000}}],
			"tax": {"statuses": ["single"], "brackets": [{"threshold": 0, "base_tax": 0, "rate": 0}]}
		}`)
		assert.ErrorIs(t, err, payroll.ErrInvalidRateTable, "step %s", step)
	}
}

func TestParsePolicy_DependentDeductionWithoutCap_Rejected(t *testing.T) {
	// dependent_deduction without max_dependents would silently deduct
	// nothing for every dependent.
	_, err := factory.NewPolicyFactory().ParsePolicy(`{
		"jurisdiction": "PH", "version_year": 2023, "name": "x",
		"standard_deduction": 90000, "dependent_deduction": 25000,
		"working_days_per_month": 22,
		"contributions": [{"type": "social_security", "base": "basic_salary",
			"form": "percent_of_base", "employee_rate": 0.045, "employer_rate": 0.095}],
		"tax": {"statuses": ["single"], "brackets": [{"threshold": 0, "base_tax": 0, "rate": 0}]}
	}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max dependents")
}

func TestParsePolicy_InvalidJSON_Rejected(t *testing.T) {
	_, err := factory.NewPolicyFactory().ParsePolicy(`{not json`)
	require.Error(t, err)
}

func TestParsePolicy_DefaultsApplied(t *testing.T) {
	// hours_per_day and default_filing_status fall back when omitted.
	policy, err := factory.NewPolicyFactory().ParsePolicy(`{
		"jurisdiction": "SG", "version_year": 2024, "name": "defaults",
		"working_days_per_month": 21,
		"contributions": [{"type": "social_security", "base": "basic_salary",
			"form": "percent_of_base", "employee_rate": 0.2, "employer_rate": 0.17}],
		"tax": {"statuses": ["single"], "brackets": [{"threshold": 0, "base_tax": 0, "rate": 0}]}
	}`)
	require.NoError(t, err)

	assert.True(t, policy.HoursPerDay.Equal(d(8)), "hours per day = %s", policy.HoursPerDay)
	assert.Equal(t, payroll.StatusSingle, policy.DefaultFilingStatus)
}
