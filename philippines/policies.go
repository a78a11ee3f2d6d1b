/*
Package philippines provides preset PolicySets for Philippine statutory
payroll rules, one per revision year.

PURPOSE:
  Demonstrates the policies-as-data design: the 2021, 2022 and 2023 rate
  revisions - which previously meant three diverging engine forks - are
  plain data registrations against the same engine. Each year bundles:
  - SSS (social security) on basic salary
  - PhilHealth (health insurance) on gross pay
  - Pag-IBIG (housing fund) on gross pay
  - BIR progressive withholding tax (unified table post-TRAIN)
  - standard/dependent deductions and attendance conventions

CALCULATOR FORMS EXERCISED:
  2021: fixed peso table for SSS (the pre-2023 published schedule shape)
  2022: percent-of-credit SSS at the 13% total rate
  2023: percent-of-credit SSS at the 14% total rate plus the employees'
        compensation flat surcharge

FILING STATUSES:
  The post-TRAIN BIR table makes no distinction between statuses, so the
  same brackets are registered under single, married and
  head_of_household. Any other status errors instead of silently using
  the unified table - the statutory gap is surfaced, not guessed.

SEE ALSO:
  - payroll/policy.go: PolicySet and registry
  - factory/: the JSON route to the same registrations
*/
package philippines

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Jurisdiction is the registry key for these presets.
const Jurisdiction = "PH"

func d(v float64) payroll.Money { return decimal.NewFromFloat(v) }

// supportedStatuses are the statuses the unified BIR table is declared
// under. Anything else fails with UnsupportedFilingStatus.
var supportedStatuses = []payroll.FilingStatus{
	payroll.StatusSingle,
	payroll.StatusMarried,
	payroll.StatusHeadOfHousehold,
}

// RegisterAll registers every preset year into the registry.
func RegisterAll(r *payroll.Registry) error {
	for _, build := range []func() (*payroll.PolicySet, error){Policy2021, Policy2022, Policy2023} {
		p, err := build()
		if err != nil {
			return err
		}
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SHARED TABLES
// =============================================================================

// birTaxTable is the TRAIN-law annual withholding table, unchanged
// across these revision years: 0% to 250k, then 15/20/25/30/35% marginal.
func birTaxTable() (*payroll.TaxTable, error) {
	return payroll.NewTaxTable([]payroll.TaxBracket{
		{Threshold: d(0), BaseTax: d(0), Rate: d(0)},
		{Threshold: d(250000), BaseTax: d(0), Rate: d(0.15)},
		{Threshold: d(400000), BaseTax: d(22500), Rate: d(0.20)},
		{Threshold: d(800000), BaseTax: d(102500), Rate: d(0.25)},
		{Threshold: d(2000000), BaseTax: d(402500), Rate: d(0.30)},
		{Threshold: d(8000000), BaseTax: d(2202500), Rate: d(0.35)},
	})
}

func birTaxCalculator() (*payroll.TaxCalculator, error) {
	table, err := birTaxTable()
	if err != nil {
		return nil, err
	}
	return payroll.NewUnifiedTaxCalculator(table, supportedStatuses...)
}

// pagIBIG is shared across years: 2% each side of gross, capped at 100
// per side, with the statutory 1%/2% split below the 1,500 threshold.
func pagIBIG() payroll.ContributionCalculator {
	return payroll.PercentWithFloorCeiling{
		Rate:             d(0.04),
		Ceiling:          d(200),
		EmployeeFraction: d(0.5),
		LowSalary: &payroll.LowSalaryRule{
			Threshold:    d(1500),
			EmployeeRate: d(0.01),
			EmployerRate: d(0.02),
		},
	}
}

func base(year int, name string, tax *payroll.TaxCalculator, contributions []payroll.ContributionRule) *payroll.PolicySet {
	return &payroll.PolicySet{
		ID:                  payroll.PolicyID{Jurisdiction: Jurisdiction, VersionYear: year},
		Name:                name,
		Contributions:       contributions,
		Tax:                 tax,
		StandardDeduction:   d(90000),
		DependentDeduction:  d(25000),
		MaxDependents:       4,
		WorkingDaysPerMonth: d(22),
		HoursPerDay:         d(8),
		OvertimeMultipliers: map[payroll.OvertimeCategory]payroll.Money{
			payroll.OvertimeRegular:        d(1.25),
			payroll.OvertimeRestDay:        d(1.30),
			payroll.OvertimeHoliday:        d(2.00),
			payroll.OvertimeSpecialHoliday: d(1.30),
		},
		DefaultFilingStatus: payroll.StatusSingle,
	}
}

// =============================================================================
// 2023 - the current revision (14% SSS total, EC surcharge, 3% PhilHealth)
// =============================================================================

// Policy2023 builds the 2023 ruleset.
func Policy2023() (*payroll.PolicySet, error) {
	tax, err := birTaxCalculator()
	if err != nil {
		return nil, err
	}

	// Monthly salary credits: 3,250 to 24,750 in 500-peso bands, capped
	// at 25,000. Contribution keys off the credited ceiling, not raw pay.
	msc, err := payroll.NewCeilingTable(payroll.SteppedBounds(d(3250), d(500), d(25000)))
	if err != nil {
		return nil, err
	}

	sss := payroll.PercentOfBase{
		Table:        msc,
		EmployeeRate: d(0.045),
		EmployerRate: d(0.095),
		// Employees' compensation: employer-only flat amount, 10 up to a
		// 15,000 credit, 30 above it.
		Surcharge: &payroll.FlatSurcharge{Threshold: d(15000), Below: d(10), Above: d(30)},
	}

	philHealth := payroll.PercentWithFloorCeiling{
		Rate:             d(0.03),
		Floor:            d(400),
		Ceiling:          d(2400),
		EmployeeFraction: d(0.5),
	}

	return base(2023, "Philippines statutory rules, 2023 revision", tax, []payroll.ContributionRule{
		{Type: payroll.ContributionSocialSecurity, Base: payroll.BaseBasicSalary, Calc: sss},
		{Type: payroll.ContributionHealthInsurance, Base: payroll.BaseGrossPay, Calc: philHealth},
		{Type: payroll.ContributionHousingFund, Base: payroll.BaseGrossPay, Calc: pagIBIG()},
	}), nil
}

// =============================================================================
// 2022 - 13% SSS total, 4% PhilHealth with the higher ceiling
// =============================================================================

// Policy2022 builds the 2022 ruleset.
func Policy2022() (*payroll.PolicySet, error) {
	tax, err := birTaxCalculator()
	if err != nil {
		return nil, err
	}

	msc, err := payroll.NewCeilingTable(payroll.SteppedBounds(d(3250), d(500), d(25000)))
	if err != nil {
		return nil, err
	}

	sss := payroll.PercentOfBase{
		Table:        msc,
		EmployeeRate: d(0.045),
		EmployerRate: d(0.085),
		Surcharge:    &payroll.FlatSurcharge{Threshold: d(15000), Below: d(10), Above: d(30)},
	}

	philHealth := payroll.PercentWithFloorCeiling{
		Rate:             d(0.04),
		Floor:            d(400),
		Ceiling:          d(3200),
		EmployeeFraction: d(0.5),
	}

	return base(2022, "Philippines statutory rules, 2022 revision", tax, []payroll.ContributionRule{
		{Type: payroll.ContributionSocialSecurity, Base: payroll.BaseBasicSalary, Calc: sss},
		{Type: payroll.ContributionHealthInsurance, Base: payroll.BaseGrossPay, Calc: philHealth},
		{Type: payroll.ContributionHousingFund, Base: payroll.BaseGrossPay, Calc: pagIBIG()},
	}), nil
}

// =============================================================================
// 2021 - fixed peso SSS schedule, 3.5% PhilHealth
// =============================================================================

// Policy2021 builds the 2021 ruleset. SSS uses the published fixed peso
// table (13% of the salary credit, precomputed per band), exercising the
// fixed-table calculator form.
func Policy2021() (*payroll.PolicySet, error) {
	tax, err := birTaxCalculator()
	if err != nil {
		return nil, err
	}

	bounds := payroll.SteppedBounds(d(3250), d(500), d(20000))
	brackets := make([]payroll.Bracket, len(bounds))
	for i, b := range bounds {
		brackets[i] = payroll.Bracket{
			UpperBound: b,
			Amount:     payroll.RoundShare(b.Mul(d(0.13))),
		}
	}
	table, err := payroll.NewRateTable(brackets)
	if err != nil {
		return nil, err
	}
	// Employee pays 4.5 points of the 13% total.
	sss, err := payroll.NewFixedTable(table, d(4.5).Div(d(13)))
	if err != nil {
		return nil, err
	}

	philHealth := payroll.PercentWithFloorCeiling{
		Rate:             d(0.035),
		Floor:            d(350),
		Ceiling:          d(2450),
		EmployeeFraction: d(0.5),
	}

	return base(2021, "Philippines statutory rules, 2021 revision", tax, []payroll.ContributionRule{
		{Type: payroll.ContributionSocialSecurity, Base: payroll.BaseBasicSalary, Calc: sss},
		{Type: payroll.ContributionHealthInsurance, Base: payroll.BaseGrossPay, Calc: philHealth},
		{Type: payroll.ContributionHousingFund, Base: payroll.BaseGrossPay, Calc: pagIBIG()},
	}), nil
}
