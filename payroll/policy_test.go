package payroll_test

import (
	"errors"
	"testing"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// FIXTURES
// =============================================================================

// testPolicy is a minimal valid PolicySet for registry and engine tests.
func testPolicy(t *testing.T, jurisdiction string, year int) *payroll.PolicySet {
	t.Helper()
	calc, err := payroll.NewUnifiedTaxCalculator(trainTable(t),
		payroll.StatusSingle, payroll.StatusMarried, payroll.StatusHeadOfHousehold)
	if err != nil {
		t.Fatalf("NewUnifiedTaxCalculator: %v", err)
	}
	return &payroll.PolicySet{
		ID:   payroll.PolicyID{Jurisdiction: jurisdiction, VersionYear: year},
		Name: "test policy",
		Contributions: []payroll.ContributionRule{
			{
				Type: payroll.ContributionSocialSecurity,
				Base: payroll.BaseBasicSalary,
				Calc: payroll.PercentOfBase{EmployeeRate: d(0.045), EmployerRate: d(0.095)},
			},
		},
		Tax:                 calc,
		StandardDeduction:   d(90000),
		DependentDeduction:  d(25000),
		MaxDependents:       4,
		WorkingDaysPerMonth: d(22),
		HoursPerDay:         d(8),
		OvertimeMultipliers: map[payroll.OvertimeCategory]payroll.Money{
			payroll.OvertimeRegular: d(1.25),
			payroll.OvertimeHoliday: d(2.00),
		},
		DefaultFilingStatus: payroll.StatusSingle,
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := payroll.NewRegistry()
	if err := r.Register(testPolicy(t, "PH", 2023)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	p, err := r.Resolve("PH", 2023)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.ID.Jurisdiction != "PH" || p.ID.VersionYear != 2023 {
		t.Fatalf("resolved wrong policy: %s", p.ID)
	}
}

func TestRegistry_JurisdictionCaseInsensitive(t *testing.T) {
	r := payroll.NewRegistry()
	if err := r.Register(testPolicy(t, "ph", 2023)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, j := range []string{"PH", "ph", "Ph"} {
		if _, err := r.Resolve(j, 2023); err != nil {
			t.Errorf("Resolve(%q): %v", j, err)
		}
	}
}

func TestRegistry_UnknownVersion_TypedError(t *testing.T) {
	r := payroll.NewRegistry()
	if err := r.Register(testPolicy(t, "PH", 2023)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Wrong year and wrong jurisdiction both miss.
	for _, probe := range []struct {
		jurisdiction string
		year         int
	}{{"PH", 1999}, {"SG", 2023}} {
		_, err := r.Resolve(probe.jurisdiction, probe.year)
		if !errors.Is(err, payroll.ErrUnknownPolicyVersion) {
			t.Errorf("Resolve(%s/%d): expected ErrUnknownPolicyVersion, got %v",
				probe.jurisdiction, probe.year, err)
		}
		var ue *payroll.UnknownPolicyError
		if !errors.As(err, &ue) {
			t.Errorf("Resolve(%s/%d): error does not carry the missing id", probe.jurisdiction, probe.year)
		}
	}
}

func TestRegistry_DuplicateRegistration_Rejected(t *testing.T) {
	r := payroll.NewRegistry()
	if err := r.Register(testPolicy(t, "PH", 2023)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	err := r.Register(testPolicy(t, "PH", 2023))
	if !errors.Is(err, payroll.ErrDuplicatePolicy) {
		t.Fatalf("expected ErrDuplicatePolicy, got %v", err)
	}
}

func TestRegistry_ReplaceOverwrites(t *testing.T) {
	r := payroll.NewRegistry()
	if err := r.Register(testPolicy(t, "PH", 2023)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	updated := testPolicy(t, "PH", 2023)
	updated.Name = "revised"
	if err := r.Replace(updated); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	p, err := r.Resolve("PH", 2023)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Name != "revised" {
		t.Fatalf("Replace did not overwrite: got %q", p.Name)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := payroll.NewRegistry()
	for _, reg := range []struct {
		j string
		y int
	}{{"SG", 2023}, {"PH", 2023}, {"PH", 2021}} {
		if err := r.Register(testPolicy(t, reg.j, reg.y)); err != nil {
			t.Fatalf("Register(%s/%d): %v", reg.j, reg.y, err)
		}
	}

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 policies, got %d", len(list))
	}
	want := []payroll.PolicyID{
		{Jurisdiction: "PH", VersionYear: 2021},
		{Jurisdiction: "PH", VersionYear: 2023},
		{Jurisdiction: "SG", VersionYear: 2023},
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("list[%d] = %s, want %s", i, list[i].ID, id)
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestPolicySet_Validate_RejectsStructuralGaps(t *testing.T) {
	mutations := map[string]func(*payroll.PolicySet){
		"no jurisdiction":      func(p *payroll.PolicySet) { p.ID.Jurisdiction = "" },
		"no contributions":     func(p *payroll.PolicySet) { p.Contributions = nil },
		"nil calculator":       func(p *payroll.PolicySet) { p.Contributions[0].Calc = nil },
		"unknown base":         func(p *payroll.PolicySet) { p.Contributions[0].Base = "take_home" },
		"no tax":               func(p *payroll.PolicySet) { p.Tax = nil },
		"zero working days":    func(p *payroll.PolicySet) { p.WorkingDaysPerMonth = d(0) },
		"no default status":    func(p *payroll.PolicySet) { p.DefaultFilingStatus = "" },
		"deduction but no cap": func(p *payroll.PolicySet) { p.MaxDependents = 0 },
		"duplicate type": func(p *payroll.PolicySet) {
			p.Contributions = append(p.Contributions, p.Contributions[0])
		},
	}
	for name, mutate := range mutations {
		p := testPolicy(t, "PH", 2023)
		mutate(p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: Validate() accepted an invalid policy", name)
		}
	}
}

// =============================================================================
// FILING STATUS NORMALIZATION
// =============================================================================

func TestNormalizeFilingStatus(t *testing.T) {
	p := testPolicy(t, "PH", 2023)

	cases := []struct {
		raw  string
		want payroll.FilingStatus
	}{
		{"", payroll.StatusSingle}, // policy default
		{"Single", payroll.StatusSingle},
		{"MARRIED", payroll.StatusMarried},
		{"  Head of Household  ", payroll.StatusHeadOfHousehold},
		{"widowed", payroll.FilingStatus("widowed")}, // passed through, rejected later
	}
	for _, tc := range cases {
		if got := p.NormalizeFilingStatus(tc.raw); got != tc.want {
			t.Errorf("NormalizeFilingStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
