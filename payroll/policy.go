/*
policy.go - PolicySet definition and version registry

PURPOSE:
  A PolicySet is one jurisdiction-year's complete statutory ruleset: one
  contribution calculator per contribution type, one tax calculator, and
  the policy constants (standard deduction, per-dependent deduction,
  working-days convention, overtime multipliers). Immutable once
  constructed; selected once per computation run, never mutated mid-run.

WHY A REGISTRY:
  The discovered system shipped six near-duplicate engines, one per rate
  revision. Here the rule version is a runtime parameter: adding a new
  statutory year registers a PolicySet, it never touches the engine.
  The registry is concurrent-safe so multiple policy years can be
  resolved and compared within one process (year-over-year payroll).

SEE ALSO:
  - philippines/: preset PolicySets for PH statutory years
  - factory/: JSON definitions -> PolicySet
*/
package payroll

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// POLICY SET
// =============================================================================

// PolicyID identifies one statutory ruleset version.
type PolicyID struct {
	Jurisdiction string
	VersionYear  int
}

func (id PolicyID) String() string {
	return fmt.Sprintf("%s/%d", id.Jurisdiction, id.VersionYear)
}

// ContributionRule binds a contribution type to its calculator and the
// compensation base it keys off.
type ContributionRule struct {
	Type ContributionType
	Base ContributionBase
	Calc ContributionCalculator
}

// PolicySet bundles everything the engine needs to compute one record.
// Treat as immutable after construction.
type PolicySet struct {
	ID   PolicyID
	Name string

	// Contributions in statutory reporting order.
	Contributions []ContributionRule

	Tax *TaxCalculator

	// Annualized deductions applied before the tax table.
	StandardDeduction  Money
	DependentDeduction Money
	MaxDependents      int

	// Attendance conventions.
	WorkingDaysPerMonth Money
	HoursPerDay         Money
	// ScaleByDaysWorked prorates basic salary by days_worked/working_days
	// when days_worked is provided. Policies that pay the full monthly
	// rate regardless leave this false.
	ScaleByDaysWorked bool

	// Premium multipliers per overtime category.
	OvertimeMultipliers map[OvertimeCategory]Money

	// DefaultFilingStatus applies when a record carries no tax_status.
	DefaultFilingStatus FilingStatus
}

// Validate checks structural completeness. Called by the registry on
// Register and by the factory after parsing.
func (p *PolicySet) Validate() error {
	if p.ID.Jurisdiction == "" || p.ID.VersionYear == 0 {
		return fmt.Errorf("policy %q: incomplete id %s", p.Name, p.ID)
	}
	if len(p.Contributions) == 0 {
		return fmt.Errorf("policy %s: no contribution rules", p.ID)
	}
	seen := map[ContributionType]bool{}
	for _, rule := range p.Contributions {
		if rule.Calc == nil {
			return fmt.Errorf("policy %s: nil calculator for %s", p.ID, rule.Type)
		}
		if rule.Base != BaseBasicSalary && rule.Base != BaseGrossPay {
			return fmt.Errorf("policy %s: unknown base %q for %s", p.ID, rule.Base, rule.Type)
		}
		if seen[rule.Type] {
			return fmt.Errorf("policy %s: duplicate contribution type %s", p.ID, rule.Type)
		}
		seen[rule.Type] = true
	}
	if p.Tax == nil {
		return fmt.Errorf("policy %s: no tax calculator", p.ID)
	}
	if !p.WorkingDaysPerMonth.IsPositive() || !p.HoursPerDay.IsPositive() {
		return fmt.Errorf("policy %s: non-positive working-days convention", p.ID)
	}
	if p.MaxDependents < 0 {
		return fmt.Errorf("policy %s: negative max dependents", p.ID)
	}
	if p.DependentDeduction.IsPositive() && p.MaxDependents == 0 {
		return fmt.Errorf("policy %s: dependent deduction configured but max dependents is zero", p.ID)
	}
	if p.DefaultFilingStatus == "" {
		return fmt.Errorf("policy %s: no default filing status", p.ID)
	}
	return nil
}

// OvertimeMultiplier returns the premium multiplier for a category,
// zero if the policy does not pay that category.
func (p *PolicySet) OvertimeMultiplier(cat OvertimeCategory) (Money, bool) {
	m, ok := p.OvertimeMultipliers[cat]
	return m, ok
}

// NormalizeFilingStatus maps a raw tax_status string onto a FilingStatus,
// defaulting to the policy's default when blank. It does NOT reject
// unsupported statuses - the tax calculator does, so the gap surfaces as
// UnsupportedFilingStatusError instead of a silent substitution.
func (p *PolicySet) NormalizeFilingStatus(raw string) FilingStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return p.DefaultFilingStatus
	}
	return FilingStatus(s)
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds registered PolicySets keyed by (jurisdiction, year).
type Registry struct {
	mu       sync.RWMutex
	policies map[PolicyID]*PolicySet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[PolicyID]*PolicySet)}
}

// Register validates and adds a PolicySet. Registering an id twice is an
// error: statutory revisions get a new version year, they do not edit
// history.
func (r *Registry) Register(p *PolicySet) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.ID.Jurisdiction = strings.ToUpper(p.ID.Jurisdiction)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.policies[p.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePolicy, p.ID)
	}
	r.policies[p.ID] = p
	return nil
}

// Replace validates and stores a PolicySet, overwriting any existing
// entry with the same id. Used when reloading stored configurations;
// normal registration goes through Register.
func (r *Registry) Replace(p *PolicySet) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.ID.Jurisdiction = strings.ToUpper(p.ID.Jurisdiction)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.ID] = p
	return nil
}

// Resolve returns the PolicySet for (jurisdiction, year).
func (r *Registry) Resolve(jurisdiction string, versionYear int) (*PolicySet, error) {
	id := PolicyID{Jurisdiction: strings.ToUpper(jurisdiction), VersionYear: versionYear}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[id]
	if !ok {
		return nil, &UnknownPolicyError{ID: id}
	}
	return p, nil
}

// List returns registered PolicySets sorted by jurisdiction, then year.
func (r *Registry) List() []*PolicySet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*PolicySet, 0, len(r.policies))
	for _, p := range r.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID.Jurisdiction != out[j].ID.Jurisdiction {
			return out[i].ID.Jurisdiction < out[j].ID.Jurisdiction
		}
		return out[i].ID.VersionYear < out[j].ID.VersionYear
	})
	return out
}
