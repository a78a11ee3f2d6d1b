/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Internal amounts are decimals; DTOs carry them as float64 for client
  convenience. Amounts are already rounded to cents before they reach
  the DTO layer, so the conversion is exact.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// PolicyDTO represents a policy in API responses.
type PolicyDTO struct {
	Jurisdiction  string              `json:"jurisdiction"`
	VersionYear   int                 `json:"version_year"`
	Name          string              `json:"name"`
	Contributions []string            `json:"contributions"`
	FilingStatus  []string            `json:"filing_statuses"`
	Config        *factory.PolicyJSON `json:"config,omitempty"`
	Version       int                 `json:"version,omitempty"`
	CreatedAt     string              `json:"created_at,omitempty"`
	Builtin       bool                `json:"builtin"`
}

// ComputeRequest is the request to run a payroll batch.
type ComputeRequest struct {
	Jurisdiction string              `json:"jurisdiction"`
	VersionYear  int                 `json:"version_year"`
	Period       string              `json:"period"`
	Records      []payroll.RawRecord `json:"records"`
}

// ContributionDTO is one contribution line in a payslip.
type ContributionDTO struct {
	Type          string  `json:"type"`
	EmployeeShare float64 `json:"employee_share"`
	EmployerShare float64 `json:"employer_share"`
	Total         float64 `json:"total"`
}

// PayslipDTO represents a computed payslip in API responses.
type PayslipDTO struct {
	EmployeeID       string            `json:"employee_id"`
	FullName         string            `json:"full_name"`
	Dependents       int               `json:"dependents"`
	BasicSalary      float64           `json:"basic_salary"`
	Allowances       float64           `json:"allowances"`
	OvertimePay      float64           `json:"overtime_pay"`
	LateDeduction    float64           `json:"late_deduction"`
	AbsenceDeduction float64           `json:"absence_deduction"`
	GrossSalary      float64           `json:"gross_salary"`
	Contributions    []ContributionDTO `json:"contributions"`
	TaxableIncome    float64           `json:"taxable_income"`
	WithholdingTax   float64           `json:"withholding_tax"`
	Loans            float64           `json:"loans"`
	TotalDeductions  float64           `json:"total_deductions"`
	NetPay           float64           `json:"net_pay"`
	EmployerCost     float64           `json:"employer_cost"`
}

// RecordErrorDTO describes one rejected input row.
type RecordErrorDTO struct {
	Index      int    `json:"index"`
	EmployeeID string `json:"employee_id,omitempty"`
	Field      string `json:"field,omitempty"`
	Reason     string `json:"reason"`
}

// SummaryDTO aggregates a batch computation.
type SummaryDTO struct {
	EmployeeCount     int            `json:"employee_count"`
	Succeeded         int            `json:"succeeded"`
	Failed            int            `json:"failed"`
	TotalGross        float64        `json:"total_gross"`
	TotalNet          float64        `json:"total_net"`
	TotalEmployerCost float64        `json:"total_employer_cost"`
	Failures          map[string]int `json:"failures,omitempty"`
}

// ComputeResponse is the result of a payroll batch.
type ComputeResponse struct {
	RunID        string           `json:"run_id"`
	Jurisdiction string           `json:"jurisdiction"`
	VersionYear  int              `json:"version_year"`
	Period       string           `json:"period"`
	Summary      SummaryDTO       `json:"summary"`
	Payslips     []PayslipDTO     `json:"payslips"`
	Errors       []RecordErrorDTO `json:"errors,omitempty"`
}

// RunDTO represents a stored run summary.
type RunDTO struct {
	ID           string     `json:"id"`
	Jurisdiction string     `json:"jurisdiction"`
	VersionYear  int        `json:"version_year"`
	Period       string     `json:"period"`
	Summary      SummaryDTO `json:"summary"`
	CreatedAt    string     `json:"created_at"`
}

// ErrorResponse is the standard error shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toPayslipDTO(r *payroll.PayrollResult) PayslipDTO {
	dto := PayslipDTO{
		EmployeeID:       r.EmployeeID,
		FullName:         r.FullName,
		Dependents:       r.Dependents,
		BasicSalary:      toFloat(r.BasicSalary),
		Allowances:       toFloat(r.Allowances),
		OvertimePay:      toFloat(r.OvertimePay),
		LateDeduction:    toFloat(r.LateDeduction),
		AbsenceDeduction: toFloat(r.AbsenceDeduction),
		GrossSalary:      toFloat(r.GrossSalary),
		TaxableIncome:    toFloat(r.TaxableIncome),
		WithholdingTax:   toFloat(r.WithholdingTax),
		Loans:            toFloat(r.Loans),
		TotalDeductions:  toFloat(r.TotalDeductions),
		NetPay:           toFloat(r.NetPay),
		EmployerCost:     toFloat(r.EmployerCost),
	}
	for _, line := range r.Contributions {
		dto.Contributions = append(dto.Contributions, ContributionDTO{
			Type:          string(line.Type),
			EmployeeShare: toFloat(line.Result.EmployeeShare),
			EmployerShare: toFloat(line.Result.EmployerShare),
			Total:         toFloat(line.Result.Total),
		})
	}
	return dto
}

func toSummaryDTO(s payroll.BatchSummary) SummaryDTO {
	return SummaryDTO{
		EmployeeCount:     s.EmployeeCount,
		Succeeded:         s.Succeeded,
		Failed:            s.Failed,
		TotalGross:        toFloat(s.TotalGross),
		TotalNet:          toFloat(s.TotalNet),
		TotalEmployerCost: toFloat(s.TotalEmployerCost),
		Failures:          s.Failures,
	}
}

func toFloat(m payroll.Money) float64 {
	v, _ := m.Float64()
	return v
}
