/*
Package export serializes payroll result batches to CSV and parses them
back.

PURPOSE:
  The engine hands back in-memory structured values; this package is the
  export collaborator that renders them into the flat CSV layout the
  payroll reports have always shipped (one row per employee, one
  employee/employer column pair per contribution type).

ROUND-TRIP:
  Write then Read reproduces identical monetary totals - the exporter is
  lossless for every money column. Non-column detail (contribution
  reference bases) is not part of the export contract.

COLUMNS:
  period, employee_id, full_name, dependents, basic_salary, allowances,
  gross_salary, <type>_employee, <type>_employer (per contribution type,
  policy order), taxable_income, withholding_tax, total_deductions,
  net_pay, employer_cost
*/
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

const (
	employeeSuffix = "_employee"
	employerSuffix = "_employer"
)

var fixedHeader = []string{
	"period", "employee_id", "full_name", "dependents",
	"basic_salary", "allowances", "gross_salary",
}

var fixedTrailer = []string{
	"taxable_income", "withholding_tax", "total_deductions", "net_pay", "employer_cost",
}

// ContributionTypes returns the contribution column order for a batch:
// the types of the first successful result, in policy order.
func ContributionTypes(results []*payroll.PayrollResult) []payroll.ContributionType {
	if len(results) == 0 {
		return nil
	}
	types := make([]payroll.ContributionType, 0, len(results[0].Contributions))
	for _, line := range results[0].Contributions {
		types = append(types, line.Type)
	}
	return types
}

// Write renders successful results as CSV. Failed records never reach
// the export; they are reported through the batch summary.
func Write(w io.Writer, results []*payroll.PayrollResult) error {
	cw := csv.NewWriter(w)
	types := ContributionTypes(results)

	header := append([]string{}, fixedHeader...)
	for _, t := range types {
		header = append(header, string(t)+employeeSuffix, string(t)+employerSuffix)
	}
	header = append(header, fixedTrailer...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			r.Period,
			r.EmployeeID,
			r.FullName,
			strconv.Itoa(r.Dependents),
			money(r.BasicSalary),
			money(r.Allowances),
			money(r.GrossSalary),
		}
		for _, t := range types {
			res, ok := r.Contribution(t)
			if !ok {
				return fmt.Errorf("result %s has no %s contribution", r.EmployeeID, t)
			}
			row = append(row, money(res.EmployeeShare), money(res.EmployerShare))
		}
		row = append(row,
			money(r.TaxableIncome),
			money(r.WithholdingTax),
			money(r.TotalDeductions),
			money(r.NetPay),
			money(r.EmployerCost),
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read parses an exported CSV back into payroll results.
func Read(r io.Reader) ([]*payroll.PayrollResult, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	var types []payroll.ContributionType
	for i, name := range header {
		col[name] = i
		if strings.HasSuffix(name, employeeSuffix) {
			types = append(types, payroll.ContributionType(strings.TrimSuffix(name, employeeSuffix)))
		}
	}
	for _, name := range append(append([]string{}, fixedHeader...), fixedTrailer...) {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var results []*payroll.PayrollResult
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		cell := func(name string) string { return row[col[name]] }
		deps, err := strconv.Atoi(cell("dependents"))
		if err != nil {
			return nil, fmt.Errorf("line %d: dependents: %w", line, err)
		}

		res := &payroll.PayrollResult{
			Period:     cell("period"),
			EmployeeID: cell("employee_id"),
			FullName:   cell("full_name"),
			Dependents: deps,
		}
		fields := map[string]*payroll.Money{
			"basic_salary":     &res.BasicSalary,
			"allowances":       &res.Allowances,
			"gross_salary":     &res.GrossSalary,
			"taxable_income":   &res.TaxableIncome,
			"withholding_tax":  &res.WithholdingTax,
			"total_deductions": &res.TotalDeductions,
			"net_pay":          &res.NetPay,
			"employer_cost":    &res.EmployerCost,
		}
		for name, dst := range fields {
			v, err := decimal.NewFromString(cell(name))
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			*dst = v
		}

		for _, t := range types {
			eeCol, okEE := col[string(t)+employeeSuffix]
			erCol, okER := col[string(t)+employerSuffix]
			if !okEE || !okER {
				return nil, fmt.Errorf("line %d: incomplete column pair for %s", line, t)
			}
			ee, err := decimal.NewFromString(row[eeCol])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s employee share: %w", line, t, err)
			}
			er, err := decimal.NewFromString(row[erCol])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s employer share: %w", line, t, err)
			}
			res.Contributions = append(res.Contributions, payroll.ContributionLine{
				Type: t,
				Result: payroll.ContributionResult{
					EmployeeShare: ee,
					EmployerShare: er,
					Total:         ee.Add(er),
					ReferenceBase: decimal.Zero,
				},
			})
		}

		results = append(results, res)
	}
	return results, nil
}

func money(m payroll.Money) string { return m.StringFixed(2) }
