package export_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/export"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/philippines"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func computeBatch(t *testing.T) *payroll.BatchResult {
	t.Helper()
	registry := payroll.NewRegistry()
	require.NoError(t, philippines.RegisterAll(registry))
	policy, err := registry.Resolve(philippines.Jurisdiction, 2023)
	require.NoError(t, err)

	rows := []payroll.RawRecord{
		{
			payroll.FieldEmployeeID:  "E-1",
			payroll.FieldFullName:    "Juan dela Cruz",
			payroll.FieldBasicSalary: 25000.0,
			payroll.FieldAllowances:  5000.0,
			payroll.FieldDependents:  1,
		},
		{
			payroll.FieldEmployeeID:  "E-2",
			payroll.FieldFullName:    "Maria Santos",
			payroll.FieldBasicSalary: 80000.0,
			payroll.FieldLoans:       2500.0,
		},
		{
			payroll.FieldEmployeeID:  "E-3",
			payroll.FieldFullName:    "Jose Rizal",
			payroll.FieldBasicSalary: 610.0,
		},
	}
	batch, err := payroll.NewEngine().ComputeBatch(context.Background(), "2023-06", rows, policy)
	require.NoError(t, err)
	require.Equal(t, 3, batch.Summary.Succeeded)
	return batch
}

// =============================================================================
// ROUND-TRIP
// =============================================================================

func TestCSV_RoundTrip_IdenticalTotals(t *testing.T) {
	// GIVEN: a computed batch written to CSV
	batch := computeBatch(t)
	results := batch.Results()

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, results))

	// WHEN: reading it back
	parsed, err := export.Read(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, len(results))

	// THEN: every monetary column survives exactly
	for i, want := range results {
		got := parsed[i]
		assert.Equal(t, want.EmployeeID, got.EmployeeID)
		assert.Equal(t, want.FullName, got.FullName)
		assert.Equal(t, want.Period, got.Period)
		assert.Equal(t, want.Dependents, got.Dependents)
		assert.True(t, got.GrossSalary.Equal(want.GrossSalary), "gross %d: %s vs %s", i, got.GrossSalary, want.GrossSalary)
		assert.True(t, got.NetPay.Equal(want.NetPay), "net %d", i)
		assert.True(t, got.WithholdingTax.Equal(want.WithholdingTax), "tax %d", i)
		assert.True(t, got.TotalDeductions.Equal(want.TotalDeductions), "deductions %d", i)
		assert.True(t, got.EmployerCost.Equal(want.EmployerCost), "employer cost %d", i)

		for _, line := range want.Contributions {
			gotLine, ok := got.Contribution(line.Type)
			require.True(t, ok, "missing %s on row %d", line.Type, i)
			assert.True(t, gotLine.EmployeeShare.Equal(line.Result.EmployeeShare), "%s employee %d", line.Type, i)
			assert.True(t, gotLine.EmployerShare.Equal(line.Result.EmployerShare), "%s employer %d", line.Type, i)
		}
	}
}

func TestCSV_HeaderLayout(t *testing.T) {
	batch := computeBatch(t)

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, batch.Results()))

	header := strings.Split(strings.SplitN(buf.String(), "\n", 2)[0], ",")
	assert.Equal(t, "period", header[0])
	assert.Contains(t, header, "social_security_employee")
	assert.Contains(t, header, "social_security_employer")
	assert.Contains(t, header, "health_insurance_employee")
	assert.Contains(t, header, "housing_fund_employer")
	assert.Equal(t, "employer_cost", strings.TrimSpace(header[len(header)-1]))
}

func TestCSV_EmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, nil))

	parsed, err := export.Read(&buf)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

// =============================================================================
// MALFORMED INPUT
// =============================================================================

func TestCSV_Read_MissingColumn_Rejected(t *testing.T) {
	_, err := export.Read(strings.NewReader("period,employee_id\n2023-06,E-1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestCSV_Read_BadMoneyValue_Rejected(t *testing.T) {
	batch := computeBatch(t)
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, batch.Results()[:1]))

	corrupted := strings.Replace(buf.String(), "30000.00", "thirty-k", 1)
	_, err := export.Read(strings.NewReader(corrupted))
	require.Error(t, err)
}
