/*
record.go - Input row coercion and validation

PURPOSE:
  Converts one loosely-typed RawRecord (spreadsheet row, JSON object)
  into a typed EmployeeRecord. Values arrive as whatever the upstream
  parser produced - float64 from JSON, strings from spreadsheets,
  json.Number from decoders configured that way - and every numeric
  field is coerced through decimal parsing so "25000", 25000 and 25000.0
  all land on the same Money value.

FAILURE ISOLATION:
  A malformed value here produces an InvalidInputError for that record
  only; the engine collects it and keeps processing the batch. Presence
  of the mandatory fields is checked earlier, at batch level.
*/
package payroll

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// requiredFields must be present on every input row before any record
// is computed. Their absence is a batch-level configuration error.
var requiredFields = []string{FieldEmployeeID, FieldFullName, FieldBasicSalary}

// overtimeFields maps input field names onto overtime categories.
var overtimeFields = map[string]OvertimeCategory{
	FieldRegularOT:        OvertimeRegular,
	FieldRestDayOT:        OvertimeRestDay,
	FieldHolidayOT:        OvertimeHoliday,
	FieldSpecialHolidayOT: OvertimeSpecialHoliday,
}

// ParseRecord coerces a raw row into an EmployeeRecord under a policy's
// conventions (filing status defaulting). Optional numeric fields
// default to 0 when absent.
func ParseRecord(row RawRecord, policy *PolicySet) (EmployeeRecord, error) {
	rec := EmployeeRecord{}

	id, err := toText(row[FieldEmployeeID])
	if err != nil || id == "" {
		return rec, &InvalidInputError{Field: FieldEmployeeID, Value: row[FieldEmployeeID], Reason: "must be a non-empty identifier"}
	}
	rec.EmployeeID = id

	name, err := toText(row[FieldFullName])
	if err != nil || name == "" {
		return rec, &InvalidInputError{Field: FieldFullName, Value: row[FieldFullName], Reason: "must be a non-empty name"}
	}
	rec.FullName = name

	basic, err := toMoney(row[FieldBasicSalary])
	if err != nil {
		return rec, &InvalidInputError{Field: FieldBasicSalary, Value: row[FieldBasicSalary], Reason: err.Error()}
	}
	if basic.IsNegative() {
		return rec, &InvalidInputError{Field: FieldBasicSalary, Value: row[FieldBasicSalary], Reason: "must not be negative"}
	}
	rec.BasicSalary = basic

	for field, dst := range map[string]*Money{
		FieldAllowances:  &rec.Allowances,
		FieldDaysWorked:  &rec.DaysWorked,
		FieldLateMinutes: &rec.LateMinutes,
		FieldAbsentDays:  &rec.AbsentDays,
		FieldLoans:       &rec.Loans,
	} {
		v, err := optionalMoney(row, field)
		if err != nil {
			return rec, err
		}
		*dst = v
	}

	rec.OvertimeHours = make(map[OvertimeCategory]Money, len(overtimeFields))
	for field, cat := range overtimeFields {
		v, err := optionalMoney(row, field)
		if err != nil {
			return rec, err
		}
		if v.IsPositive() {
			rec.OvertimeHours[cat] = v
		}
	}

	deps, err := toMoney(valueOrZero(row[FieldDependents]))
	if err != nil {
		return rec, &InvalidInputError{Field: FieldDependents, Value: row[FieldDependents], Reason: err.Error()}
	}
	if deps.IsNegative() || !deps.IsInteger() {
		return rec, &InvalidInputError{Field: FieldDependents, Value: row[FieldDependents], Reason: "must be a non-negative integer"}
	}
	rec.Dependents = int(deps.IntPart())

	rawStatus := ""
	if v, ok := row[FieldTaxStatus]; ok && v != nil {
		rawStatus, err = toText(v)
		if err != nil {
			return rec, &InvalidInputError{Field: FieldTaxStatus, Value: v, Reason: err.Error()}
		}
	}
	rec.TaxStatus = policy.NormalizeFilingStatus(rawStatus)

	return rec, nil
}

// CheckRequiredFields scans every row for the mandatory fields before
// any record is processed. The first missing field aborts the batch.
func CheckRequiredFields(rows []RawRecord) error {
	for i, row := range rows {
		for _, field := range requiredFields {
			if v, ok := row[field]; !ok || v == nil {
				return &MissingFieldError{Field: field, Row: i}
			}
		}
	}
	return nil
}

// =============================================================================
// COERCION HELPERS
// =============================================================================

func valueOrZero(v any) any {
	if v == nil {
		return float64(0)
	}
	return v
}

func optionalMoney(row RawRecord, field string) (Money, error) {
	v, ok := row[field]
	if !ok || v == nil {
		return decimal.Zero, nil
	}
	m, err := toMoney(v)
	if err != nil {
		return decimal.Zero, &InvalidInputError{Field: field, Value: v, Reason: err.Error()}
	}
	if m.IsNegative() {
		return decimal.Zero, &InvalidInputError{Field: field, Value: v, Reason: "must not be negative"}
	}
	return m, nil
}

func toMoney(v any) (Money, error) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case json.Number:
		return decimal.NewFromString(x.String())
	case decimal.Decimal:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("not a number: %q", x)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported value type %T", v)
	}
}

func toText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
