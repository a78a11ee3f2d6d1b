/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages and the API layer wrap these with additional context.

ERROR CATEGORIES:
  1. Per-record errors  - isolated to one record, batch continues
  2. Batch-level errors - abort before any record is processed
  3. Configuration errors - unknown policy version, unsupported status
  4. Table-authoring errors - detected at construction, never at query time

USAGE:
  if errors.Is(err, payroll.ErrUnknownPolicyVersion) {
      // 404 to the caller
  }
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for a non-numeric or out-of-domain field
	// on a single record. Isolated to that record; the batch continues.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingRequiredField is returned when a mandatory input field
	// (employee_id, full_name, basic_salary) is absent. Batch-level:
	// reported before any record is processed.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrUnknownPolicyVersion is returned when no PolicySet is registered
	// for a (jurisdiction, version_year) pair.
	ErrUnknownPolicyVersion = errors.New("unknown policy version")

	// ErrUnsupportedFilingStatus is returned when a tax calculator has no
	// bracket table for the requested filing status. Never silently
	// defaults to another table.
	ErrUnsupportedFilingStatus = errors.New("unsupported filing status")

	// ErrRoundingInconsistency indicates a contribution table whose
	// employee+employer split does not reconcile to its total within one
	// cent. This is a table-authoring bug, not a runtime input error.
	ErrRoundingInconsistency = errors.New("contribution shares do not reconcile to total")

	// ErrInvalidRateTable is returned for malformed bracket tables
	// (empty, non-increasing bounds).
	ErrInvalidRateTable = errors.New("invalid rate table")

	// ErrInvalidTaxTable is returned for progressive tax tables that
	// violate the boundary continuity invariant.
	ErrInvalidTaxTable = errors.New("invalid tax table")

	// ErrDuplicatePolicy is returned when registering a PolicySet under an
	// already-registered (jurisdiction, version_year).
	ErrDuplicatePolicy = errors.New("policy version already registered")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RecordError describes one failed record in a batch. It never crosses
// the batch boundary as a thrown error; it is collected into the
// BatchResult alongside successful outcomes.
type RecordError struct {
	Index      int
	EmployeeID string
	Field      string
	Reason     string
	Err        error
}

func (e *RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("record %d (%s): field %q: %s", e.Index, e.EmployeeID, e.Field, e.Reason)
	}
	return fmt.Sprintf("record %d (%s): %s", e.Index, e.EmployeeID, e.Reason)
}

func (e *RecordError) Unwrap() error { return e.Err }

// InvalidInputError describes a malformed field value on a single record.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %v (%s)", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// MissingFieldError names a mandatory field absent from the input set.
type MissingFieldError struct {
	Field string
	Row   int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("row %d is missing required field %q", e.Row, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingRequiredField }

// UnknownPolicyError identifies the missing (jurisdiction, version_year).
type UnknownPolicyError struct {
	ID PolicyID
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("no policy registered for %s/%d", e.ID.Jurisdiction, e.ID.VersionYear)
}

func (e *UnknownPolicyError) Unwrap() error { return ErrUnknownPolicyVersion }

// UnsupportedFilingStatusError identifies the status without a table.
type UnsupportedFilingStatusError struct {
	Status FilingStatus
}

func (e *UnsupportedFilingStatusError) Error() string {
	return fmt.Sprintf("no tax table for filing status %q", e.Status)
}

func (e *UnsupportedFilingStatusError) Unwrap() error { return ErrUnsupportedFilingStatus }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrUnsupportedFilingStatus)
}

// IsNotFound returns true if the error indicates a missing policy.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownPolicyVersion)
}
