/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Policies:
    GET    /api/policies                       List registered policies
    POST   /api/policies                       Create policy from JSON config
    GET    /api/policies/{jurisdiction}/{year} Policy details

  Payroll:
    POST   /api/payroll/compute                Run a batch computation

  Runs:
    GET    /api/runs                           Run history, newest first
    GET    /api/runs/{id}                      Stored run with payslips
    GET    /api/runs/{id}/export               Stored run as CSV

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Factory: JSON to PolicySet conversion
  - Registry: Resolvable policy versions
  - Engine: Batch computation

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, malformed records
  - 404: Unknown policy version, unknown run
  - 409: Duplicate policy registration
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/payroll-engine/export"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Factory  *factory.PolicyFactory
	Registry *payroll.Registry
	Engine   *payroll.Engine

	// ids of policies registered in code rather than via the API
	builtin map[payroll.PolicyID]bool
}

// NewHandler creates a handler around a store and a pre-seeded registry.
// Policies already present in the registry are reported as builtin.
func NewHandler(store *sqlite.Store, registry *payroll.Registry) *Handler {
	builtin := make(map[payroll.PolicyID]bool)
	for _, p := range registry.List() {
		builtin[p.ID] = true
	}
	return &Handler{
		Store:    store,
		Factory:  factory.NewPolicyFactory(),
		Registry: registry,
		Engine:   payroll.NewEngine(),
		builtin:  builtin,
	}
}

// LoadPolicies loads stored policy configurations into the registry.
// Stored configs override builtins with the same id.
func (h *Handler) LoadPolicies(ctx context.Context) error {
	records, err := h.Store.ListPolicies(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		policy, err := h.Factory.ParsePolicy(rec.ConfigJSON)
		if err != nil {
			log.Printf("skipping stored policy %s/%d: %v", rec.Jurisdiction, rec.VersionYear, err)
			continue
		}
		if err := h.Registry.Replace(policy); err != nil {
			log.Printf("skipping stored policy %s/%d: %v", rec.Jurisdiction, rec.VersionYear, err)
		}
	}
	return nil
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns all resolvable policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies := h.Registry.List()

	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = h.toPolicyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy registers a policy from a JSON configuration and persists
// it for future restarts.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var pj factory.PolicyJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy, err := h.Factory.FromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy configuration", err)
		return
	}

	if err := h.Registry.Register(policy); err != nil {
		if errors.Is(err, payroll.ErrDuplicatePolicy) {
			writeError(w, http.StatusConflict, "Policy already registered", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid policy configuration", err)
		return
	}

	configJSON, err := json.Marshal(pj)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode policy", err)
		return
	}
	rec := sqlite.PolicyRecord{
		Jurisdiction: policy.ID.Jurisdiction,
		VersionYear:  policy.ID.VersionYear,
		Name:         policy.Name,
		ConfigJSON:   string(configJSON),
		Version:      1,
	}
	if err := h.Store.SavePolicy(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save policy", err)
		return
	}

	dto := h.toPolicyDTO(policy)
	dto.Config = &pj
	writeJSON(w, http.StatusCreated, dto)
}

// GetPolicy returns one policy, including its stored configuration when
// it was created through the API.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	jurisdiction := chi.URLParam(r, "jurisdiction")
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid version year", err)
		return
	}

	policy, err := h.Registry.Resolve(jurisdiction, year)
	if err != nil {
		writeError(w, http.StatusNotFound, "Policy not found", err)
		return
	}

	dto := h.toPolicyDTO(policy)
	if rec, err := h.Store.GetPolicy(r.Context(), policy.ID.Jurisdiction, policy.ID.VersionYear); err == nil && rec != nil {
		var pj factory.PolicyJSON
		if json.Unmarshal([]byte(rec.ConfigJSON), &pj) == nil {
			dto.Config = &pj
		}
		dto.Version = rec.Version
		dto.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) toPolicyDTO(p *payroll.PolicySet) PolicyDTO {
	dto := PolicyDTO{
		Jurisdiction: p.ID.Jurisdiction,
		VersionYear:  p.ID.VersionYear,
		Name:         p.Name,
		Builtin:      h.builtin[p.ID],
	}
	for _, rule := range p.Contributions {
		dto.Contributions = append(dto.Contributions, string(rule.Type))
	}
	for _, st := range p.Tax.Statuses() {
		dto.FilingStatus = append(dto.FilingStatus, string(st))
	}
	return dto
}

// =============================================================================
// PAYROLL COMPUTATION
// =============================================================================

// Compute runs a payroll batch and persists the run.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "No records to compute", nil)
		return
	}

	period := req.Period
	if period == "" {
		period = time.Now().UTC().Format("2006-01")
	} else if _, err := time.Parse("2006-01", period); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period format (use YYYY-MM)", err)
		return
	}

	policy, err := h.Registry.Resolve(req.Jurisdiction, req.VersionYear)
	if err != nil {
		writeError(w, http.StatusNotFound, "Policy not found", err)
		return
	}

	batch, err := h.Engine.ComputeBatch(r.Context(), period, req.Records, policy)
	if err != nil {
		if payroll.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Malformed batch", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Computation failed", err)
		return
	}

	runID := uuid.NewString()
	run := sqlite.RunRecord{
		ID:                runID,
		Jurisdiction:      policy.ID.Jurisdiction,
		VersionYear:       policy.ID.VersionYear,
		Period:            period,
		EmployeeCount:     batch.Summary.EmployeeCount,
		Succeeded:         batch.Summary.Succeeded,
		Failed:            batch.Summary.Failed,
		TotalGross:        batch.Summary.TotalGross,
		TotalNet:          batch.Summary.TotalNet,
		TotalEmployerCost: batch.Summary.TotalEmployerCost,
	}
	if err := h.Store.SaveRun(r.Context(), run, batch); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist run", err)
		return
	}

	writeJSON(w, http.StatusOK, h.toComputeResponse(runID, policy.ID, period, batch))
}

func (h *Handler) toComputeResponse(runID string, id payroll.PolicyID, period string, batch *payroll.BatchResult) ComputeResponse {
	resp := ComputeResponse{
		RunID:        runID,
		Jurisdiction: id.Jurisdiction,
		VersionYear:  id.VersionYear,
		Period:       period,
		Summary:      toSummaryDTO(batch.Summary),
		Payslips:     []PayslipDTO{},
	}
	for _, res := range batch.Results() {
		resp.Payslips = append(resp.Payslips, toPayslipDTO(res))
	}
	for _, recErr := range batch.Errors() {
		resp.Errors = append(resp.Errors, RecordErrorDTO{
			Index:      recErr.Index,
			EmployeeID: recErr.EmployeeID,
			Field:      recErr.Field,
			Reason:     recErr.Reason,
		})
	}
	return resp
}

// =============================================================================
// RUN HISTORY
// =============================================================================

// ListRuns returns stored run summaries, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = v
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns a stored run with its payslips and record errors.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}

	rows, err := h.Store.GetRunResults(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run results", err)
		return
	}

	resp := ComputeResponse{
		RunID:        run.ID,
		Jurisdiction: run.Jurisdiction,
		VersionYear:  run.VersionYear,
		Period:       run.Period,
		Summary: SummaryDTO{
			EmployeeCount:     run.EmployeeCount,
			Succeeded:         run.Succeeded,
			Failed:            run.Failed,
			TotalGross:        toFloat(run.TotalGross),
			TotalNet:          toFloat(run.TotalNet),
			TotalEmployerCost: toFloat(run.TotalEmployerCost),
		},
		Payslips: []PayslipDTO{},
	}
	for _, row := range rows {
		if row.ResultJSON != "" {
			var res payroll.PayrollResult
			if err := json.Unmarshal([]byte(row.ResultJSON), &res); err != nil {
				writeError(w, http.StatusInternalServerError, "Corrupt stored result", err)
				return
			}
			resp.Payslips = append(resp.Payslips, toPayslipDTO(&res))
			continue
		}
		resp.Errors = append(resp.Errors, RecordErrorDTO{
			Index:      row.Index,
			EmployeeID: row.EmployeeID,
			Reason:     row.ErrorText,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportRun streams a stored run as CSV.
func (h *Handler) ExportRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}

	rows, err := h.Store.GetRunResults(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run results", err)
		return
	}

	var results []*payroll.PayrollResult
	for _, row := range rows {
		if row.ResultJSON == "" {
			continue
		}
		var res payroll.PayrollResult
		if err := json.Unmarshal([]byte(row.ResultJSON), &res); err != nil {
			writeError(w, http.StatusInternalServerError, "Corrupt stored result", err)
			return
		}
		results = append(results, &res)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=payroll_%s_%s.csv", run.Period, run.ID[:8]))
	if err := export.Write(w, results); err != nil {
		log.Printf("export run %s: %v", run.ID, err)
	}
}

// Reset clears all stored data. Development only.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func toRunDTO(run sqlite.RunRecord) RunDTO {
	return RunDTO{
		ID:           run.ID,
		Jurisdiction: run.Jurisdiction,
		VersionYear:  run.VersionYear,
		Period:       run.Period,
		Summary: SummaryDTO{
			EmployeeCount:     run.EmployeeCount,
			Succeeded:         run.Succeeded,
			Failed:            run.Failed,
			TotalGross:        toFloat(run.TotalGross),
			TotalNet:          toFloat(run.TotalNet),
			TotalEmployerCost: toFloat(run.TotalEmployerCost),
		},
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
