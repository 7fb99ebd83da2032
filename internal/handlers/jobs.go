package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parcelio/api/internal/platform/httpx"
	"github.com/parcelio/api/internal/services"
)

const maxJobBodySize = 2 * 1024

// JobHandlers exposes the internal settlement job triggers. These sit behind
// the /internal group and are invoked by the scheduler, not by API clients.
type JobHandlers struct {
	settlement services.SettlementService
	now        func() time.Time
}

// JobOption customises job handler construction.
type JobOption func(*JobHandlers)

// WithJobClock overrides the clock used to resolve the default run date.
func WithJobClock(now func() time.Time) JobOption {
	return func(h *JobHandlers) {
		if now != nil {
			h.now = now
		}
	}
}

// NewJobHandlers constructs handlers backed by the settlement service.
func NewJobHandlers(settlement services.SettlementService, opts ...JobOption) *JobHandlers {
	h := &JobHandlers{
		settlement: settlement,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the job endpoints onto the provided router.
func (h *JobHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/jobs/daily-processing", h.runDailyProcessing)
	r.Post("/jobs/releases", h.runReleases)
	r.Post("/jobs/recovery", h.runRecovery)
}

type jobRunRequest struct {
	AsOf string `json:"as_of"`
}

func (h *JobHandlers) resolveAsOf(r *http.Request) (time.Time, error) {
	asOf := h.now().UTC()
	if r == nil || r.Body == nil || r.ContentLength == 0 {
		return asOf, nil
	}
	body, err := readLimitedBody(r, maxJobBodySize)
	if err != nil {
		if errors.Is(err, errEmptyBody) {
			return asOf, nil
		}
		return time.Time{}, err
	}
	var req jobRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return time.Time{}, errors.New("request body is not valid JSON")
	}
	parsed, err := parseTimeParam(req.AsOf)
	if err != nil {
		return time.Time{}, err
	}
	if parsed != nil {
		asOf = *parsed
	}
	return asOf, nil
}

func (h *JobHandlers) runDailyProcessing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	asOf, err := h.resolveAsOf(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.settlement.RunDailyProcessing(ctx, asOf)
	if err != nil {
		writeJobError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.AlreadyRan {
		status = http.StatusConflict
	}
	failed := result.FailedBusinesses
	if failed == nil {
		failed = []string{}
	}
	writeJSONResponse(w, status, map[string]any{
		"batch_id":             result.BatchID,
		"already_ran":          result.AlreadyRan,
		"orders_processed":     result.OrdersProcessed,
		"businesses_processed": result.BusinessesProcessed,
		"failed_businesses":    failed,
	})
}

func (h *JobHandlers) runReleases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	asOf, err := h.resolveAsOf(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.settlement.ProcessPendingReleases(ctx, asOf)
	if err != nil {
		writeJobError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.AlreadyRan {
		status = http.StatusConflict
	}
	writeJSONResponse(w, status, map[string]any{
		"already_ran":        result.AlreadyRan,
		"releases_created":   result.ReleasesCreated,
		"businesses_total":   result.BusinessesTotal,
		"skipped_existing":   result.SkippedExisting,
		"skipped_no_balance": result.SkippedNoBalance,
	})
}

type jobRecoveryRequest struct {
	BatchID string `json:"batch_id"`
}

func (h *JobHandlers) runRecovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := readLimitedBody(r, maxJobBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req jobRecoveryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}
	batchID := strings.TrimSpace(req.BatchID)
	if batchID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "batch_id is required", http.StatusBadRequest))
		return
	}

	result, err := h.settlement.RecoverFailedProcessing(ctx, batchID)
	if err != nil {
		writeJobError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"orders_verified": result.OrdersVerified,
		"orders_reset":    result.OrdersReset,
	})
}

func writeJobError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrLedgerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("job_error", "settlement job failed", http.StatusInternalServerError))
	}
}
