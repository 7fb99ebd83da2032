package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/platform/httpx"
	"github.com/parcelio/api/internal/platform/requestctx"
	"github.com/parcelio/api/internal/repositories"
	"github.com/parcelio/api/internal/services"
)

const maxPickupBodySize = 4 * 1024

// PickupHandlers exposes the pickup run endpoints.
type PickupHandlers struct {
	pickups services.PickupService
}

// NewPickupHandlers constructs handlers backed by the pickup service.
func NewPickupHandlers(pickups services.PickupService) *PickupHandlers {
	return &PickupHandlers{pickups: pickups}
}

// Routes wires the /pickups endpoints onto the provided router.
func (h *PickupHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{pickupID}", h.get)
	r.Post("/{pickupID}:transition", h.transition)
	r.Post("/{pickupID}:assign-driver", h.assignDriver)
	r.Post("/{pickupID}:complete", h.complete)
	r.Post("/{pickupID}/orders", h.addOrder)
	r.Delete("/{pickupID}/orders/{orderID}", h.removeOrder)
}

type pickupListResponse struct {
	Items         []pickupPayload `json:"items"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

type pickupPayload struct {
	ID             string                  `json:"id"`
	PickupNumber   string                  `json:"pickup_number"`
	BusinessID     string                  `json:"business_id"`
	Status         string                  `json:"status"`
	StatusCategory string                  `json:"status_category"`
	StatusHistory  []statusHistoryPayload  `json:"status_history"`
	Stages         pickupStagesPayload     `json:"stages"`
	OrderIDs       []string                `json:"order_ids"`
	DriverID       *string                 `json:"driver_id,omitempty"`
	DriverHistory  []courierHistoryPayload `json:"driver_history,omitempty"`
	Fees           int64                   `json:"fees"`
	FeesTxnID      *string                 `json:"fees_txn_id,omitempty"`
	CompletedDate  *string                 `json:"completed_date,omitempty"`
	Revision       int64                   `json:"revision"`
	CreatedAt      string                  `json:"created_at"`
	UpdatedAt      string                  `json:"updated_at"`
}

type pickupStagesPayload struct {
	Scheduled      stagePayload `json:"scheduled"`
	DriverAssigned stagePayload `json:"driver_assigned"`
	PickedUp       stagePayload `json:"picked_up"`
	InStock        stagePayload `json:"in_stock"`
	Completed      stagePayload `json:"completed"`
}

func buildPickupPayload(pickup domain.Pickup) pickupPayload {
	orderIDs := pickup.OrderIDs
	if orderIDs == nil {
		orderIDs = []string{}
	}
	return pickupPayload{
		ID:             pickup.ID,
		PickupNumber:   pickup.PickupNumber,
		BusinessID:     pickup.BusinessID,
		Status:         pickup.Status,
		StatusCategory: string(pickup.StatusCategory),
		StatusHistory:  buildStatusHistory(pickup.StatusHistory),
		Stages: pickupStagesPayload{
			Scheduled:      buildStage(pickup.Stages.Scheduled),
			DriverAssigned: buildStage(pickup.Stages.DriverAssigned),
			PickedUp:       buildStage(pickup.Stages.PickedUp),
			InStock:        buildStage(pickup.Stages.InStock),
			Completed:      buildStage(pickup.Stages.Completed),
		},
		OrderIDs:      orderIDs,
		DriverID:      pickup.DriverID,
		DriverHistory: buildCourierHistory(pickup.DriverHistory),
		Fees:          pickup.Fees,
		FeesTxnID:     pickup.FeesTxnID,
		CompletedDate: pointerTime(pickup.CompletedDate),
		Revision:      pickup.Revision,
		CreatedAt:     formatTime(pickup.CreatedAt),
		UpdatedAt:     formatTime(pickup.UpdatedAt),
	}
}

type createPickupRequest struct {
	BusinessID string `json:"business_id"`
	City       string `json:"city"`
}

func (h *PickupHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createPickupRequest
	if !decodePickupBody(ctx, w, r, &req) {
		return
	}

	actor, _ := requestctx.ActorFromContext(ctx)
	pickup, err := h.pickups.CreatePickup(ctx, services.CreatePickupCommand{
		BusinessID: strings.TrimSpace(req.BusinessID),
		City:       strings.TrimSpace(req.City),
		ActorID:    actor.ID,
	})
	if err != nil {
		writePickupError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildPickupPayload(pickup))
}

func (h *PickupHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pickup, err := h.pickups.GetPickup(ctx, chi.URLParam(r, "pickupID"))
	if err != nil {
		writePickupError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPickupPayload(pickup))
}

func (h *PickupHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	pagination, err := parsePagination(query.Get("page_size"), query.Get("page_token"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := repositories.PickupListFilter{
		BusinessID: strings.TrimSpace(query.Get("business_id")),
		DriverID:   strings.TrimSpace(query.Get("driver_id")),
		Status:     parseFilterValues(query["status"]),
		Pagination: pagination,
	}

	page, err := h.pickups.ListPickups(ctx, filter)
	if err != nil {
		writePickupError(ctx, w, err)
		return
	}

	items := make([]pickupPayload, 0, len(page.Items))
	for _, pickup := range page.Items {
		items = append(items, buildPickupPayload(pickup))
	}
	writeJSONResponse(w, http.StatusOK, pickupListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

type pickupTransitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *PickupHandlers) transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req pickupTransitionRequest
	if !decodePickupBody(ctx, w, r, &req) {
		return
	}

	actor, _ := requestctx.ActorFromContext(ctx)
	pickup, err := h.pickups.TransitionStatus(ctx, services.PickupStatusTransitionCommand{
		PickupID:     chi.URLParam(r, "pickupID"),
		TargetStatus: domain.PickupStatus(strings.TrimSpace(req.Status)),
		Notes:        req.Notes,
		ActorID:      actor.ID,
	})
	if err != nil {
		writePickupError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPickupPayload(pickup))
}

type pickupDriverRequest struct {
	DriverID string `json:"driver_id"`
	Notes    string `json:"notes"`
}

func (h *PickupHandlers) assignDriver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req pickupDriverRequest
	if !decodePickupBody(ctx, w, r, &req) {
		return
	}

	actor, _ := requestctx.ActorFromContext(ctx)
	pickup, err := h.pickups.AssignDriver(ctx, services.AssignDriverCommand{
		PickupID: chi.URLParam(r, "pickupID"),
		DriverID: strings.TrimSpace(req.DriverID),
		Notes:    req.Notes,
		ActorID:  actor.ID,
	})
	if err != nil {
		writePickupError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPickupPayload(pickup))
}

type pickupOrderRequest struct {
	OrderID string `json:"order_id"`
}

func (h *PickupHandlers) addOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req pickupOrderRequest
	if !decodePickupBody(ctx, w, r, &req) {
		return
	}

	actor, _ := requestctx.ActorFromContext(ctx)
	pickup, err := h.pickups.AddOrder(ctx, services.PickupOrderCommand{
		PickupID: chi.URLParam(r, "pickupID"),
		OrderID:  strings.TrimSpace(req.OrderID),
		ActorID:  actor.ID,
	})
	if err != nil {
		writePickupError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPickupPayload(pickup))
}

func (h *PickupHandlers) removeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := requestctx.ActorFromContext(ctx)
	pickup, err := h.pickups.RemoveOrder(ctx, services.PickupOrderCommand{
		PickupID: chi.URLParam(r, "pickupID"),
		OrderID:  chi.URLParam(r, "orderID"),
		ActorID:  actor.ID,
	})
	if err != nil {
		writePickupError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPickupPayload(pickup))
}

func (h *PickupHandlers) complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req pickupDriverRequest
	if !decodePickupBody(ctx, w, r, &req) {
		return
	}

	pickup, err := h.pickups.CompletePickup(ctx, services.CompletePickupCommand{
		PickupID: chi.URLParam(r, "pickupID"),
		DriverID: strings.TrimSpace(req.DriverID),
		Notes:    req.Notes,
	})
	if err != nil {
		writePickupError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPickupPayload(pickup))
}

func decodePickupBody(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := readLimitedBody(r, maxPickupBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

func writePickupError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPickupInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPickupNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("pickup_not_found", "pickup not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPickupConflict):
		httpx.WriteError(ctx, w, httpx.NewError("pickup_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrPickupInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("pickup_invalid_state", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("pickup_error", "failed to process pickup request", http.StatusInternalServerError))
	}
}
