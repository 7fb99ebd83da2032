package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/platform/httpx"
	"github.com/parcelio/api/internal/platform/requestctx"
	"github.com/parcelio/api/internal/repositories"
	"github.com/parcelio/api/internal/services"
)

const maxOrderBodySize = 8 * 1024

// OrderHandlers exposes the order lifecycle endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs handlers backed by the order service.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/number/{orderNumber}", h.getByNumber)
	r.Get("/{orderID}", h.get)
	r.Get("/{orderID}/next-statuses", h.nextStatuses)
	r.Post("/{orderID}:transition", h.transition)
	r.Post("/{orderID}:complete", h.complete)
	r.Post("/{orderID}:unavailable", h.reportUnavailable)
	r.Post("/{orderID}:assign-courier", h.assignCourier)
	r.Post("/{orderID}:return", h.requestReturn)
}

type createOrderRequest struct {
	BusinessID    string `json:"business_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	OrderType     string `json:"order_type"`
	AmountType    string `json:"amount_type"`
	Amount        int64  `json:"amount"`
	City          string `json:"city"`
	IsExpress     bool   `json:"is_express"`
}

func (h *OrderHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h == nil || h.orders == nil {
		writeOrderError(ctx, w, errors.New("order service unavailable"))
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	actor, _ := requestctx.ActorFromContext(ctx)
	order, err := h.orders.CreateOrder(ctx, services.CreateOrderCommand{
		BusinessID:    strings.TrimSpace(req.BusinessID),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		OrderType:     domain.OrderType(strings.TrimSpace(req.OrderType)),
		AmountType:    strings.TrimSpace(req.AmountType),
		Amount:        req.Amount,
		City:          strings.TrimSpace(req.City),
		IsExpress:     req.IsExpress,
		ActorID:       actor.ID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildOrderPayload(order))
}

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "orderID")
	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) getByNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := chi.URLParam(r, "orderNumber")
	order, err := h.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	pagination, err := parsePagination(query.Get("page_size"), query.Get("page_token"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	completedAfter, err := parseTimeParam(query.Get("completed_after"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	completedBefore, err := parseTimeParam(query.Get("completed_before"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := repositories.OrderListFilter{
		BusinessID:     strings.TrimSpace(query.Get("business_id")),
		CourierID:      strings.TrimSpace(query.Get("courier_id")),
		Status:         parseFilterValues(query["status"]),
		StatusCategory: strings.TrimSpace(query.Get("status_category")),
		OrderType:      strings.TrimSpace(query.Get("order_type")),
		CompletedAt: domain.RangeQuery[time.Time]{
			From: completedAfter,
			To:   completedBefore,
		},
		Pagination: pagination,
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *OrderHandlers) nextStatuses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "orderID")
	statuses, err := h.orders.NextStatuses(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"order_id": orderID,
		"statuses": out,
	})
}

type orderTransitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *OrderHandlers) transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req orderTransitionRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	actor, _ := requestctx.ActorFromContext(ctx)
	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID:      chi.URLParam(r, "orderID"),
		TargetStatus: domain.OrderStatus(strings.TrimSpace(req.Status)),
		Notes:        req.Notes,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

type orderCourierRequest struct {
	CourierID string `json:"courier_id"`
	Notes     string `json:"notes"`
}

func (h *OrderHandlers) complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req orderCourierRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	order, err := h.orders.CompleteOrder(ctx, services.CompleteOrderCommand{
		OrderID:   chi.URLParam(r, "orderID"),
		CourierID: strings.TrimSpace(req.CourierID),
		Notes:     req.Notes,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

type orderUnavailableRequest struct {
	CourierID string `json:"courier_id"`
	Reason    string `json:"reason"`
}

func (h *OrderHandlers) reportUnavailable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req orderUnavailableRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	order, err := h.orders.ReportUnavailable(ctx, services.ReportUnavailableCommand{
		OrderID:   chi.URLParam(r, "orderID"),
		CourierID: strings.TrimSpace(req.CourierID),
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) assignCourier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req orderCourierRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	actor, _ := requestctx.ActorFromContext(ctx)
	order, err := h.orders.AssignCourier(ctx, services.AssignCourierCommand{
		OrderID:   chi.URLParam(r, "orderID"),
		CourierID: strings.TrimSpace(req.CourierID),
		Notes:     req.Notes,
		ActorID:   actor.ID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

type orderReturnRequest struct {
	Reason           string `json:"reason"`
	IsPartialReturn  bool   `json:"is_partial_return"`
	PartialItemCount int    `json:"partial_item_count"`
}

func (h *OrderHandlers) requestReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req orderReturnRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	actor, _ := requestctx.ActorFromContext(ctx)
	order, err := h.orders.RequestReturn(ctx, services.RequestReturnCommand{
		OrderID:          chi.URLParam(r, "orderID"),
		Reason:           strings.TrimSpace(req.Reason),
		IsPartialReturn:  req.IsPartialReturn,
		PartialItemCount: req.PartialItemCount,
		ActorID:          actor.ID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func decodeOrderBody(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := readLimitedBody(r, maxOrderBodySize)
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

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "failed to read request body", http.StatusBadRequest))
	}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order was modified concurrently", http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
