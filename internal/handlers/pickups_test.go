package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/platform/requestctx"
	"github.com/parcelio/api/internal/repositories"
	"github.com/parcelio/api/internal/services"
)

func newPickupRouter(svc services.PickupService) chi.Router {
	r := chi.NewRouter()
	NewPickupHandlers(svc).Routes(r)
	return r
}

func TestPickupCreate(t *testing.T) {
	var captured services.CreatePickupCommand
	svc := &stubPickupService{
		createFn: func(_ context.Context, cmd services.CreatePickupCommand) (domain.Pickup, error) {
			captured = cmd
			return samplePickup(), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"business_id":"biz_1","city":"Cairo"}`))
	req = req.WithContext(requestctx.WithActor(req.Context(), requestctx.Actor{ID: "usr_9"}))
	rr := httptest.NewRecorder()

	newPickupRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.BusinessID != "biz_1" || captured.City != "Cairo" || captured.ActorID != "usr_9" {
		t.Fatalf("unexpected command %+v", captured)
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["pickup_number"] != "PKP-2025-000001" {
		t.Fatalf("expected pickup number, got %v", payload["pickup_number"])
	}
}

func TestPickupGetMapsNotFound(t *testing.T) {
	svc := &stubPickupService{
		getFn: func(context.Context, string) (domain.Pickup, error) {
			return domain.Pickup{}, services.ErrPickupNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/pkp_missing", nil)
	rr := httptest.NewRecorder()

	newPickupRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["error"] != "pickup_not_found" {
		t.Fatalf("expected pickup_not_found code, got %v", payload["error"])
	}
}

func TestPickupListParsesFilters(t *testing.T) {
	var captured repositories.PickupListFilter
	svc := &stubPickupService{
		listFn: func(_ context.Context, filter repositories.PickupListFilter) (domain.CursorPage[domain.Pickup], error) {
			captured = filter
			return domain.CursorPage[domain.Pickup]{Items: []domain.Pickup{samplePickup()}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/?business_id=biz_1&driver_id=drv_3&status=new,driverAssigned&page_size=5", nil)
	rr := httptest.NewRecorder()

	newPickupRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.BusinessID != "biz_1" || captured.DriverID != "drv_3" {
		t.Fatalf("unexpected filter %+v", captured)
	}
	if len(captured.Status) != 2 || captured.Status[1] != "driverAssigned" {
		t.Fatalf("expected statuses preserved, got %v", captured.Status)
	}
	if captured.Pagination.PageSize != 5 {
		t.Fatalf("expected page size 5, got %d", captured.Pagination.PageSize)
	}
}

func TestPickupTransition(t *testing.T) {
	var captured services.PickupStatusTransitionCommand
	svc := &stubPickupService{
		transitionFn: func(_ context.Context, cmd services.PickupStatusTransitionCommand) (domain.Pickup, error) {
			captured = cmd
			return samplePickup(), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/pkp_1:transition", strings.NewReader(`{"status":"pickedUp"}`))
	rr := httptest.NewRecorder()

	newPickupRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.PickupID != "pkp_1" || captured.TargetStatus != domain.PickupStatusPickedUp {
		t.Fatalf("unexpected command %+v", captured)
	}
}

func TestPickupAssignDriver(t *testing.T) {
	var captured services.AssignDriverCommand
	svc := &stubPickupService{
		assignFn: func(_ context.Context, cmd services.AssignDriverCommand) (domain.Pickup, error) {
			captured = cmd
			return samplePickup(), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/pkp_1:assign-driver", strings.NewReader(`{"driver_id":"drv_3"}`))
	rr := httptest.NewRecorder()

	newPickupRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.DriverID != "drv_3" {
		t.Fatalf("expected driver drv_3, got %q", captured.DriverID)
	}
}

func TestPickupAddOrderMapsConflict(t *testing.T) {
	svc := &stubPickupService{
		addOrderFn: func(context.Context, services.PickupOrderCommand) (domain.Pickup, error) {
			return domain.Pickup{}, services.ErrPickupConflict
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/pkp_1/orders", strings.NewReader(`{"order_id":"ord_1"}`))
	rr := httptest.NewRecorder()

	newPickupRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["error"] != "pickup_conflict" {
		t.Fatalf("expected pickup_conflict code, got %v", payload["error"])
	}
}

func TestPickupRemoveOrderUsesPathParams(t *testing.T) {
	var captured services.PickupOrderCommand
	svc := &stubPickupService{
		removeFn: func(_ context.Context, cmd services.PickupOrderCommand) (domain.Pickup, error) {
			captured = cmd
			return samplePickup(), nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/pkp_1/orders/ord_2", nil)
	rr := httptest.NewRecorder()

	newPickupRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.PickupID != "pkp_1" || captured.OrderID != "ord_2" {
		t.Fatalf("unexpected command %+v", captured)
	}
}

func TestPickupComplete(t *testing.T) {
	var captured services.CompletePickupCommand
	svc := &stubPickupService{
		completeFn: func(_ context.Context, cmd services.CompletePickupCommand) (domain.Pickup, error) {
			captured = cmd
			return samplePickup(), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/pkp_1:complete", strings.NewReader(`{"driver_id":"drv_3","notes":"all picked"}`))
	rr := httptest.NewRecorder()

	newPickupRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.PickupID != "pkp_1" || captured.DriverID != "drv_3" {
		t.Fatalf("unexpected command %+v", captured)
	}
}

func TestPickupCompleteMapsInvalidState(t *testing.T) {
	svc := &stubPickupService{
		completeFn: func(context.Context, services.CompletePickupCommand) (domain.Pickup, error) {
			return domain.Pickup{}, services.ErrPickupInvalidState
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/pkp_1:complete", strings.NewReader(`{"driver_id":"drv_3"}`))
	rr := httptest.NewRecorder()

	newPickupRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}
