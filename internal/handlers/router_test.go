package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/platform/requestctx"
	"github.com/parcelio/api/internal/services"
)

func TestRouterHealthEndpoints(t *testing.T) {
	router := NewRouter()

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200 for %s, got %d", path, rr.Code)
		}
	}
}

func TestRouterNotFoundEnvelope(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["error"] != errorNotFoundCode {
		t.Fatalf("expected %s code, got %v", errorNotFoundCode, payload["error"])
	}
}

func TestRouterUnconfiguredGroupReturnsNotImplemented(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ord_1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("expected status 501, got %d", rr.Code)
	}
}

func TestRouterMountsOrderRoutes(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (domain.Order, error) {
			if orderID != "ord_1" {
				t.Fatalf("unexpected order id %q", orderID)
			}
			return sampleOrder(), nil
		},
	}

	router := NewRouter(WithOrderRoutes(func(r chi.Router) {
		NewOrderHandlers(svc).Routes(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ord_1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRouterInternalMiddlewaresApply(t *testing.T) {
	var middlewareHit bool
	router := NewRouter(
		WithInternalRoutes(func(r chi.Router) {
			NewJobHandlers(&stubSettlementService{
				recoverFn: func(context.Context, string) (services.RecoveryResult, error) {
					return services.RecoveryResult{}, nil
				},
			}).Routes(r)
		}),
		WithInternalMiddlewares(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				middlewareHit = true
				next.ServeHTTP(w, r)
			})
		}),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/jobs/recovery", strings.NewReader(`{"batch_id":"BATCH-1"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !middlewareHit {
		t.Fatal("expected internal middleware to run")
	}
}

func TestActorMiddlewareAttachesPrincipal(t *testing.T) {
	var gotActor requestctx.Actor
	handler := ActorMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor, _ = requestctx.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", "usr_9")
	req.Header.Set("X-Actor-Role", "admin")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if gotActor.ID != "usr_9" || gotActor.Role != "admin" {
		t.Fatalf("expected actor from headers, got %+v", gotActor)
	}
}

func TestActorMiddlewareSkipsAnonymous(t *testing.T) {
	handler := ActorMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requestctx.ActorFromContext(r.Context()); ok {
			t.Fatal("expected no actor for anonymous request")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected request %d to pass, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, other)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected other caller to pass, got %d", rr.Code)
	}
}
