package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/services/catalogsvc"
	"github.com/advantage-shop/shop-service/internal/app/services/checkout"
	"github.com/advantage-shop/shop-service/internal/app/services/selector"
	sessionsvc "github.com/advantage-shop/shop-service/internal/app/services/session"
	"github.com/advantage-shop/shop-service/internal/app/storage/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	catalogSvc, err := catalogsvc.NewService(ctx, store, nil)
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	err = catalogSvc.Seed(ctx, []catalog.Product{
		{ID: "uai-standard-physical", Name: "Ubuntu Pro", Price: catalog.Price{Value: 15050, Currency: "USD"}},
		{ID: "uai-advanced-physical", Name: "Ubuntu Pro Advanced", Price: catalog.Price{Value: 30000, Currency: "USD"}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	renderer, err := selector.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	sessions := sessionsvc.NewService(store, catalogSvc, renderer, sessionsvc.Config{
		TTL: time.Minute,
		Selector: selector.Options{
			Debounce:       time.Millisecond,
			DefaultVersion: "20.04",
		},
	}, nil)
	t.Cleanup(sessions.Stop)

	return NewHandler(Deps{
		Sessions: sessions,
		Catalog:  catalogSvc,
		Checkout: checkout.NewService(catalogSvc, store, nil),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	fields := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
			// Non-object bodies (arrays) are fine; callers decode those
			// themselves.
			return rec, nil
		}
	}
	return rec, fields
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, fields := doJSON(t, h, http.MethodPost, "/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var id string
	if err := json.Unmarshal(fields["session_id"], &id); err != nil {
		t.Fatalf("decode session_id: %v", err)
	}
	return id
}

func sendEvent(t *testing.T, h http.Handler, sessionID, action, value string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	return doJSON(t, h, http.MethodPost, "/sessions/"+sessionID+"/events",
		map[string]string{"action": action, "value": value})
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSessionNotFound(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := doJSON(t, h, http.MethodGet, "/sessions/nope/view", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestWizardFlowToCheckout(t *testing.T) {
	h := newTestHandler(t)
	id := createSession(t, h)

	for _, ev := range []struct{ action, value string }{
		{ActionSelectType, "physical"},
		{ActionInputQuantity, "3"},
		{ActionFlushQuantity, ""},
		{ActionSelectSupport, "standard"},
	} {
		rec, _ := sendEvent(t, h, id, ev.action, ev.value)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body = %s", ev.action, rec.Code, rec.Body.String())
		}
	}

	rec, fields := sendEvent(t, h, id, ActionAddToCart, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("add: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var scrollTo string
	if err := json.Unmarshal(fields["scroll_to"], &scrollTo); err != nil || scrollTo != "cart" {
		t.Fatalf("scroll_to = %q (err %v), want cart", scrollTo, err)
	}
	var view selector.View
	if err := json.Unmarshal(fields["view"], &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Cart.Subtotal != "$450" {
		t.Fatalf("subtotal = %q, want $450", view.Cart.Subtotal)
	}

	rec, fields = doJSON(t, h, http.MethodPost, "/sessions/"+id+"/checkout", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var subtotal string
	if err := json.Unmarshal(fields["subtotal"], &subtotal); err != nil || subtotal != "$450" {
		t.Fatalf("order subtotal = %q (err %v), want $450", subtotal, err)
	}

	// Checkout consumes the session.
	rec, _ = doJSON(t, h, http.MethodGet, "/sessions/"+id+"/view", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("view after checkout: status = %d, want 404", rec.Code)
	}
}

func TestCheckoutEmptyCartConflict(t *testing.T) {
	h := newTestHandler(t)
	id := createSession(t, h)

	rec, _ := doJSON(t, h, http.MethodPost, "/sessions/"+id+"/checkout", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestUnknownEventAction(t *testing.T) {
	h := newTestHandler(t)
	id := createSession(t, h)

	rec, _ := sendEvent(t, h, id, "explode", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProductCRUD(t *testing.T) {
	h := newTestHandler(t)

	rec, _ := doJSON(t, h, http.MethodPost, "/products", map[string]interface{}{
		"id": "uai-essential-physical", "name": "Ubuntu Pro Essential", "price": 5000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec, fields := doJSON(t, h, http.MethodGet, "/products/uai-essential-physical", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	var name string
	if err := json.Unmarshal(fields["name"], &name); err != nil || name != "Ubuntu Pro Essential" {
		t.Fatalf("name = %q (err %v)", name, err)
	}

	rec, _ = doJSON(t, h, http.MethodPut, "/products/uai-essential-physical", map[string]interface{}{
		"name": "Ubuntu Pro Essential", "price": 6000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("update: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/products?q=essential", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var products []catalog.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("len = %d, want 1", len(products))
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/products/uai-essential-physical", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/products/uai-essential-physical", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestProductValidation(t *testing.T) {
	h := newTestHandler(t)
	for name, body := range map[string]map[string]interface{}{
		"missing id":    {"name": "x", "price": 100},
		"missing name":  {"id": "x", "price": 100},
		"zero price":    {"id": "x", "name": "x", "price": 0},
		"negative cost": {"id": "x", "name": "x", "price": -5},
	} {
		rec, _ := doJSON(t, h, http.MethodPost, "/products", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestOrdersEndpoint(t *testing.T) {
	h := newTestHandler(t)
	id := createSession(t, h)

	for _, ev := range []struct{ action, value string }{
		{ActionSelectType, "physical"},
		{ActionInputQuantity, "2"},
		{ActionFlushQuantity, ""},
		{ActionSelectSupport, "advanced"},
		{ActionAddToCart, ""},
	} {
		if rec, _ := sendEvent(t, h, id, ev.action, ev.value); rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", ev.action, rec.Code)
		}
	}
	rec, fields := doJSON(t, h, http.MethodPost, "/sessions/"+id+"/checkout", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var orderID string
	if err := json.Unmarshal(fields["id"], &orderID); err != nil {
		t.Fatalf("decode order id: %v", err)
	}

	rec, _ = doJSON(t, h, http.MethodGet, fmt.Sprintf("/orders/%s", orderID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get order: status = %d", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/orders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list orders: status = %d", rec.Code)
	}
}
