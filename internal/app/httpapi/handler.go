// Package httpapi exposes the wizard, catalog and order services over
// REST.
package httpapi

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/metrics"
	"github.com/advantage-shop/shop-service/internal/app/services/catalogsvc"
	"github.com/advantage-shop/shop-service/internal/app/services/checkout"
	"github.com/advantage-shop/shop-service/internal/app/services/selector"
	sessionsvc "github.com/advantage-shop/shop-service/internal/app/services/session"
	"github.com/advantage-shop/shop-service/internal/middleware"
	"github.com/advantage-shop/shop-service/pkg/logger"
)

// Wizard event actions accepted by the events endpoint.
const (
	ActionSelectType     = "select_type"
	ActionInputQuantity  = "input_quantity"
	ActionFlushQuantity  = "flush_quantity"
	ActionSelectVersion  = "select_version"
	ActionSelectSupport  = "select_support"
	ActionAddToCart      = "add_to_cart"
	ActionRemoveFromCart = "remove_from_cart"
)

// Deps collects the services the handler routes to.
type Deps struct {
	Sessions *sessionsvc.Service
	Catalog  *catalogsvc.Service
	Checkout *checkout.Service
	// AdminAuth guards catalog mutations. Nil leaves them open, which
	// is only acceptable in tests.
	AdminAuth *middleware.AdminAuth
	Log       *logger.Logger
}

type handler struct {
	deps Deps
	log  *logger.Logger
}

// NewHandler returns a router exposing the REST API.
func NewHandler(deps Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{deps: deps, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/sessions", h.createSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/view", h.sessionView).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/events", h.sessionEvent).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/checkout", h.sessionCheckout).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", h.deleteSession).Methods(http.MethodDelete)

	r.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)

	upsert := http.HandlerFunc(h.upsertProduct)
	remove := http.HandlerFunc(h.deleteProduct)
	if deps.AdminAuth != nil {
		r.Handle("/products", deps.AdminAuth.Handler(upsert)).Methods(http.MethodPost, http.MethodPut)
		r.Handle("/products/{id}", deps.AdminAuth.Handler(upsert)).Methods(http.MethodPut)
		r.Handle("/products/{id}", deps.AdminAuth.Handler(remove)).Methods(http.MethodDelete)
	} else {
		r.Handle("/products", upsert).Methods(http.MethodPost, http.MethodPut)
		r.Handle("/products/{id}", upsert).Methods(http.MethodPut)
		r.Handle("/products/{id}", remove).Methods(http.MethodDelete)
	}

	r.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)

	return metrics.InstrumentHandler(r)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- sessions ---------------------------------------------------------------

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	id, view, err := h.deps.Sessions.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": id,
		"view":       view,
	})
}

func (h *handler) sessionView(w http.ResponseWriter, r *http.Request) {
	ctrl := h.resolveController(w, r)
	if ctrl == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"view": ctrl.View()})
}

func (h *handler) sessionEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctrl := h.resolveController(w, r)
	if ctrl == nil {
		return
	}

	var payload struct {
		Action string `json:"action"`
		Value  string `json:"value"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := map[string]interface{}{}
	var eventErr error
	switch payload.Action {
	case ActionSelectType:
		resp["view"] = ctrl.SelectType(payload.Value)
	case ActionInputQuantity:
		resp["view"] = ctrl.InputQuantity(payload.Value)
	case ActionFlushQuantity:
		resp["view"] = ctrl.FlushQuantity()
	case ActionSelectVersion:
		resp["view"] = ctrl.SelectVersion(payload.Value)
	case ActionSelectSupport:
		resp["view"] = ctrl.SelectSupport(payload.Value)
	case ActionAddToCart:
		view, err := ctrl.AddToCart()
		if err != nil {
			eventErr = err
			break
		}
		resp["view"] = view
		// The storefront scrolls to the cart section after a
		// successful add.
		resp["scroll_to"] = "cart"
	case ActionRemoveFromCart:
		resp["view"] = ctrl.RemoveFromCart(payload.Value)
	default:
		eventErr = fmt.Errorf("unknown action %q", payload.Action)
	}

	metrics.RecordWizardEvent(payload.Action, eventErr)
	if eventErr != nil {
		writeError(w, http.StatusBadRequest, eventErr)
		return
	}

	if err := h.deps.Sessions.Save(r.Context(), id, ctrl); err != nil {
		h.log.WithError(err).WithField("session_id", id).Error("failed to persist session")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) sessionCheckout(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctrl := h.resolveController(w, r)
	if ctrl == nil {
		return
	}

	_, items := ctrl.Snapshot()
	order, err := h.deps.Checkout.Checkout(r.Context(), id, items)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, checkout.ErrEmptyCart) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	metrics.RecordOrder(order.SubtotalMajor)

	// Checkout consumes the session.
	if err := h.deps.Sessions.Delete(r.Context(), id); err != nil {
		h.log.WithError(err).WithField("session_id", id).Warn("failed to delete session after checkout")
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.deps.Sessions.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveController writes the error response itself and returns nil
// when the session cannot be resolved.
func (h *handler) resolveController(w http.ResponseWriter, r *http.Request) *selector.Controller {
	id := mux.Vars(r)["id"]
	c, err := h.deps.Sessions.Controller(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sql.ErrNoRows) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return nil
	}
	return c
}

// --- products ---------------------------------------------------------------

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	products, err := h.deps.Catalog.List(r.Context(), q.Get("q"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sql.ErrNoRows) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) upsertProduct(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Price    int64  `json:"price"`
		Currency string `json:"currency"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if id := mux.Vars(r)["id"]; id != "" {
		payload.ID = id
	}
	if payload.ID == "" || payload.Name == "" || payload.Price <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("id, name and a positive price are required"))
		return
	}
	if payload.Currency == "" {
		payload.Currency = "USD"
	}

	p, err := h.deps.Catalog.Upsert(r.Context(), catalog.Product{
		ID:    payload.ID,
		Name:  payload.Name,
		Price: catalog.Price{Value: payload.Price, Currency: payload.Currency},
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Catalog.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, sql.ErrNoRows) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- orders -----------------------------------------------------------------

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.deps.Checkout.Orders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.deps.Checkout.Order(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sql.ErrNoRows) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
