package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"findmyservice.org/internal/audit"
	"findmyservice.org/internal/auth"
	"findmyservice.org/internal/market"
	"findmyservice.org/internal/obs"
)

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

type checkoutRequest struct {
	UserID string                `json:"userId,omitempty"`
	Items  []market.CheckoutItem `json:"items"`
}

type checkoutResponse struct {
	Orders    []*market.Order `json:"orders"`
	TotalCost float64         `json:"totalCost"`
}

func (a *API) handleOrdersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, err := requireRole(r.Context(), market.RoleAdmin); err != nil {
			handleMarketError(w, r, err)
			return
		}
		orders, err := a.store.Orders().List(r.Context())
		if err != nil {
			handleMarketError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	case http.MethodPost:
		a.createOrders(w, r, false)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrderResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/orders/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "checkout" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.createOrders(w, r, true)
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		a.handleOrderByID(w, r, parts[0])
	case len(parts) == 2 && parts[0] == "user":
		a.listOrdersByUser(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "provider":
		a.listOrdersByProvider(w, r, parts[1])
	case len(parts) == 2 && parts[1] == "pay":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.initiatePayment(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "confirm-payment":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.confirmPayment(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleOrderByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		a.getOrder(w, r, id)
	case http.MethodPatch:
		a.updateOrder(w, r, id)
	case http.MethodDelete:
		a.deleteOrder(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// createOrders handles both single creation and batch checkout; the
// whole batch is validated before the first order is persisted.
func (a *API) createOrders(w http.ResponseWriter, r *http.Request, batch bool) {
	principal, err := requireRole(r.Context(), market.RoleUser, market.RoleAdmin)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}

	var reqs []market.OrderCreate
	if batch {
		if err := decodeJSON(w, r, &reqs); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		var req market.OrderCreate
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		reqs = []market.OrderCreate{req}
	}

	for i := range reqs {
		if reqs[i].UserID == "" && principal.Role == market.RoleUser {
			reqs[i].UserID = principal.ID
		}
	}
	if err := market.ValidateBatch(reqs, principal.ID, principal.Role); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if _, err := a.store.Users().Find(r.Context(), reqs[0].UserID); err != nil {
		handleMarketError(w, r, err)
		return
	}

	// Resolve every catalog entry before creating anything.
	services := make([]*market.ServiceOffering, len(reqs))
	for i, req := range reqs {
		svc, err := a.store.Services().Find(r.Context(), req.ServiceID)
		if err != nil {
			handleMarketError(w, r, err)
			return
		}
		if req.ProviderID != "" && req.ProviderID != svc.ProviderID {
			writeError(w, r, http.StatusBadRequest, "providerId does not match the service")
			return
		}
		reqs[i].ProviderID = svc.ProviderID
		services[i] = svc
	}

	now := time.Now().UTC()
	created := make([]*market.Order, 0, len(reqs))
	for i, req := range reqs {
		order, err := market.NewOrder(req, services[i], now)
		if err != nil {
			handleMarketError(w, r, err)
			return
		}
		if err := a.store.Orders().Create(r.Context(), order); err != nil {
			handleMarketError(w, r, err)
			return
		}
		obs.OrderCreated()
		created = append(created, order)
	}

	_ = audit.LogEvent(r.Context(), "order.create", map[string]any{
		"user_id": reqs[0].UserID, "count": len(created),
	})
	if batch {
		writeJSON(w, http.StatusCreated, created)
		return
	}
	w.Header().Set("Location", "/api/v1/orders/"+created[0].ID)
	writeJSON(w, http.StatusCreated, created[0])
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request, id string) {
	order, err := a.store.Orders().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := verifyOrderParty(r.Context(), order); err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// verifyOrderParty admits the ordering user, the fulfilling provider or
// an admin.
func verifyOrderParty(ctx context.Context, order *market.Order) error {
	if err := verifyOwner(ctx, order.UserID); err == nil {
		return nil
	}
	return verifyOwner(ctx, order.ProviderID)
}

func (a *API) listOrdersByUser(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := verifyOwner(r.Context(), userID); err != nil {
		handleMarketError(w, r, err)
		return
	}
	orders, err := a.store.Orders().ListByUser(r.Context(), userID)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (a *API) listOrdersByProvider(w http.ResponseWriter, r *http.Request, providerID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := verifyOwner(r.Context(), providerID); err != nil {
		handleMarketError(w, r, err)
		return
	}
	orders, err := a.store.Orders().ListByProvider(r.Context(), providerID)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (a *API) updateOrder(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		handleMarketError(w, r, market.ErrUnauthenticated)
		return
	}

	var upd market.OrderUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	order, err := a.store.Orders().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}

	if owner, checked := market.UpdateOwnerID(principal.Role, order); checked {
		if err := verifyOwner(r.Context(), owner); err != nil {
			handleMarketError(w, r, err)
			return
		}
	}
	if err := market.ApplyUpdate(principal.Role, order, upd); err != nil {
		handleMarketError(w, r, err)
		return
	}
	order.UpdatedAt = time.Now().UTC()
	if err := a.store.Orders().Update(r.Context(), order); err != nil {
		handleMarketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "order.update", map[string]any{
		"order_id": order.ID, "status": string(order.Status),
	})
	writeJSON(w, http.StatusOK, order)
}

func (a *API) deleteOrder(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := requireRole(r.Context(), market.RoleAdmin); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := a.store.Orders().Delete(r.Context(), id); err != nil {
		handleMarketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "order.delete", map[string]any{"order_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) initiatePayment(w http.ResponseWriter, r *http.Request, id string) {
	if a.payments == nil {
		writeError(w, r, http.StatusServiceUnavailable, "payment gateway not configured")
		return
	}
	order, err := a.store.Orders().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := verifyOwner(r.Context(), order.UserID); err != nil {
		handleMarketError(w, r, err)
		return
	}

	initiation, err := a.payments.Initiate(r.Context(), id)
	if err != nil {
		obs.PaymentIntent("error")
		handleMarketError(w, r, err)
		return
	}
	obs.PaymentIntent("ok")
	_ = audit.LogEvent(r.Context(), "payment.initiate", map[string]any{
		"order_id": id, "payment_intent_id": initiation.PaymentIntentID,
		"amount_in_paise": initiation.AmountInPaise,
	})
	writeJSON(w, http.StatusOK, initiation)
}

func (a *API) confirmPayment(w http.ResponseWriter, r *http.Request, id string) {
	if a.payments == nil {
		writeError(w, r, http.StatusServiceUnavailable, "payment gateway not configured")
		return
	}
	var req confirmPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.PaymentIntentID = strings.TrimSpace(req.PaymentIntentID)
	if req.PaymentIntentID == "" {
		writeError(w, r, http.StatusBadRequest, "paymentIntentId is required")
		return
	}

	order, err := a.store.Orders().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := verifyOwner(r.Context(), order.UserID); err != nil {
		handleMarketError(w, r, err)
		return
	}

	order, err = a.payments.Confirm(r.Context(), id, req.PaymentIntentID)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	obs.PaymentConfirmed()
	_ = audit.LogEvent(r.Context(), "payment.confirm", map[string]any{
		"order_id": id, "payment_intent_id": req.PaymentIntentID,
	})
	writeJSON(w, http.StatusOK, order)
}

// handleCheckout prices a cart of catalog items for the caller and
// creates one order per item.
func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, err := requireRole(r.Context(), market.RoleUser, market.RoleAdmin)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "items cannot be empty")
		return
	}

	userID := principal.ID
	if principal.Role == market.RoleAdmin {
		userID = strings.TrimSpace(req.UserID)
		if userID == "" {
			writeError(w, r, http.StatusBadRequest, "userId is required")
			return
		}
	} else if req.UserID != "" && req.UserID != principal.ID {
		writeError(w, r, http.StatusForbidden, "you are not authorized to create these orders")
		return
	}
	if _, err := a.store.Users().Find(r.Context(), userID); err != nil {
		handleMarketError(w, r, err)
		return
	}

	type pricedItem struct {
		svc   *market.ServiceOffering
		total float64
	}
	priced := make([]pricedItem, 0, len(req.Items))
	for _, item := range req.Items {
		svc, err := a.store.Services().Find(r.Context(), item.ServiceID)
		if err != nil {
			handleMarketError(w, r, err)
			return
		}
		total, err := market.PriceItem(svc, item.Quantity)
		if err != nil {
			handleMarketError(w, r, err)
			return
		}
		priced = append(priced, pricedItem{svc: svc, total: total})
	}

	now := time.Now().UTC()
	var grandTotal float64
	created := make([]*market.Order, 0, len(req.Items))
	for i, item := range req.Items {
		quantity := item.Quantity
		order, err := market.NewOrder(market.OrderCreate{
			UserID:        userID,
			ProviderID:    priced[i].svc.ProviderID,
			ServiceID:     item.ServiceID,
			Quantity:      &quantity,
			TotalCost:     &priced[i].total,
			RequestedDate: item.RequestedDate,
		}, priced[i].svc, now)
		if err != nil {
			handleMarketError(w, r, err)
			return
		}
		order.ScheduledDate = item.ScheduledDate
		if err := a.store.Orders().Create(r.Context(), order); err != nil {
			handleMarketError(w, r, err)
			return
		}
		obs.OrderCreated()
		grandTotal += priced[i].total
		created = append(created, order)
	}

	_ = audit.LogEvent(r.Context(), "checkout", map[string]any{
		"user_id": userID, "items": len(created), "total_cost": grandTotal,
	})
	writeJSON(w, http.StatusCreated, checkoutResponse{Orders: created, TotalCost: grandTotal})
}
