package httpapi

import (
	"net/http"
	"strings"

	"findmyservice.org/internal/audit"
	"findmyservice.org/internal/market"
)

type ratingCreateRequest struct {
	ServiceID string `json:"serviceId"`
	OrderID   string `json:"orderId,omitempty"`
	Score     int    `json:"score"`
}

func (a *API) handleRatingsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listRatings(w, r)
	case http.MethodPost:
		a.createRating(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRatingResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/ratings/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	a.getRating(w, r, id)
}

func (a *API) listRatings(w http.ResponseWriter, r *http.Request) {
	if _, err := requireRole(r.Context(), market.RoleAdmin); err != nil {
		handleMarketError(w, r, err)
		return
	}
	items, err := a.store.Ratings().List(r.Context())
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) getRating(w http.ResponseWriter, r *http.Request, id string) {
	rating, err := a.store.Ratings().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// createRating records a bare score and folds it into the running averages
// of the service and its provider, same as feedback creation. When the
// score is tied to an order, the order must belong to the rater and
// reference the rated service.
func (a *API) createRating(w http.ResponseWriter, r *http.Request) {
	principal, err := requireRole(r.Context(), market.RoleUser, market.RoleAdmin)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}

	var req ratingCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	svc, err := a.store.Services().Find(r.Context(), strings.TrimSpace(req.ServiceID))
	if err != nil {
		handleMarketError(w, r, err)
		return
	}

	rating := &market.Rating{
		UserID:    principal.ID,
		ServiceID: svc.ID,
		OrderID:   strings.TrimSpace(req.OrderID),
		Score:     req.Score,
	}
	if err := market.ValidateRating(rating); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if rating.OrderID != "" {
		order, err := a.store.Orders().Find(r.Context(), rating.OrderID)
		if err != nil {
			handleMarketError(w, r, err)
			return
		}
		if err := verifyOwner(r.Context(), order.UserID); err != nil {
			handleMarketError(w, r, err)
			return
		}
		if order.ServiceID != svc.ID {
			writeError(w, r, http.StatusBadRequest, "order does not reference the rated service")
			return
		}
	}
	if err := a.store.Ratings().Create(r.Context(), rating); err != nil {
		handleMarketError(w, r, err)
		return
	}

	svc.AvgRating, svc.TotalRatings = market.FoldRating(svc.AvgRating, svc.TotalRatings, rating.Score)
	if err := a.store.Services().Update(r.Context(), svc); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if provider, err := a.store.Providers().Find(r.Context(), svc.ProviderID); err == nil {
		provider.AvgRating, provider.TotalRatings = market.FoldRating(provider.AvgRating, provider.TotalRatings, rating.Score)
		if err := a.store.Providers().Update(r.Context(), provider); err != nil {
			handleMarketError(w, r, err)
			return
		}
	}

	_ = audit.LogEvent(r.Context(), "rating.create", map[string]any{
		"rating_id": rating.ID, "service_id": svc.ID, "score": rating.Score,
	})
	writeJSON(w, http.StatusCreated, rating)
}
