package httpapi

import (
	"net/http"
	"strings"

	"findmyservice.org/internal/audit"
	"findmyservice.org/internal/market"
)

type feedbackCreateRequest struct {
	ServiceID string `json:"serviceId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

func (a *API) handleFeedbacksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listFeedback(w, r)
	case http.MethodPost:
		a.createFeedback(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listFeedback(w http.ResponseWriter, r *http.Request) {
	if _, err := requireRole(r.Context(), market.RoleAdmin); err != nil {
		handleMarketError(w, r, err)
		return
	}
	items, err := a.store.Feedback().List(r.Context())
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleFeedbackResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/feedbacks/")
	parts := strings.Split(path, "/")
	if len(parts) == 2 && parts[0] == "service" && parts[1] != "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listFeedbackByService(w, r, parts[1])
		return
	}
	writeError(w, r, http.StatusNotFound, "resource not found")
}

// createFeedback records a rating and folds it into the running averages
// of both the service and its provider.
func (a *API) createFeedback(w http.ResponseWriter, r *http.Request) {
	principal, err := requireRole(r.Context(), market.RoleUser, market.RoleAdmin)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}

	var req feedbackCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	svc, err := a.store.Services().Find(r.Context(), strings.TrimSpace(req.ServiceID))
	if err != nil {
		handleMarketError(w, r, err)
		return
	}

	fb := &market.Feedback{
		UserID:     principal.ID,
		ServiceID:  svc.ID,
		ProviderID: svc.ProviderID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	if err := market.ValidateFeedback(fb); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := a.store.Feedback().Create(r.Context(), fb); err != nil {
		handleMarketError(w, r, err)
		return
	}

	svc.AvgRating, svc.TotalRatings = market.FoldRating(svc.AvgRating, svc.TotalRatings, fb.Rating)
	if err := a.store.Services().Update(r.Context(), svc); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if provider, err := a.store.Providers().Find(r.Context(), svc.ProviderID); err == nil {
		provider.AvgRating, provider.TotalRatings = market.FoldRating(provider.AvgRating, provider.TotalRatings, fb.Rating)
		if err := a.store.Providers().Update(r.Context(), provider); err != nil {
			handleMarketError(w, r, err)
			return
		}
	}

	_ = audit.LogEvent(r.Context(), "feedback.create", map[string]any{
		"feedback_id": fb.ID, "service_id": svc.ID, "rating": fb.Rating,
	})
	writeJSON(w, http.StatusCreated, fb)
}

func (a *API) listFeedbackByService(w http.ResponseWriter, r *http.Request, serviceID string) {
	if _, err := a.store.Services().Find(r.Context(), serviceID); err != nil {
		handleMarketError(w, r, err)
		return
	}
	items, err := a.store.Feedback().ListByService(r.Context(), serviceID)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
