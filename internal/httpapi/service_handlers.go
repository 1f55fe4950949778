package httpapi

import (
	"net/http"
	"strings"

	"findmyservice.org/internal/audit"
	"findmyservice.org/internal/market"
)

type serviceCreateRequest struct {
	ProviderID  string  `json:"providerId,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Cost        float64 `json:"cost"`
}

type serviceUpdateRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Cost        *float64 `json:"cost,omitempty"`
}

func (a *API) handleServicesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		services, err := a.store.Services().List(r.Context())
		if err != nil {
			handleMarketError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, services)
	case http.MethodPost:
		a.createService(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleServiceResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/services/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getService(w, r, id)
	case http.MethodPut:
		a.updateService(w, r, id)
	case http.MethodDelete:
		a.deleteService(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) createService(w http.ResponseWriter, r *http.Request) {
	principal, err := requireRole(r.Context(), market.RoleProvider, market.RoleAdmin)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}

	var req serviceCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if req.Cost <= 0 {
		writeError(w, r, http.StatusBadRequest, "cost must be > 0")
		return
	}

	providerID := principal.ID
	if principal.Role == market.RoleAdmin {
		providerID = strings.TrimSpace(req.ProviderID)
		if providerID == "" {
			writeError(w, r, http.StatusBadRequest, "providerId is required")
			return
		}
	}
	if _, err := a.store.Providers().Find(r.Context(), providerID); err != nil {
		handleMarketError(w, r, err)
		return
	}

	svc := &market.ServiceOffering{
		ProviderID:  providerID,
		Name:        req.Name,
		Description: req.Description,
		Cost:        req.Cost,
	}
	if err := a.store.Services().Create(r.Context(), svc); err != nil {
		handleMarketError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "service.create", map[string]any{
		"service_id": svc.ID, "provider_id": providerID,
	})
	w.Header().Set("Location", "/api/v1/services/"+svc.ID)
	writeJSON(w, http.StatusCreated, svc)
}

func (a *API) getService(w http.ResponseWriter, r *http.Request, id string) {
	svc, err := a.store.Services().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (a *API) updateService(w http.ResponseWriter, r *http.Request, id string) {
	svc, err := a.store.Services().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := verifyOwner(r.Context(), svc.ProviderID); err != nil {
		handleMarketError(w, r, err)
		return
	}

	var req serviceUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			writeError(w, r, http.StatusBadRequest, "name cannot be empty")
			return
		}
		svc.Name = trimmed
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.Cost != nil {
		if *req.Cost <= 0 {
			writeError(w, r, http.StatusBadRequest, "cost must be > 0")
			return
		}
		svc.Cost = *req.Cost
	}
	if err := a.store.Services().Update(r.Context(), svc); err != nil {
		handleMarketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "service.update", map[string]any{"service_id": svc.ID})
	writeJSON(w, http.StatusOK, svc)
}

func (a *API) deleteService(w http.ResponseWriter, r *http.Request, id string) {
	svc, err := a.store.Services().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := verifyOwner(r.Context(), svc.ProviderID); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := a.store.Services().Delete(r.Context(), id); err != nil {
		handleMarketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "service.delete", map[string]any{"service_id": id})
	w.WriteHeader(http.StatusNoContent)
}
