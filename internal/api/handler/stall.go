package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openkermesse/stallpoints/internal/api/middleware"
	"github.com/openkermesse/stallpoints/internal/api/request"
	"github.com/openkermesse/stallpoints/internal/api/response"
	"github.com/openkermesse/stallpoints/internal/model"
	"github.com/openkermesse/stallpoints/internal/services/registry"
)

// StallHandler handles stall registry endpoints
type StallHandler struct {
	registry *registry.Service
}

// NewStallHandler creates a new stall handler
func NewStallHandler(registryService *registry.Service) *StallHandler {
	return &StallHandler{registry: registryService}
}

// Register handles POST /api/v1/stalls
func (h *StallHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterStallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session := middleware.GetSession(r.Context())
	stall, err := h.registry.RegisterStall(r.Context(), session,
		model.StallID(req.StallID), req.DisplayName, req.Incharge, req.Credential)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.StallFromModel(stall))
}

// List handles GET /api/v1/stalls
func (h *StallHandler) List(w http.ResponseWriter, r *http.Request) {
	stalls, err := h.registry.ListStalls(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StallListFromModel(stalls))
}

// Get handles GET /api/v1/stalls/{id}
func (h *StallHandler) Get(w http.ResponseWriter, r *http.Request) {
	stall, err := h.registry.GetStall(r.Context(), model.StallID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StallFromModel(stall))
}

// Update handles PATCH /api/v1/stalls/{id}
func (h *StallHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateStallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session := middleware.GetSession(r.Context())
	stall, err := h.registry.UpdateStall(r.Context(), session,
		model.StallID(mux.Vars(r)["id"]), req.DisplayName, req.Incharge, req.Credential)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StallFromModel(stall))
}

// Deregister handles DELETE /api/v1/stalls/{id}
func (h *StallHandler) Deregister(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if err := h.registry.DeregisterStall(r.Context(), session, model.StallID(mux.Vars(r)["id"])); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
