package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openkermesse/stallpoints/internal/api/middleware"
	"github.com/openkermesse/stallpoints/internal/api/request"
	"github.com/openkermesse/stallpoints/internal/api/response"
	"github.com/openkermesse/stallpoints/internal/model"
	"github.com/openkermesse/stallpoints/internal/services/ledger"
)

// PlayerHandler handles player ledger endpoints
type PlayerHandler struct {
	ledger *ledger.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(ledgerService *ledger.Service) *PlayerHandler {
	return &PlayerHandler{ledger: ledgerService}
}

// Create handles POST /api/v1/players
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session := middleware.GetSession(r.Context())
	rec, err := h.ledger.CreatePlayer(r.Context(), session, req.PlayerID, req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerRecordFromModel(rec))
}

// List handles GET /api/v1/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	recs, err := h.ledger.ListPlayers(r.Context(), session)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerListFromModel(recs))
}

// Get handles GET /api/v1/players/{id}. This is the verify-before-act read
// used by stall and gift counter operators to confirm an id before awarding
// or deducting.
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	rec, err := h.ledger.VerifyPlayer(r.Context(), session, mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerRecordFromModel(rec))
}

// Delete handles DELETE /api/v1/players/{id}
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if err := h.ledger.DeletePlayer(r.Context(), session, model.PlayerID(mux.Vars(r)["id"])); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Award handles POST /api/v1/players/{id}/award
func (h *PlayerHandler) Award(w http.ResponseWriter, r *http.Request) {
	var req request.AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.StallID == "" {
		WriteError(w, NewInvalidRequestError("stall_id is required"))
		return
	}

	session := middleware.GetSession(r.Context())
	rec, err := h.ledger.AwardPoints(r.Context(), session,
		model.PlayerID(mux.Vars(r)["id"]), model.StallID(req.StallID), req.Amount)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerRecordFromModel(rec))
}

// Deduct handles POST /api/v1/players/{id}/deduct
func (h *PlayerHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	var req request.DeductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session := middleware.GetSession(r.Context())
	rec, err := h.ledger.DeductPoints(r.Context(), session,
		model.PlayerID(mux.Vars(r)["id"]), req.Amount)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerRecordFromModel(rec))
}
