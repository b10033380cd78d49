package handlers

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/engine"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
)

// BasketHandler exposes the engine's basket operations to the signed-in
// supporter. Status mapping: ErrNotSignedIn -> 403, unknown need -> 404,
// storage failure -> 500.
type BasketHandler struct {
	Engine       *engine.Engine
	SessionStore *sessions.CookieStore
}

type basketLineRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Get handles GET /api/basket.
func (h *BasketHandler) Get(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Engine.Basket(sessionToken(h.SessionStore, r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if lines == nil {
		lines = []models.BasketLine{}
	}
	writeJSON(w, http.StatusOK, lines)
}

// GetNeed handles GET /api/basket/{name}: the basket's view of one need
// with live stock, quantity 0 when it is not in the basket.
func (h *BasketHandler) GetNeed(w http.ResponseWriter, r *http.Request) {
	basketNeed, err := h.Engine.BasketNeed(sessionToken(h.SessionStore, r), r.PathValue("name"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, basketNeed)
}

// Set handles PUT /api/basket: sets a line to exactly the given quantity.
// Quantity 0 removes the line.
func (h *BasketHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req basketLineRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.Engine.SetBasketNeed(sessionToken(h.SessionStore, r), req.Name, req.Quantity); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Remove handles DELETE /api/basket/{name}.
func (h *BasketHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.SetBasketNeed(sessionToken(h.SessionStore, r), r.PathValue("name"), 0); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Basketable handles GET /api/basketable: the cupboard minus what the
// basket already reserves.
func (h *BasketHandler) Basketable(w http.ResponseWriter, r *http.Request) {
	needs, err := h.Engine.AvailableNeeds(sessionToken(h.SessionStore, r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if needs == nil {
		needs = []models.Need{}
	}
	writeJSON(w, http.StatusOK, needs)
}

// Checkout handles POST /api/basket/checkout and returns the per-line
// outcomes of the best-effort batch.
func (h *BasketHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	results, err := h.Engine.Checkout(sessionToken(h.SessionStore, r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
