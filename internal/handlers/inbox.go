package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/engine"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/store"
)

// InboxHandler serves the admin-to-supporter messages attached to needs.
type InboxHandler struct {
	Store        *store.Store
	Engine       *engine.Engine
	SessionStore *sessions.CookieStore
}

type sendMessageRequest struct {
	ReceiverUsername string `json:"receiver_username"`
	NeedName         string `json:"need_name"`
	Message          string `json:"message"`
}

// currentSupporter resolves the signed-in supporter, rejecting admins: the
// admin account has no inbox.
func (h *InboxHandler) currentSupporter(r *http.Request) (*models.User, error) {
	user, err := h.Engine.CurrentUser(sessionToken(h.SessionStore, r))
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, engine.ErrNotSignedIn
	}
	return user, nil
}

// Get handles GET /api/inbox: the signed-in supporter's messages.
func (h *InboxHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentSupporter(r)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	messages, err := h.Store.GetMessages(user.Username)
	if err != nil {
		slog.Error("Failed to load inbox", "username", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if messages == nil {
		messages = []models.NeedMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// Send handles POST /api/inbox (admin): delivers or replaces the message a
// supporter holds for a need.
func (h *InboxHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReceiverUsername == "" || req.NeedName == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "receiver_username, need_name and message are required")
		return
	}

	receiver, err := h.Store.GetSupporter(req.ReceiverUsername)
	if err != nil {
		slog.Error("Failed to look up receiver", "username", req.ReceiverUsername, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if receiver == nil {
		writeError(w, http.StatusNotFound, "no supporter with that username")
		return
	}

	sender, err := h.Engine.CurrentUser(sessionToken(h.SessionStore, r))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	msg := &models.NeedMessage{
		ReceiverUsername: req.ReceiverUsername,
		NeedName:         req.NeedName,
		SenderUsername:   sender.Username,
		Message:          req.Message,
	}
	if err := h.Store.SendOrUpdateMessage(msg); err != nil {
		slog.Error("Failed to send message", "receiver", req.ReceiverUsername, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// Delete handles DELETE /api/inbox/{needName}: the signed-in supporter
// clears the message attached to a need.
func (h *InboxHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentSupporter(r)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	needName := r.PathValue("needName")
	found, err := h.Store.DeleteMessage(user.Username, needName)
	if err != nil {
		slog.Error("Failed to delete message", "username", user.Username, "need", needName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no message for that need")
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
