package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/engine"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/store"
)

type UserHandler struct {
	Store        *store.Store
	Engine       *engine.Engine
	SessionStore *sessions.CookieStore
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/users: self-service supporter signup.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.Store.CreateUser(req.Username, string(hashed), models.RoleSupporter); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			writeError(w, http.StatusConflict, "username is already taken")
			return
		}
		slog.Error("Failed to create supporter", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Info("Supporter registered", "username", req.Username)
	writeJSON(w, http.StatusCreated, models.Supporter{Username: req.Username, FundingBasket: []models.BasketLine{}})
}

// Login handles POST /api/users/login. A successful login opens an engine
// session; for supporters that loads and reconciles the persisted basket.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Store.GetUserByUsername(req.Username)
	if err != nil {
		slog.Error("Failed to look up user", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	token, _ := session.Values["token"].(string)
	if token == "" {
		token = engine.NewSessionToken()
	}

	loggedIn, err := h.Engine.Login(token, user.Username)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	session.Values["token"] = token
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	slog.Info("Login successful", "username", loggedIn.Username, "role", loggedIn.Role)
	writeJSON(w, http.StatusOK, loggedIn)
}

// Logout handles POST /api/users/logout. Idempotent.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)
	if token, _ := session.Values["token"].(string); token != "" {
		h.Engine.Logout(token)
	}
	session.Options.MaxAge = -1 // Expire immediately
	session.Save(r, w)
	writeJSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Engine.CurrentUser(sessionToken(h.SessionStore, r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// AdminOnly guards a handler behind an admin session.
func (h *UserHandler) AdminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.Engine.CurrentUser(sessionToken(h.SessionStore, r))
		if err != nil || !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	}
}
