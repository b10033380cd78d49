package handlers

import (
	"log/slog"
	"net/http"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/store"
)

type ReceiptHandler struct {
	Store *store.Store
}

// List handles GET /api/receipts (admin): every receipt in the ledger.
func (h *ReceiptHandler) List(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.Store.GetReceipts()
	if err != nil {
		slog.Error("Failed to list receipts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if receipts == nil {
		receipts = []models.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// ListFor handles GET /api/receipts/{supporter}.
func (h *ReceiptHandler) ListFor(w http.ResponseWriter, r *http.Request) {
	supporter := r.PathValue("supporter")
	receipts, err := h.Store.GetReceiptsFor(supporter)
	if err != nil {
		slog.Error("Failed to list receipts", "supporter", supporter, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if receipts == nil {
		receipts = []models.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// Get handles GET /api/receipts/{supporter}/{need}.
func (h *ReceiptHandler) Get(w http.ResponseWriter, r *http.Request) {
	supporter := r.PathValue("supporter")
	need := r.PathValue("need")
	receipt, err := h.Store.GetReceipt(supporter, need)
	if err != nil {
		slog.Error("Failed to get receipt", "supporter", supporter, "need", need, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if receipt == nil {
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// Total handles GET /api/receipts/{supporter}/total: the sum of everything
// the supporter has funded.
func (h *ReceiptHandler) Total(w http.ResponseWriter, r *http.Request) {
	supporter := r.PathValue("supporter")
	total, err := h.Store.GetFundingTotal(supporter)
	if err != nil {
		slog.Error("Failed to sum funding", "supporter", supporter, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, models.FundingTotal{SupporterUsername: supporter, Total: total})
}

// Leaderboard handles GET /api/leaderboard: all supporters' funding totals,
// highest first.
func (h *ReceiptHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.Store.GetFundingLeaderboard()
	if err != nil {
		slog.Error("Failed to build leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if board == nil {
		board = []models.FundingTotal{}
	}
	writeJSON(w, http.StatusOK, board)
}
