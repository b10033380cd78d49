package handlers

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/shopspring/decimal"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/store"
)

type NeedHandler struct {
	Store     *store.Store
	UploadDir string
}

type needRequest struct {
	Name     string          `json:"name"`
	Cost     decimal.Decimal `json:"cost"`
	Quantity int             `json:"quantity"`
}

func (req *needRequest) validate() error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.Cost.IsNegative() {
		return fmt.Errorf("cost must not be negative")
	}
	if req.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	return nil
}

// List handles GET /api/needs. An optional ?q= filters by name substring.
func (h *NeedHandler) List(w http.ResponseWriter, r *http.Request) {
	needs, err := h.Store.FindNeeds(r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("Failed to list needs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if needs == nil {
		needs = []models.Need{}
	}
	writeJSON(w, http.StatusOK, needs)
}

// Get handles GET /api/needs/{name}.
func (h *NeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	need, err := h.Store.GetNeed(name)
	if err != nil {
		slog.Error("Failed to get need", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if need == nil {
		writeError(w, http.StatusNotFound, "need not found")
		return
	}
	writeJSON(w, http.StatusOK, need)
}

// Create handles POST /api/needs (admin).
func (h *NeedHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req needRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	need := &models.Need{Name: req.Name, Cost: req.Cost, Quantity: req.Quantity}
	if err := h.Store.CreateNeed(need); err != nil {
		if errors.Is(err, store.ErrNeedExists) {
			writeError(w, http.StatusConflict, "a need with that name already exists")
			return
		}
		slog.Error("Failed to create need", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Info("Need created", "name", need.Name, "cost", need.Cost, "quantity", need.Quantity)
	writeJSON(w, http.StatusCreated, need)
}

// Update handles PUT /api/needs/{name} (admin). The name in the path wins
// over any name in the body; needs are never renamed.
func (h *NeedHandler) Update(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req needRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = name
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	need := &models.Need{Name: name, Cost: req.Cost, Quantity: req.Quantity}
	found, err := h.Store.UpdateNeed(need)
	if err != nil {
		slog.Error("Failed to update need", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "need not found")
		return
	}
	writeJSON(w, http.StatusOK, need)
}

// Delete handles DELETE /api/needs/{name} (admin).
func (h *NeedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	found, err := h.Store.DeleteNeed(name)
	if err != nil {
		slog.Error("Failed to delete need", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "need not found")
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// UploadImage handles POST /api/needs/{name}/image (admin): a multipart
// "image" file, resized to 800px wide and stored as jpeg under the upload
// directory.
func (h *NeedHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	var img image.Image
	switch ext := filepath.Ext(header.Filename); ext {
	case ".png":
		img, err = png.Decode(file)
	case ".jpeg", ".jpg":
		img, err = jpeg.Decode(file)
	default:
		writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not decode image")
		return
	}

	resized := resize.Resize(800, 0, img, resize.Lanczos3)
	filename := fmt.Sprintf("%s.jpg", uuid.New().String())
	uploadPath := filepath.Join(h.UploadDir, filename)

	out, err := os.Create(uploadPath)
	if err != nil {
		slog.Error("Failed to create image file", "path", uploadPath, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer out.Close()
	if err := jpeg.Encode(out, resized, &jpeg.Options{Quality: 80}); err != nil {
		slog.Error("Failed to encode image", "path", uploadPath, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	imageURL := "/static/uploads/" + filename
	found, err := h.Store.UpdateNeedImage(name, imageURL)
	if err != nil {
		slog.Error("Failed to update need image", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "need not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"image_url": imageURL})
}
