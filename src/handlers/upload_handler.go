package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/username/optifolio/src/config"
	"github.com/username/optifolio/src/logger"
	"github.com/username/optifolio/src/processors"
	"github.com/username/optifolio/src/security/validation"
	"github.com/username/optifolio/src/services"
	"github.com/username/optifolio/src/utils"
)

type UploadHandler struct {
	importService services.ImportService
}

func NewUploadHandler(importService services.ImportService) *UploadHandler {
	return &UploadHandler{importService: importService}
}

// HandleUpload accepts a multipart activity export and reconciles it. Form
// fields: "file" (the CSV), "mode" (fresh|update|rebuild, default update) and
// "source" (parser name, default activity).
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxUploadSizeBytes)
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		utils.SendJSONError(w, "Upload too large or malformed", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.SendJSONError(w, "A 'file' form field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := validation.ValidateClientContentType(header.Header.Get("Content-Type")); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	modeStr := r.FormValue("mode")
	if modeStr == "" {
		modeStr = string(processors.ModeUpdate)
	}
	mode, ok := processors.ParseMode(modeStr)
	if !ok {
		utils.SendJSONError(w, "mode must be one of fresh, update, rebuild", http.StatusBadRequest)
		return
	}

	source := r.FormValue("source")
	if source == "" {
		source = "activity"
	}

	result, err := h.importService.Import(r.Context(), userID, source, file, mode)
	if err != nil {
		if errors.Is(err, services.ErrNoTransactions) {
			utils.SendJSONError(w, "The upload contained no usable transactions", http.StatusUnprocessableEntity)
			return
		}
		logger.L.Error("Import failed", "userID", userID, "filename", header.Filename, "error", err)
		utils.SendJSONError(w, "Import failed", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Import completed",
		"userID", userID,
		"filename", header.Filename,
		"mode", string(mode),
		"inserted", result.RowsInserted,
		"duplicate", result.RowsDuplicate)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleLatestImport returns the cached summary of the user's most recent
// import, if any.
func (h *UploadHandler) HandleLatestImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	result, found := h.importService.LastResult(userID)
	if !found {
		utils.SendJSONError(w, "No recent import", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleReconcile replays the stored history without a new upload.
func (h *UploadHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		req.Mode = string(processors.ModeUpdate)
	}
	mode, ok := processors.ParseMode(req.Mode)
	if !ok {
		utils.SendJSONError(w, "mode must be one of fresh, update, rebuild", http.StatusBadRequest)
		return
	}

	result, err := h.importService.Reconcile(r.Context(), userID, mode)
	if err != nil {
		if errors.Is(err, services.ErrNoTransactions) {
			utils.SendJSONError(w, "No stored transactions to reconcile", http.StatusUnprocessableEntity)
			return
		}
		logger.L.Error("Reconciliation failed", "userID", userID, "error", err)
		utils.SendJSONError(w, "Reconciliation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
