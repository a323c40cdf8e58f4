package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/service"
)

// ImportService defines the methods that the import handler requires from the
// service layer.
type ImportService interface {
	Import(ctx context.Context, userID, accountID, text string) (service.ImportResult, error)
	ListArchives(ctx context.Context, userID string) ([]domain.BlobInfo, error)
}

// ImportHandler serves CSV uploads and the archive listing.
type ImportHandler struct {
	imports  ImportService
	maxBytes int64
	logger   *slog.Logger
}

// NewImportHandler creates an ImportHandler. Request bodies larger than
// maxBytes are refused before parsing.
func NewImportHandler(imports ImportService, maxBytes int64, logger *slog.Logger) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &ImportHandler{imports: imports, maxBytes: maxBytes, logger: logger}
}

// Import uploads a CSV file of trades. The file is sent either as the "file"
// part of a multipart form (with an "accountId" field) or as a raw text/csv
// body with ?accountId=. A batch with row errors answers 422 with every error.
// POST /api/trades/import
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+64<<10)

	accountID, text, err := h.readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		writeServiceError(w, r, h.logger, "import trades", err)
		return
	}

	res, err := h.imports.Import(r.Context(), currentUser(r), accountID, text)
	if err != nil {
		writeServiceError(w, r, h.logger, "import trades", err)
		return
	}
	if res.Rejected() {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListArchives returns the caller's archived uploads.
// GET /api/imports
func (h *ImportHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	infos, err := h.imports.ListArchives(r.Context(), currentUser(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list imports", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": infos})
}

func (h *ImportHandler) readUpload(r *http.Request) (accountID, text string, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			return "", "", fmt.Errorf("malformed multipart form: %w: %w", domain.ErrInvalidInput, err)
		}
		accountID = r.FormValue("accountId")
		f, _, err := r.FormFile("file")
		if err != nil {
			return "", "", fmt.Errorf("multipart field \"file\" is missing: %w", domain.ErrInvalidInput)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", "", fmt.Errorf("read upload: %w", err)
		}
		return strings.TrimSpace(accountID), string(data), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", "", fmt.Errorf("read body: %w: %w", domain.ErrInvalidInput, err)
	}
	return strings.TrimSpace(r.URL.Query().Get("accountId")), string(data), nil
}
