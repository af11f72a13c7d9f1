package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"casefile/internal/models"
	"casefile/internal/services"
	pkghttp "casefile/pkg/http"
)

// maxImportSize caps an uploaded CSV at 10 MB.
const maxImportSize = 10 << 20

// ImportServiceInterface defines the interface for bulk CSV imports
type ImportServiceInterface interface {
	ImportCriminals(ctx context.Context, r io.Reader) (*services.CriminalsResult, error)
	ImportUsers(ctx context.Context, r io.Reader) (*services.UsersResult, error)
}

// ImportHandler handles the staff-only mass-add endpoints. Both accept a
// multipart form with the CSV under the "file" field.
type ImportHandler struct {
	service ImportServiceInterface
}

func NewImportHandler(service ImportServiceInterface) *ImportHandler {
	return &ImportHandler{service: service}
}

// Criminals imports a criminals CSV and reports row counts.
func (h *ImportHandler) Criminals(w http.ResponseWriter, r *http.Request) {
	file, ok := importFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.service.ImportCriminals(r.Context(), file)
	if err != nil {
		writeImportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Users imports a users CSV. On success the response is a credential
// manifest CSV; the import itself is all-or-nothing.
func (h *ImportHandler) Users(w http.ResponseWriter, r *http.Request) {
	file, ok := importFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.service.ImportUsers(r.Context(), file)
	if err != nil {
		writeImportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="provisioned_accounts.csv"`)
	w.Header().Set("X-Accounts-Created", strconv.Itoa(result.AccountsCreated))
	w.Header().Set("X-Rows-Skipped", strconv.Itoa(result.RowsSkipped))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Manifest)
}

func importFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		pkghttp.WriteBadRequest(w, "Expected a multipart form with a file field")
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		pkghttp.WriteBadRequest(w, "Missing file field")
		return nil, false
	}
	return file, true
}

func writeImportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, err.Error())
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
