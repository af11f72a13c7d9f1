package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"casefile/internal/classify"
	"casefile/internal/models"
	"casefile/internal/services"
	pkghttp "casefile/pkg/http"
)

// PersonServiceInterface defines the interface for criminal record operations
type PersonServiceInterface interface {
	AddCriminal(ctx context.Context, input services.AddCriminalInput) (*models.PersonWithLinks, error)
	Search(ctx context.Context, name string) ([]*models.Person, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PersonWithLinks, error)
	CategorizedView(ctx context.Context, pages map[string]int) ([]services.CategoryPage, error)
	ClassView(ctx context.Context, categoryKey string, pages map[string]int) ([]services.ClassPage, error)
}

// CriminalHandler handles criminal record requests
type CriminalHandler struct {
	service PersonServiceInterface
}

func NewCriminalHandler(service PersonServiceInterface) *CriminalHandler {
	return &CriminalHandler{service: service}
}

// AddCriminalRequest records a person together with one offense.
type AddCriminalRequest struct {
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	DateOfBirth  string `json:"date_of_birth"` // YYYY-MM-DD, optional
	Source       string `json:"offense_source" validate:"required"`
	OffenseType  string `json:"offense_type" validate:"required"`
	OffenseClass string `json:"offense_class"`
	Description  string `json:"description"`
	DateCharged  string `json:"date_charged"` // YYYY-MM-DD, optional
	Convicted    bool   `json:"convicted"`
}

// Add records a new criminal with their offense.
func (h *CriminalHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddCriminalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	dob, err := parseOptionalDate(req.DateOfBirth)
	if err != nil {
		pkghttp.WriteBadRequest(w, "date_of_birth must be YYYY-MM-DD")
		return
	}
	charged, err := parseOptionalDate(req.DateCharged)
	if err != nil {
		pkghttp.WriteBadRequest(w, "date_charged must be YYYY-MM-DD")
		return
	}

	pwl, err := h.service.AddCriminal(r.Context(), services.AddCriminalInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateOfBirth:  dob,
		Source:       req.Source,
		OffenseType:  req.OffenseType,
		OffenseClass: req.OffenseClass,
		Description:  req.Description,
		DateCharged:  charged,
		Convicted:    req.Convicted,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pwl)
}

// Search finds persons whose first or last name contains the name query.
func (h *CriminalHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	persons, err := h.service.Search(r.Context(), name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   name,
		"results": persons,
	})
}

// Get returns one person with their offense history.
func (h *CriminalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteNotFound(w, "Criminal not found")
		return
	}

	pwl, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pwl)
}

// List shows every criminal bucketed into the six jurisdiction and severity
// categories, each paginated independently through its own page parameter.
func (h *CriminalHandler) List(w http.ResponseWriter, r *http.Request) {
	pages := make(map[string]int)
	for _, cat := range classify.Categories() {
		if n, ok := pageQuery(r, classify.PageParam(cat)); ok {
			pages[cat.Key()] = n
		}
	}

	categories, err := h.service.CategorizedView(r.Context(), pages)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// ByClass breaks one category down by offense class. Page parameters are
// named after the class, for example page_class_a or page_unknown.
func (h *CriminalHandler) ByClass(w http.ResponseWriter, r *http.Request) {
	categoryKey := chi.URLParam(r, "category")

	pages := make(map[string]int)
	for name, values := range r.URL.Query() {
		if !strings.HasPrefix(name, "page_") || len(values) == 0 {
			continue
		}
		if n, err := strconv.Atoi(values[0]); err == nil {
			pages[name] = n
		}
	}

	classes, err := h.service.ClassView(r.Context(), categoryKey, pages)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category": categoryKey,
		"classes":  classes,
	})
}

func pageQuery(r *http.Request, param string) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Conflict")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
