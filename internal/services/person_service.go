package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"casefile/internal/classify"
	"casefile/internal/models"
)

// PersonRepository is the person storage surface the services need.
type PersonRepository interface {
	Create(ctx context.Context, person *models.Person) (*models.Person, error)
	GetWithLinks(ctx context.Context, id uuid.UUID) (*models.PersonWithLinks, error)
	Search(ctx context.Context, name string) ([]*models.Person, error)
	ListWithLinks(ctx context.Context) ([]*models.PersonWithLinks, error)
}

// OffenseRepository deduplicates offenses within a jurisdiction.
type OffenseRepository interface {
	GetOrCreate(ctx context.Context, j models.Jurisdiction, offense *models.Offense) (*models.Offense, error)
}

// LinkRepository stores person-offense links.
type LinkRepository interface {
	Create(ctx context.Context, link *models.OffenseLink) (*models.OffenseLink, error)
}

// PersonService covers the criminal-record operations: adding records,
// searching, and building the categorized views.
type PersonService struct {
	persons  PersonRepository
	offenses OffenseRepository
	links    LinkRepository
	logger   *slog.Logger
}

func NewPersonService(persons PersonRepository, offenses OffenseRepository, links LinkRepository, logger *slog.Logger) *PersonService {
	return &PersonService{
		persons:  persons,
		offenses: offenses,
		links:    links,
		logger:   logger,
	}
}

// AddCriminalInput describes one person plus one offense to record.
type AddCriminalInput struct {
	FirstName    string
	LastName     string
	DateOfBirth  *time.Time
	Source       string // "federal", "state", or the "virginia" alias
	OffenseType  string
	OffenseClass string
	Description  string
	DateCharged  *time.Time
	Convicted    bool
}

// AddCriminal creates the person, reuses or creates the offense within its
// jurisdiction, and links the two.
func (s *PersonService) AddCriminal(ctx context.Context, input AddCriminalInput) (*models.PersonWithLinks, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", models.ErrBadRequest)
	}

	jurisdiction, err := models.ParseJurisdiction(input.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	offenseType := models.OffenseType(strings.TrimSpace(input.OffenseType))
	class := strings.TrimSpace(input.OffenseClass)
	if !models.ValidOffense(jurisdiction, offenseType, class) {
		return nil, fmt.Errorf("%w: invalid offense type or class for %s jurisdiction", models.ErrBadRequest, jurisdiction)
	}

	person, err := s.persons.Create(ctx, &models.Person{
		FirstName:   firstName,
		LastName:    lastName,
		DateOfBirth: input.DateOfBirth,
	})
	if err != nil {
		s.logger.Error("failed to create person", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	offense, err := s.offenses.GetOrCreate(ctx, jurisdiction, &models.Offense{
		Type:        offenseType,
		Class:       class,
		Description: strings.TrimSpace(input.Description),
	})
	if err != nil {
		s.logger.Error("failed to get or create offense", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	link, err := s.links.Create(ctx, &models.OffenseLink{
		PersonID:     person.ID,
		Jurisdiction: jurisdiction,
		Offense:      offense,
		DateCharged:  input.DateCharged,
		Convicted:    input.Convicted,
	})
	if err != nil {
		s.logger.Error("failed to create offense link", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("criminal record added",
		slog.String("person_id", person.ID.String()),
		slog.String("jurisdiction", string(jurisdiction)))

	return &models.PersonWithLinks{Person: person, Links: []*models.OffenseLink{link}}, nil
}

// Search finds persons whose first or last name contains the query. An empty
// query is rejected rather than returning the whole table.
func (s *PersonService) Search(ctx context.Context, name string) ([]*models.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: a search query is required", models.ErrBadRequest)
	}

	persons, err := s.persons.Search(ctx, name)
	if err != nil {
		s.logger.Error("failed to search persons", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return persons, nil
}

// Get loads one person with their offense history.
func (s *PersonService) Get(ctx context.Context, id uuid.UUID) (*models.PersonWithLinks, error) {
	pwl, err := s.persons.GetWithLinks(ctx, id)
	if err != nil {
		if err == models.ErrNotFound {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load person", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return pwl, nil
}

// CategoryPage is one paginated bucket of the all-criminals view.
type CategoryPage struct {
	Key   string        `json:"key"`
	Label string        `json:"label"`
	Page  classify.Page `json:"page"`
}

// CategorizedView buckets every classified person into the six categories
// and paginates each independently. pages maps category keys to requested
// page numbers; absent keys default to the first page.
func (s *PersonService) CategorizedView(ctx context.Context, pages map[string]int) ([]CategoryPage, error) {
	people, err := s.persons.ListWithLinks(ctx)
	if err != nil {
		s.logger.Error("failed to list persons", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	buckets := classify.Categorize(people)
	out := make([]CategoryPage, 0, 6)
	for _, cat := range classify.Categories() {
		page := pages[cat.Key()]
		if page == 0 {
			page = 1
		}
		out = append(out, CategoryPage{
			Key:   cat.Key(),
			Label: cat.Label(),
			Page:  classify.Paginate(buckets[cat], page),
		})
	}
	return out, nil
}

// ClassPage is one paginated class group within a class view.
type ClassPage struct {
	Class string        `json:"class"`
	Label string        `json:"label"`
	Page  classify.Page `json:"page"`
}

// ClassView breaks one category down by offense class, each class paginated
// independently. Offenses without a class appear under "Unknown Class".
func (s *PersonService) ClassView(ctx context.Context, categoryKey string, pages map[string]int) ([]ClassPage, error) {
	cat, ok := categoryByKey(categoryKey)
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", models.ErrBadRequest, categoryKey)
	}

	people, err := s.persons.ListWithLinks(ctx)
	if err != nil {
		s.logger.Error("failed to list persons", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	groups := classify.ByClass(people, cat)
	out := make([]ClassPage, 0, len(groups))
	for _, g := range groups {
		param := classify.ClassPageParam(g)
		page := pages[param]
		if page == 0 {
			page = 1
		}
		out = append(out, ClassPage{
			Class: g.Class,
			Label: g.Label,
			Page:  classify.Paginate(g.Persons, page),
		})
	}
	return out, nil
}

func categoryByKey(key string) (classify.Category, bool) {
	for _, cat := range classify.Categories() {
		if cat.Key() == key {
			return cat, true
		}
	}
	return classify.Category{}, false
}
