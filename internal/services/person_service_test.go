package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casefile/internal/models"
)

func newPersonService(persons *MockPersonRepository, offenses *MockOffenseRepository, links *MockLinkRepository) *PersonService {
	logger, _ := testLoggers()
	return NewPersonService(persons, offenses, links, logger)
}

func TestPersonService_AddCriminal(t *testing.T) {
	ctx := context.Background()

	t.Run("creates person, offense and link", func(t *testing.T) {
		var gotJurisdiction models.Jurisdiction
		var gotLink *models.OffenseLink
		offenses := &MockOffenseRepository{
			GetOrCreateFunc: func(_ context.Context, j models.Jurisdiction, offense *models.Offense) (*models.Offense, error) {
				gotJurisdiction = j
				offense.ID = uuid.New()
				return offense, nil
			},
		}
		links := &MockLinkRepository{
			CreateFunc: func(_ context.Context, link *models.OffenseLink) (*models.OffenseLink, error) {
				link.ID = uuid.New()
				gotLink = link
				return link, nil
			},
		}
		svc := newPersonService(&MockPersonRepository{}, offenses, links)

		pwl, err := svc.AddCriminal(ctx, AddCriminalInput{
			FirstName:    "Jane",
			LastName:     "Smith",
			Source:       "federal",
			OffenseType:  "Felony",
			OffenseClass: "C",
			Description:  "mail fraud",
		})
		require.NoError(t, err)

		assert.Equal(t, models.JurisdictionFederal, gotJurisdiction)
		assert.Equal(t, pwl.Person.ID, gotLink.PersonID)
		require.Len(t, pwl.Links, 1)
		assert.Equal(t, "mail fraud", pwl.Links[0].Offense.Description)
	})

	t.Run("virginia maps to state jurisdiction", func(t *testing.T) {
		var gotJurisdiction models.Jurisdiction
		offenses := &MockOffenseRepository{
			GetOrCreateFunc: func(_ context.Context, j models.Jurisdiction, offense *models.Offense) (*models.Offense, error) {
				gotJurisdiction = j
				return offense, nil
			},
		}
		svc := newPersonService(&MockPersonRepository{}, offenses, &MockLinkRepository{})

		_, err := svc.AddCriminal(ctx, AddCriminalInput{
			FirstName:    "Bob",
			LastName:     "Jones",
			Source:       "virginia",
			OffenseType:  "Misdemeanor",
			OffenseClass: "1",
		})
		require.NoError(t, err)
		assert.Equal(t, models.JurisdictionState, gotJurisdiction)
	})

	t.Run("unknown source rejected", func(t *testing.T) {
		svc := newPersonService(&MockPersonRepository{}, &MockOffenseRepository{}, &MockLinkRepository{})
		_, err := svc.AddCriminal(ctx, AddCriminalInput{
			FirstName: "Bob", LastName: "Jones", Source: "maryland",
			OffenseType: "Felony", OffenseClass: "A",
		})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("class must fit the jurisdiction", func(t *testing.T) {
		svc := newPersonService(&MockPersonRepository{}, &MockOffenseRepository{}, &MockLinkRepository{})
		// Federal classes are letters; "1" is a state class.
		_, err := svc.AddCriminal(ctx, AddCriminalInput{
			FirstName: "Bob", LastName: "Jones", Source: "federal",
			OffenseType: "Felony", OffenseClass: "1",
		})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("names required", func(t *testing.T) {
		svc := newPersonService(&MockPersonRepository{}, &MockOffenseRepository{}, &MockLinkRepository{})
		_, err := svc.AddCriminal(ctx, AddCriminalInput{
			FirstName: "  ", LastName: "Jones", Source: "federal",
			OffenseType: "Felony", OffenseClass: "A",
		})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})
}

func TestPersonService_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a query", func(t *testing.T) {
		svc := newPersonService(&MockPersonRepository{}, &MockOffenseRepository{}, &MockLinkRepository{})
		_, err := svc.Search(ctx, "  ")
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("passes trimmed query through", func(t *testing.T) {
		var gotName string
		persons := &MockPersonRepository{
			SearchFunc: func(_ context.Context, name string) ([]*models.Person, error) {
				gotName = name
				return []*models.Person{{ID: uuid.New(), FirstName: "Jane", LastName: "Smith"}}, nil
			},
		}
		svc := newPersonService(persons, &MockOffenseRepository{}, &MockLinkRepository{})

		results, err := svc.Search(ctx, " Smith ")
		require.NoError(t, err)
		assert.Equal(t, "Smith", gotName)
		assert.Len(t, results, 1)
	})
}

func TestPersonService_CategorizedView(t *testing.T) {
	ctx := context.Background()

	makeFelon := func(first string) *models.PersonWithLinks {
		return &models.PersonWithLinks{
			Person: &models.Person{ID: uuid.New(), FirstName: first, LastName: "Test"},
			Links: []*models.OffenseLink{{
				ID:           uuid.New(),
				Jurisdiction: models.JurisdictionFederal,
				Offense:      &models.Offense{ID: uuid.New(), Type: models.Felony, Class: "A"},
			}},
		}
	}

	people := make([]*models.PersonWithLinks, 0, 12)
	for i := 0; i < 12; i++ {
		people = append(people, makeFelon("P"))
	}
	persons := &MockPersonRepository{
		ListWithLinksFunc: func(_ context.Context) ([]*models.PersonWithLinks, error) {
			return people, nil
		},
	}
	svc := newPersonService(persons, &MockOffenseRepository{}, &MockLinkRepository{})

	t.Run("six buckets, each paginated", func(t *testing.T) {
		view, err := svc.CategorizedView(ctx, nil)
		require.NoError(t, err)
		require.Len(t, view, 6)

		assert.Equal(t, "federal_felons", view[0].Key)
		assert.Equal(t, "Federal Felons", view[0].Label)
		assert.Len(t, view[0].Page.Persons, 10)
		assert.Equal(t, 2, view[0].Page.TotalPages)

		// The other buckets are empty but still present.
		assert.Empty(t, view[3].Page.Persons)
	})

	t.Run("per bucket page selection", func(t *testing.T) {
		view, err := svc.CategorizedView(ctx, map[string]int{"page_federal_felons": 2, "federal_felons": 2})
		require.NoError(t, err)
		// Keyed by category key, not the query parameter name.
		assert.Equal(t, 2, view[0].Page.Number)
		assert.Len(t, view[0].Page.Persons, 2)
	})
}

func TestPersonService_ClassView(t *testing.T) {
	ctx := context.Background()

	people := []*models.PersonWithLinks{
		{
			Person: &models.Person{ID: uuid.New(), FirstName: "Al", LastName: "Able"},
			Links: []*models.OffenseLink{{
				ID:           uuid.New(),
				Jurisdiction: models.JurisdictionFederal,
				Offense:      &models.Offense{ID: uuid.New(), Type: models.Felony, Class: "A"},
			}},
		},
		{
			Person: &models.Person{ID: uuid.New(), FirstName: "Nan", LastName: "North"},
			Links: []*models.OffenseLink{{
				ID:           uuid.New(),
				Jurisdiction: models.JurisdictionFederal,
				Offense:      &models.Offense{ID: uuid.New(), Type: models.Felony, Class: ""},
			}},
		},
	}
	persons := &MockPersonRepository{
		ListWithLinksFunc: func(_ context.Context) ([]*models.PersonWithLinks, error) {
			return people, nil
		},
	}
	svc := newPersonService(persons, &MockOffenseRepository{}, &MockLinkRepository{})

	t.Run("groups by class with unknown bucket last", func(t *testing.T) {
		view, err := svc.ClassView(ctx, "federal_felons", nil)
		require.NoError(t, err)
		require.Len(t, view, 2)
		assert.Equal(t, "Class A", view[0].Label)
		assert.Equal(t, "Unknown Class", view[1].Label)
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		_, err := svc.ClassView(ctx, "federal_wizards", nil)
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})
}
