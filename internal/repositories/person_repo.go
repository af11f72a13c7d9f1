package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"casefile/internal/database"
	"casefile/internal/models"
)

type PersonRepository struct {
	db Querier
}

func NewPersonRepository(db *database.DB) *PersonRepository {
	return &PersonRepository{db: db.Pool}
}

func (r *PersonRepository) WithTx(tx Querier) *PersonRepository {
	return &PersonRepository{db: tx}
}

func scanPersonRow(scanner rowScanner) (*models.Person, error) {
	var p models.Person
	err := scanner.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

func (r *PersonRepository) Create(ctx context.Context, person *models.Person) (*models.Person, error) {
	if person.ID == uuid.Nil {
		person.ID = uuid.New()
	}
	person.CreatedAt = time.Now()

	query := `
		INSERT INTO persons (id, first_name, last_name, date_of_birth, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		person.ID, person.FirstName, person.LastName, person.DateOfBirth, person.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return person, nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	query := `SELECT id, first_name, last_name, date_of_birth, created_at FROM persons WHERE id = $1`
	return scanPersonRow(r.db.QueryRow(ctx, query, id))
}

// Search finds persons whose first or last name contains the query,
// case-insensitively.
func (r *PersonRepository) Search(ctx context.Context, name string) ([]*models.Person, error) {
	query := `
		SELECT id, first_name, last_name, date_of_birth, created_at
		FROM persons
		WHERE first_name ILIKE '%' || $1 || '%'
		   OR last_name ILIKE '%' || $1 || '%'
		ORDER BY last_name, first_name, created_at
	`
	rows, err := r.db.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	return scanPersonRows(rows)
}

func scanPersonRows(rows pgx.Rows) ([]*models.Person, error) {
	defer rows.Close()

	persons := make([]*models.Person, 0)
	for rows.Next() {
		p, err := scanPersonRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return persons, nil
}

// ListWithLinks loads every person together with their offense links, links
// ordered by creation so classification tie-breaks are stable.
func (r *PersonRepository) ListWithLinks(ctx context.Context) ([]*models.PersonWithLinks, error) {
	personQuery := `
		SELECT id, first_name, last_name, date_of_birth, created_at
		FROM persons ORDER BY last_name, first_name, created_at
	`
	rows, err := r.db.Query(ctx, personQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	persons, err := scanPersonRows(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.PersonWithLinks, len(persons))
	out := make([]*models.PersonWithLinks, 0, len(persons))
	for _, p := range persons {
		pwl := &models.PersonWithLinks{Person: p}
		byID[p.ID] = pwl
		out = append(out, pwl)
	}

	links, err := r.listLinks(ctx)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		if pwl, ok := byID[link.PersonID]; ok {
			pwl.Links = append(pwl.Links, link)
		}
	}
	return out, nil
}

// GetWithLinks loads one person and their links in creation order.
func (r *PersonRepository) GetWithLinks(ctx context.Context, id uuid.UUID) (*models.PersonWithLinks, error) {
	person, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	links, err := r.listLinksFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.PersonWithLinks{Person: person, Links: links}, nil
}

const linkSelect = `
	SELECT l.id, l.person_id, l.date_charged, l.convicted, l.created_at,
	       f.id, f.type, f.class, f.description,
	       s.id, s.type, s.class, s.description
	FROM offense_links l
	LEFT JOIN federal_offenses f ON l.federal_offense_id = f.id
	LEFT JOIN state_offenses s ON l.state_offense_id = s.id
`

func (r *PersonRepository) listLinks(ctx context.Context) ([]*models.OffenseLink, error) {
	rows, err := r.db.Query(ctx, linkSelect+` ORDER BY l.created_at, l.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query offense links: %w", err)
	}
	return scanLinkRows(rows)
}

func (r *PersonRepository) listLinksFor(ctx context.Context, personID uuid.UUID) ([]*models.OffenseLink, error) {
	rows, err := r.db.Query(ctx, linkSelect+` WHERE l.person_id = $1 ORDER BY l.created_at, l.id`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query offense links: %w", err)
	}
	return scanLinkRows(rows)
}

func scanLinkRows(rows pgx.Rows) ([]*models.OffenseLink, error) {
	defer rows.Close()

	links := make([]*models.OffenseLink, 0)
	for rows.Next() {
		var link models.OffenseLink
		var fedID, stateID *uuid.UUID
		var fedType, fedClass, fedDesc *string
		var stateType, stateClass, stateDesc *string

		err := rows.Scan(
			&link.ID, &link.PersonID, &link.DateCharged, &link.Convicted, &link.CreatedAt,
			&fedID, &fedType, &fedClass, &fedDesc,
			&stateID, &stateType, &stateClass, &stateDesc,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offense link: %w", err)
		}

		switch {
		case fedID != nil:
			link.Jurisdiction = models.JurisdictionFederal
			link.Offense = &models.Offense{
				ID: *fedID, Type: models.OffenseType(*fedType), Class: *fedClass, Description: *fedDesc,
			}
		case stateID != nil:
			link.Jurisdiction = models.JurisdictionState
			link.Offense = &models.Offense{
				ID: *stateID, Type: models.OffenseType(*stateType), Class: *stateClass, Description: *stateDesc,
			}
		}
		links = append(links, &link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return links, nil
}
