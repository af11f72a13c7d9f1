package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"casefile/internal/database"
	"casefile/internal/models"
)

type LinkRepository struct {
	db Querier
}

func NewLinkRepository(db *database.DB) *LinkRepository {
	return &LinkRepository{db: db.Pool}
}

func (r *LinkRepository) WithTx(tx Querier) *LinkRepository {
	return &LinkRepository{db: tx}
}

// Create inserts an offense link. The offense column used depends on the
// link's jurisdiction; the table's check constraint rejects rows with both
// columns set.
func (r *LinkRepository) Create(ctx context.Context, link *models.OffenseLink) (*models.OffenseLink, error) {
	if link.Offense == nil {
		return nil, fmt.Errorf("offense link requires an offense")
	}

	var federalID, stateID *uuid.UUID
	switch link.Jurisdiction {
	case models.JurisdictionFederal:
		federalID = &link.Offense.ID
	case models.JurisdictionState:
		stateID = &link.Offense.ID
	default:
		return nil, fmt.Errorf("unknown jurisdiction %q", link.Jurisdiction)
	}

	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	link.CreatedAt = time.Now()

	query := `
		INSERT INTO offense_links (id, person_id, federal_offense_id, state_offense_id,
			date_charged, convicted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		link.ID, link.PersonID, federalID, stateID,
		link.DateCharged, link.Convicted, link.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return link, nil
}
