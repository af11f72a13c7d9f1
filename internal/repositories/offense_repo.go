package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"casefile/internal/database"
	"casefile/internal/models"
)

type OffenseRepository struct {
	db Querier
}

func NewOffenseRepository(db *database.DB) *OffenseRepository {
	return &OffenseRepository{db: db.Pool}
}

func (r *OffenseRepository) WithTx(tx Querier) *OffenseRepository {
	return &OffenseRepository{db: tx}
}

func offenseTable(j models.Jurisdiction) (string, error) {
	switch j {
	case models.JurisdictionFederal:
		return "federal_offenses", nil
	case models.JurisdictionState:
		return "state_offenses", nil
	default:
		return "", fmt.Errorf("unknown jurisdiction %q", j)
	}
}

// GetOrCreate returns the existing offense matching (type, class,
// description) within the jurisdiction, or inserts it. The upsert keeps bulk
// imports from duplicating offenses row by row.
func (r *OffenseRepository) GetOrCreate(ctx context.Context, j models.Jurisdiction, offense *models.Offense) (*models.Offense, error) {
	table, err := offenseTable(j)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, type, class, description FROM ` + table + `
		WHERE type = $1 AND class = $2 AND description = $3`
	existing := &models.Offense{}
	err = r.db.QueryRow(ctx, query, offense.Type, offense.Class, offense.Description).
		Scan(&existing.ID, &existing.Type, &existing.Class, &existing.Description)
	if err == nil {
		return existing, nil
	}
	if mapped := database.MapPostgresError(err); mapped != models.ErrNotFound {
		return nil, mapped
	}

	offense.ID = uuid.New()
	insert := `
		INSERT INTO ` + table + ` (id, type, class, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (type, class, description) DO UPDATE SET type = EXCLUDED.type
		RETURNING id
	`
	err = r.db.QueryRow(ctx, insert, offense.ID, offense.Type, offense.Class, offense.Description).
		Scan(&offense.ID)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return offense, nil
}
