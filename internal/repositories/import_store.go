package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"casefile/internal/database"
	"casefile/internal/models"
	"casefile/internal/services"
)

// PgImportStore runs bulk imports inside one database transaction.
type PgImportStore struct {
	db *database.DB
}

func NewPgImportStore(db *database.DB) *PgImportStore {
	return &PgImportStore{db: db}
}

func (s *PgImportStore) Run(ctx context.Context, fn func(tx services.ImportTx) error) error {
	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&pgImportTx{
			persons:  (&PersonRepository{}).WithTx(tx),
			offenses: (&OffenseRepository{}).WithTx(tx),
			links:    (&LinkRepository{}).WithTx(tx),
			accounts: (&AccountRepository{}).WithTx(tx),
		})
	})
}

type pgImportTx struct {
	persons  *PersonRepository
	offenses *OffenseRepository
	links    *LinkRepository
	accounts *AccountRepository
}

func (t *pgImportTx) CreatePerson(ctx context.Context, person *models.Person) (*models.Person, error) {
	return t.persons.Create(ctx, person)
}

func (t *pgImportTx) GetOrCreateOffense(ctx context.Context, j models.Jurisdiction, offense *models.Offense) (*models.Offense, error) {
	return t.offenses.GetOrCreate(ctx, j, offense)
}

func (t *pgImportTx) CreateLink(ctx context.Context, link *models.OffenseLink) (*models.OffenseLink, error) {
	return t.links.Create(ctx, link)
}

func (t *pgImportTx) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	return t.accounts.Create(ctx, account)
}
