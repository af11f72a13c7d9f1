package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"casefile/internal/database"
	"casefile/internal/models"
)

type AccountRepository struct {
	db Querier
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db.Pool}
}

// WithTx returns a repository bound to the given transaction.
func (r *AccountRepository) WithTx(tx Querier) *AccountRepository {
	return &AccountRepository{db: tx}
}

const accountColumns = `id, username, email, password_hash, first_name, last_name,
	staff, superuser, first_login, security_question, security_answer_hash,
	expiration_date, password_changed_at, created_at, updated_at`

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account
	err := scanner.Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.Staff, &a.Superuser, &a.FirstLogin, &a.SecurityQuestion, &a.SecurityAnswerHash,
		&a.ExpirationDate, &a.PasswordChangedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.db.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccountRow(r.db.QueryRow(ctx, query, username))
}

// GetByUsernameEmail matches the identify step of account recovery: both
// fields must belong to the same account.
func (r *AccountRepository) GetByUsernameEmail(ctx context.Context, username, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1 AND email = $2`
	return scanAccountRow(r.db.QueryRow(ctx, query, username, email))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO accounts (id, username, email, password_hash, first_name, last_name,
			staff, superuser, first_login, security_question, security_answer_hash,
			expiration_date, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.Exec(ctx, query,
		account.ID, account.Username, account.Email, account.PasswordHash,
		account.FirstName, account.LastName, account.Staff, account.Superuser,
		account.FirstLogin, account.SecurityQuestion, account.SecurityAnswerHash,
		account.ExpirationDate, account.PasswordChangedAt, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return account, nil
}

// UpdatePassword stores a new hash and stamps password_changed_at, which
// invalidates every token issued before this moment. The stamp is truncated
// to whole seconds because JWT iat only carries second precision; a token
// minted in the same second as the change must still compare as valid.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	changedAt := time.Now().UTC().Truncate(time.Second)
	query := `
		UPDATE accounts
		SET password_hash = $2, password_changed_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, passwordHash, changedAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) UpdateSecurityQuestion(ctx context.Context, id uuid.UUID, question, answerHash string) error {
	query := `
		UPDATE accounts
		SET security_question = $2, security_answer_hash = $3, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, question, answerHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) ClearFirstLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts SET first_login = FALSE, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteExpired removes accounts whose expiration date is at or before now
// and returns how many were removed.
func (r *AccountRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM accounts WHERE expiration_date IS NOT NULL AND expiration_date <= $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired accounts: %w", err)
	}
	return tag.RowsAffected(), nil
}
