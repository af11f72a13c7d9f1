package integration

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"casefile/internal/database"
	"casefile/internal/models"
	pkgauth "casefile/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("casefile"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         &database.DB{Pool: pool},
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// Suppress goose logs
	goose.SetLogger(log.New(nil, "", 0))

	// Goose needs a database/sql connection; use the stdlib adapter from pgx
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"offense_links",
		"federal_offenses",
		"state_offenses",
		"persons",
		"accounts",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// SeedAccountOptions controls the optional fields on a seeded account.
type SeedAccountOptions struct {
	Staff            bool
	Superuser        bool
	FirstLogin       bool
	SecurityQuestion string
	SecurityAnswer   string
	ExpirationDate   *time.Time
}

// SeedAccount inserts a test account with a hashed password
func SeedAccount(ctx context.Context, pool *pgxpool.Pool, username, email, password string, opts SeedAccountOptions) (*models.Account, error) {
	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var question, answerHash *string
	if opts.SecurityQuestion != "" {
		hash, err := pkgauth.HashSecurityAnswer(opts.SecurityAnswer)
		if err != nil {
			return nil, fmt.Errorf("failed to hash security answer: %w", err)
		}
		question = &opts.SecurityQuestion
		answerHash = &hash
	}

	query := `
		INSERT INTO accounts (
			id, username, email, password_hash, first_name, last_name,
			staff, superuser, first_login, security_question, security_answer_hash,
			expiration_date, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, 'Test', 'User', $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, username, email, password_hash, first_name, last_name,
			staff, superuser, first_login, security_question, security_answer_hash,
			expiration_date, password_changed_at, created_at, updated_at
	`

	var account models.Account
	err = pool.QueryRow(ctx, query,
		uuid.New(), username, email, passwordHash,
		opts.Staff, opts.Superuser, opts.FirstLogin,
		question, answerHash, opts.ExpirationDate,
	).Scan(
		&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&account.FirstName, &account.LastName, &account.Staff, &account.Superuser,
		&account.FirstLogin, &account.SecurityQuestion, &account.SecurityAnswerHash,
		&account.ExpirationDate, &account.PasswordChangedAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	return &account, nil
}

// CountRows returns the number of rows in a table
func CountRows(ctx context.Context, pool *pgxpool.Pool, table string) (int, error) {
	var count int
	err := pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	return count, err
}
