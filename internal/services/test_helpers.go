package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"casefile/internal/models"
	pkglogger "casefile/pkg/logger"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc                func(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByUsernameFunc          func(ctx context.Context, username string) (*models.Account, error)
	GetByUsernameEmailFunc     func(ctx context.Context, username, email string) (*models.Account, error)
	CreateFunc                 func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdatePasswordFunc         func(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateSecurityQuestionFunc func(ctx context.Context, id uuid.UUID, question, answerHash string) error
	ClearFirstLoginFunc        func(ctx context.Context, id uuid.UUID) error
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByUsernameEmail(ctx context.Context, username, email string) (*models.Account, error) {
	if m.GetByUsernameEmailFunc != nil {
		return m.GetByUsernameEmailFunc(ctx, username, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return account, nil
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockAccountRepository) UpdateSecurityQuestion(ctx context.Context, id uuid.UUID, question, answerHash string) error {
	if m.UpdateSecurityQuestionFunc != nil {
		return m.UpdateSecurityQuestionFunc(ctx, id, question, answerHash)
	}
	return nil
}

func (m *MockAccountRepository) ClearFirstLogin(ctx context.Context, id uuid.UUID) error {
	if m.ClearFirstLoginFunc != nil {
		return m.ClearFirstLoginFunc(ctx, id)
	}
	return nil
}

// MockPersonRepository implements PersonRepository for testing
type MockPersonRepository struct {
	CreateFunc        func(ctx context.Context, person *models.Person) (*models.Person, error)
	GetWithLinksFunc  func(ctx context.Context, id uuid.UUID) (*models.PersonWithLinks, error)
	SearchFunc        func(ctx context.Context, name string) ([]*models.Person, error)
	ListWithLinksFunc func(ctx context.Context) ([]*models.PersonWithLinks, error)
}

func (m *MockPersonRepository) Create(ctx context.Context, person *models.Person) (*models.Person, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, person)
	}
	if person.ID == uuid.Nil {
		person.ID = uuid.New()
	}
	return person, nil
}

func (m *MockPersonRepository) GetWithLinks(ctx context.Context, id uuid.UUID) (*models.PersonWithLinks, error) {
	if m.GetWithLinksFunc != nil {
		return m.GetWithLinksFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPersonRepository) Search(ctx context.Context, name string) ([]*models.Person, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, name)
	}
	return []*models.Person{}, nil
}

func (m *MockPersonRepository) ListWithLinks(ctx context.Context) ([]*models.PersonWithLinks, error) {
	if m.ListWithLinksFunc != nil {
		return m.ListWithLinksFunc(ctx)
	}
	return []*models.PersonWithLinks{}, nil
}

// MockOffenseRepository implements OffenseRepository for testing
type MockOffenseRepository struct {
	GetOrCreateFunc func(ctx context.Context, j models.Jurisdiction, offense *models.Offense) (*models.Offense, error)
}

func (m *MockOffenseRepository) GetOrCreate(ctx context.Context, j models.Jurisdiction, offense *models.Offense) (*models.Offense, error) {
	if m.GetOrCreateFunc != nil {
		return m.GetOrCreateFunc(ctx, j, offense)
	}
	if offense.ID == uuid.Nil {
		offense.ID = uuid.New()
	}
	return offense, nil
}

// MockLinkRepository implements LinkRepository for testing
type MockLinkRepository struct {
	CreateFunc func(ctx context.Context, link *models.OffenseLink) (*models.OffenseLink, error)
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.OffenseLink) (*models.OffenseLink, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, link)
	}
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	return link, nil
}

// MemoryImportStore implements ImportStore over in-memory slices. When
// FailAfterRows is positive, the transaction aborts after that many person
// or account writes and nothing is retained, mirroring a rollback.
type MemoryImportStore struct {
	mu            sync.Mutex
	Persons       []*models.Person
	Offenses      map[models.Jurisdiction][]*models.Offense
	Links         []*models.OffenseLink
	Accounts      []*models.Account
	FailAfterRows int
	FailErr       error
}

func NewMemoryImportStore() *MemoryImportStore {
	return &MemoryImportStore{
		Offenses: make(map[models.Jurisdiction][]*models.Offense),
	}
}

type memoryImportTx struct {
	store    *MemoryImportStore
	persons  []*models.Person
	offenses map[models.Jurisdiction][]*models.Offense
	links    []*models.OffenseLink
	accounts []*models.Account
	writes   int
}

func (s *MemoryImportStore) Run(_ context.Context, fn func(tx ImportTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryImportTx{
		store:    s,
		offenses: make(map[models.Jurisdiction][]*models.Offense),
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.Persons = append(s.Persons, tx.persons...)
	for j, offs := range tx.offenses {
		s.Offenses[j] = append(s.Offenses[j], offs...)
	}
	s.Links = append(s.Links, tx.links...)
	s.Accounts = append(s.Accounts, tx.accounts...)
	return nil
}

func (tx *memoryImportTx) checkFailure() error {
	tx.writes++
	if tx.store.FailAfterRows > 0 && tx.writes > tx.store.FailAfterRows {
		if tx.store.FailErr != nil {
			return tx.store.FailErr
		}
		return models.ErrInternalServer
	}
	return nil
}

func (tx *memoryImportTx) CreatePerson(_ context.Context, person *models.Person) (*models.Person, error) {
	if err := tx.checkFailure(); err != nil {
		return nil, err
	}
	person.ID = uuid.New()
	person.CreatedAt = time.Now()
	tx.persons = append(tx.persons, person)
	return person, nil
}

func (tx *memoryImportTx) GetOrCreateOffense(_ context.Context, j models.Jurisdiction, offense *models.Offense) (*models.Offense, error) {
	pools := [][]*models.Offense{tx.store.Offenses[j], tx.offenses[j]}
	for _, pool := range pools {
		for _, existing := range pool {
			if existing.Type == offense.Type && existing.Class == offense.Class && existing.Description == offense.Description {
				return existing, nil
			}
		}
	}
	offense.ID = uuid.New()
	tx.offenses[j] = append(tx.offenses[j], offense)
	return offense, nil
}

func (tx *memoryImportTx) CreateLink(_ context.Context, link *models.OffenseLink) (*models.OffenseLink, error) {
	link.ID = uuid.New()
	link.CreatedAt = time.Now()
	tx.links = append(tx.links, link)
	return link, nil
}

func (tx *memoryImportTx) CreateAccount(_ context.Context, account *models.Account) (*models.Account, error) {
	if err := tx.checkFailure(); err != nil {
		return nil, err
	}
	for _, pool := range [][]*models.Account{tx.store.Accounts, tx.accounts} {
		for _, existing := range pool {
			if existing.Username == account.Username {
				return nil, models.ErrConflict
			}
		}
	}
	account.ID = uuid.New()
	account.CreatedAt = time.Now()
	tx.accounts = append(tx.accounts, account)
	return account, nil
}

// MockCredentialMailer implements CredentialMailer for testing
type MockCredentialMailer struct {
	mu        sync.Mutex
	SendFunc  func(ctx context.Context, email, username, tempPassword string, expiration *time.Time) error
	Delivered []string
}

func (m *MockCredentialMailer) SendCredentials(ctx context.Context, email, username, tempPassword string, expiration *time.Time) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, email, username, tempPassword, expiration)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Delivered = append(m.Delivered, email)
	return nil
}

// NoopTiming skips the authentication timing delay in tests.
type NoopTiming struct{}

func (NoopTiming) WaitFrom(time.Time, bool) {}

func testLoggers() (*slog.Logger, *pkglogger.AuditLogger) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logger, pkglogger.NewAuditLogger(logger)
}

// NewTestAccount builds an active account with a hashed password.
func NewTestAccount(username, email, passwordHash string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    "Test",
		LastName:     "User",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestAccountWithQuestion attaches a security question and answer hash.
func NewTestAccountWithQuestion(username, email, passwordHash, question, answerHash string) *models.Account {
	account := NewTestAccount(username, email, passwordHash)
	account.SecurityQuestion = &question
	account.SecurityAnswerHash = &answerHash
	return account
}
