package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/google/uuid"

	"casefile/internal/auth"
	"casefile/internal/models"
	"casefile/internal/services"
)

// MockAuthService implements AuthServiceInterface with overridable funcs.
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, username, password string) (*services.AuthResponse, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	LogoutFunc       func(ctx context.Context, accessToken string) error
	CheckLoginFunc   func(ctx context.Context, userID uuid.UUID) (string, error)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Logout(ctx context.Context, accessToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, accessToken)
	}
	return nil
}

func (m *MockAuthService) CheckLogin(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.CheckLoginFunc != nil {
		return m.CheckLoginFunc(ctx, userID)
	}
	return services.RedirectHome, nil
}

// MockRecoveryService implements RecoveryServiceInterface.
type MockRecoveryService struct {
	IdentifyFunc  func(ctx context.Context, username, email string) (*services.IdentifyResponse, error)
	ChallengeFunc func(ctx context.Context, token, answer string) error
	ResetFunc     func(ctx context.Context, token, password, confirm string) error
}

func (m *MockRecoveryService) Identify(ctx context.Context, username, email string) (*services.IdentifyResponse, error) {
	if m.IdentifyFunc != nil {
		return m.IdentifyFunc(ctx, username, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockRecoveryService) Challenge(ctx context.Context, token, answer string) error {
	if m.ChallengeFunc != nil {
		return m.ChallengeFunc(ctx, token, answer)
	}
	return models.ErrRecoveryExpired
}

func (m *MockRecoveryService) Reset(ctx context.Context, token, password, confirm string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, token, password, confirm)
	}
	return models.ErrRecoveryExpired
}

// MockAccountService implements AccountServiceInterface.
type MockAccountService struct {
	CreateFunc              func(ctx context.Context, input services.CreateAccountInput) (*services.CreatedAccount, error)
	ForceResetFunc          func(ctx context.Context, userID uuid.UUID, password, confirm string) (*services.AuthResponse, error)
	SetSecurityQuestionFunc func(ctx context.Context, userID uuid.UUID, question, answer string) (string, error)
}

func (m *MockAccountService) Create(ctx context.Context, input services.CreateAccountInput) (*services.CreatedAccount, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) ForceReset(ctx context.Context, userID uuid.UUID, password, confirm string) (*services.AuthResponse, error) {
	if m.ForceResetFunc != nil {
		return m.ForceResetFunc(ctx, userID, password, confirm)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) SetSecurityQuestion(ctx context.Context, userID uuid.UUID, question, answer string) (string, error) {
	if m.SetSecurityQuestionFunc != nil {
		return m.SetSecurityQuestionFunc(ctx, userID, question, answer)
	}
	return services.RedirectHome, nil
}

// MockPersonService implements PersonServiceInterface.
type MockPersonService struct {
	AddCriminalFunc     func(ctx context.Context, input services.AddCriminalInput) (*models.PersonWithLinks, error)
	SearchFunc          func(ctx context.Context, name string) ([]*models.Person, error)
	GetFunc             func(ctx context.Context, id uuid.UUID) (*models.PersonWithLinks, error)
	CategorizedViewFunc func(ctx context.Context, pages map[string]int) ([]services.CategoryPage, error)
	ClassViewFunc       func(ctx context.Context, categoryKey string, pages map[string]int) ([]services.ClassPage, error)
}

func (m *MockPersonService) AddCriminal(ctx context.Context, input services.AddCriminalInput) (*models.PersonWithLinks, error) {
	if m.AddCriminalFunc != nil {
		return m.AddCriminalFunc(ctx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPersonService) Search(ctx context.Context, name string) ([]*models.Person, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, name)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPersonService) Get(ctx context.Context, id uuid.UUID) (*models.PersonWithLinks, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPersonService) CategorizedView(ctx context.Context, pages map[string]int) ([]services.CategoryPage, error) {
	if m.CategorizedViewFunc != nil {
		return m.CategorizedViewFunc(ctx, pages)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPersonService) ClassView(ctx context.Context, categoryKey string, pages map[string]int) ([]services.ClassPage, error) {
	if m.ClassViewFunc != nil {
		return m.ClassViewFunc(ctx, categoryKey, pages)
	}
	return nil, models.ErrInternalServer
}

// MockImportService implements ImportServiceInterface.
type MockImportService struct {
	ImportCriminalsFunc func(ctx context.Context, r io.Reader) (*services.CriminalsResult, error)
	ImportUsersFunc     func(ctx context.Context, r io.Reader) (*services.UsersResult, error)
}

func (m *MockImportService) ImportCriminals(ctx context.Context, r io.Reader) (*services.CriminalsResult, error) {
	if m.ImportCriminalsFunc != nil {
		return m.ImportCriminalsFunc(ctx, r)
	}
	return nil, models.ErrInternalServer
}

func (m *MockImportService) ImportUsers(ctx context.Context, r io.Reader) (*services.UsersResult, error) {
	if m.ImportUsersFunc != nil {
		return m.ImportUsersFunc(ctx, r)
	}
	return nil, models.ErrInternalServer
}

// WithClaims stamps token claims onto the request context the same way the
// auth middleware does.
func WithClaims(r *http.Request, userID uuid.UUID) *http.Request {
	claims := &models.TokenClaims{UserID: userID.String(), Username: "tester"}
	ctx := context.WithValue(r.Context(), auth.UserContextKey, claims)
	return r.WithContext(ctx)
}

// DoRequest runs the handler against the request and captures the response.
func DoRequest(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, r)
	return rr
}
