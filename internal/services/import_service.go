package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"casefile/internal/models"
	pkgauth "casefile/pkg/auth"
	pkglogger "casefile/pkg/logger"
)

// ImportStore is the transactional storage surface for bulk imports. Run
// executes fn inside one transaction; every row of a file commits or none do.
type ImportStore interface {
	Run(ctx context.Context, fn func(tx ImportTx) error) error
}

// ImportTx exposes the writes available inside an import transaction.
type ImportTx interface {
	CreatePerson(ctx context.Context, person *models.Person) (*models.Person, error)
	GetOrCreateOffense(ctx context.Context, j models.Jurisdiction, offense *models.Offense) (*models.Offense, error)
	CreateLink(ctx context.Context, link *models.OffenseLink) (*models.OffenseLink, error)
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)
}

// ImportService loads criminal records and user accounts from CSV files.
type ImportService struct {
	store       ImportStore
	mailer      CredentialMailer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewImportService(store ImportStore, mailer CredentialMailer, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *ImportService {
	return &ImportService{
		store:       store,
		mailer:      mailer,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

var criminalsHeader = []string{"first_name", "last_name", "offense_type", "offense_class", "description", "offense_source"}

var usersHeader = []string{"first_name", "last_name", "email", "expiration_date"}

// CriminalsResult summarizes a criminal-records import.
type CriminalsResult struct {
	PersonsCreated int `json:"persons_created"`
	LinksCreated   int `json:"links_created"`
	RowsSkipped    int `json:"rows_skipped"`
}

// ImportCriminals reads the criminals CSV and stores every valid row within
// one transaction. Consecutive rows naming the same person attach additional
// offenses to that person instead of creating duplicates. Rows with an
// unknown source or an invalid type/class pairing are skipped, not fatal.
func (s *ImportService) ImportCriminals(ctx context.Context, r io.Reader) (*CriminalsResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if err := expectHeader(reader, criminalsHeader); err != nil {
		return nil, err
	}

	result := &CriminalsResult{}
	err := s.store.Run(ctx, func(tx ImportTx) error {
		var prev *models.Person
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w: malformed CSV: %v", models.ErrBadRequest, err)
			}

			if len(row) != len(criminalsHeader) {
				result.RowsSkipped++
				continue
			}

			firstName := strings.TrimSpace(row[0])
			lastName := strings.TrimSpace(row[1])
			offenseType := models.OffenseType(strings.TrimSpace(row[2]))
			class := strings.TrimSpace(row[3])
			description := strings.TrimSpace(row[4])
			source := strings.TrimSpace(row[5])

			if firstName == "" || lastName == "" {
				result.RowsSkipped++
				continue
			}

			jurisdiction, err := models.ParseJurisdiction(source)
			if err != nil {
				result.RowsSkipped++
				continue
			}
			if !models.ValidOffense(jurisdiction, offenseType, class) {
				result.RowsSkipped++
				continue
			}

			person := prev
			if person == nil || !strings.EqualFold(person.FirstName, firstName) || !strings.EqualFold(person.LastName, lastName) {
				person, err = tx.CreatePerson(ctx, &models.Person{FirstName: firstName, LastName: lastName})
				if err != nil {
					return err
				}
				result.PersonsCreated++
			}
			prev = person

			offense, err := tx.GetOrCreateOffense(ctx, jurisdiction, &models.Offense{
				Type:        offenseType,
				Class:       class,
				Description: description,
			})
			if err != nil {
				return err
			}

			if _, err := tx.CreateLink(ctx, &models.OffenseLink{
				PersonID:     person.ID,
				Jurisdiction: jurisdiction,
				Offense:      offense,
			}); err != nil {
				return err
			}
			result.LinksCreated++
		}
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, err
		}
		s.logger.Error("criminal import failed", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("criminal records imported",
		slog.Int("persons", result.PersonsCreated),
		slog.Int("links", result.LinksCreated),
		slog.Int("skipped", result.RowsSkipped))
	return result, nil
}

// UsersResult carries the provisioning manifest for a user import. The
// manifest CSV is the only place the temporary passwords ever appear.
type UsersResult struct {
	AccountsCreated int
	RowsSkipped     int
	Manifest        []byte
}

// ImportUsers provisions one account per CSV row inside a single
// transaction. Usernames default to the email's local part; each account
// gets a generated temporary password and the first-login flag. The returned
// manifest lists the credentials for distribution.
func (s *ImportService) ImportUsers(ctx context.Context, r io.Reader) (*UsersResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if err := expectHeader(reader, usersHeader); err != nil {
		return nil, err
	}

	var manifest bytes.Buffer
	writer := csv.NewWriter(&manifest)
	if err := writer.Write([]string{"first_name", "last_name", "email", "username", "temporary_password"}); err != nil {
		return nil, models.ErrInternalServer
	}

	type provisioned struct {
		email        string
		username     string
		tempPassword string
		expiration   *time.Time
	}
	var created []provisioned

	result := &UsersResult{}
	err := s.store.Run(ctx, func(tx ImportTx) error {
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w: malformed CSV: %v", models.ErrBadRequest, err)
			}

			if len(row) != len(usersHeader) {
				result.RowsSkipped++
				continue
			}

			firstName := strings.TrimSpace(row[0])
			lastName := strings.TrimSpace(row[1])
			email := strings.ToLower(strings.TrimSpace(row[2]))
			expirationRaw := strings.TrimSpace(row[3])

			if email == "" || !strings.Contains(email, "@") {
				result.RowsSkipped++
				continue
			}

			var expiration *time.Time
			if expirationRaw != "" {
				parsed, err := time.Parse("2006-01-02", expirationRaw)
				if err != nil {
					result.RowsSkipped++
					continue
				}
				expiration = &parsed
			}

			username := UsernameFromEmail(email)
			tempPassword, err := pkgauth.GenerateTempPassword()
			if err != nil {
				return err
			}
			hash, err := pkgauth.HashPassword(tempPassword)
			if err != nil {
				return err
			}

			account, err := tx.CreateAccount(ctx, &models.Account{
				Username:       username,
				Email:          email,
				PasswordHash:   hash,
				FirstName:      firstName,
				LastName:       lastName,
				FirstLogin:     true,
				ExpirationDate: expiration,
			})
			if err != nil {
				return err
			}

			if err := writer.Write([]string{firstName, lastName, email, username, tempPassword}); err != nil {
				return err
			}
			created = append(created, provisioned{
				email: email, username: username, tempPassword: tempPassword, expiration: expiration,
			})
			result.AccountsCreated++

			s.auditLogger.LogAccountAction("account_created", account.ID.String(), "", map[string]string{
				"username": username,
				"source":   "bulk_import",
			})
		}
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, err
		}
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("user import failed", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Emails go out only after the transaction commits.
	if s.mailer != nil {
		for _, p := range created {
			if err := s.mailer.SendCredentials(ctx, p.email, p.username, p.tempPassword, p.expiration); err != nil {
				s.logger.Warn("failed to send credentials email", slog.Any("error", err))
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, models.ErrInternalServer
	}
	result.Manifest = manifest.Bytes()

	s.logger.Info("user accounts imported",
		slog.Int("accounts", result.AccountsCreated),
		slog.Int("skipped", result.RowsSkipped))
	return result, nil
}

func expectHeader(reader *csv.Reader, want []string) error {
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("%w: missing CSV header", models.ErrBadHeader)
	}
	if len(header) != len(want) {
		return fmt.Errorf("%w: expected header %q", models.ErrBadHeader, strings.Join(want, ","))
	}
	for i, col := range want {
		if strings.TrimSpace(strings.ToLower(header[i])) != col {
			return fmt.Errorf("%w: expected header %q", models.ErrBadHeader, strings.Join(want, ","))
		}
	}
	return nil
}
