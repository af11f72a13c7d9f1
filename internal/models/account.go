package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID                 uuid.UUID
	Username           string
	Email              string
	PasswordHash       string
	FirstName          string
	LastName           string
	Staff              bool
	Superuser          bool
	FirstLogin         bool // set until the forced first-login password reset completes
	SecurityQuestion   *string
	SecurityAnswerHash *string
	ExpirationDate     *time.Time // date precision; accounts past this date are swept
	PasswordChangedAt  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsExpired reports whether the account's expiration date has passed.
// The comparison is strictly greater-than on the calendar date: an account
// expiring today is still valid today.
func (a *Account) IsExpired(now time.Time) bool {
	if a.ExpirationDate == nil {
		return false
	}
	nowDate := truncateToDate(now)
	expDate := truncateToDate(*a.ExpirationDate)
	return nowDate.After(expDate)
}

// HasSecurityQuestion reports whether both the question and the hashed answer
// are set; the setup screen is skipped when they are.
func (a *Account) HasSecurityQuestion() bool {
	return a.SecurityQuestion != nil && *a.SecurityQuestion != "" &&
		a.SecurityAnswerHash != nil && *a.SecurityAnswerHash != ""
}

// NeedsForcedReset is the first-login gate decision: non-superusers who have
// not yet completed the forced reset are redirected into it.
func (a *Account) NeedsForcedReset() bool {
	return a.FirstLogin && !a.Superuser
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
