package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 14
	MinPasswordLen = 8
	MaxPasswordLen = 128

	TempPasswordLen   = 6
	tempPasswordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// PasswordValidationError holds the individual policy violations so handlers
// can surface the specific messages next to the field.
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return strings.Join(e.Errors, "; ")
}

// Common weak passwords to reject
var commonPasswords = map[string]bool{
	"password":     true,
	"12345678":     true,
	"qwerty":       true,
	"qwertyuiop":   true,
	"abc123":       true,
	"password1":    true,
	"password123":  true,
	"123456":       true,
	"123456789":    true,
	"admin":        true,
	"letmein":      true,
	"welcome":      true,
	"monkey":       true,
	"dragon":       true,
	"master":       true,
	"123123":       true,
	"passw0rd":     true,
	"shadow":       true,
	"sunshine":     true,
	"princess":     true,
	"starwars":     true,
	"football":     true,
	"baseball":     true,
	"trustno1":     true,
	"iloveyou":     true,
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// HashSecurityAnswer hashes a security-question answer. Surrounding whitespace
// is trimmed before hashing so " blue " and "blue" verify the same; case is
// preserved, so "Blue" does not.
func HashSecurityAnswer(answer string) (string, error) {
	return HashPassword(strings.TrimSpace(answer))
}

// CompareSecurityAnswer verifies a raw answer against the stored hash,
// trimming surrounding whitespace from the input first.
func CompareSecurityAnswer(hashedAnswer, answer string) error {
	return ComparePassword(hashedAnswer, strings.TrimSpace(answer))
}

// GenerateTempPassword returns a random temporary password of letters and
// digits for bulk-created accounts. The plaintext is never stored; the import
// manifest is its only record.
func GenerateTempPassword() (string, error) {
	chars := make([]byte, TempPasswordLen)
	max := big.NewInt(int64(len(tempPasswordChars)))
	for i := range chars {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate temp password: %w", err)
		}
		chars[i] = tempPasswordChars[n.Int64()]
	}
	return string(chars), nil
}

// ValidatePassword enforces the password policy: minimum length, not too
// similar to the account's identifying attributes, not entirely numeric, and
// not a commonly used password. identity carries the username, email, and
// names of the account the password is for; pass nil when no account context
// exists.
func ValidatePassword(password string, identity []string) error {
	errs := make([]string, 0)

	if len(password) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	if isEntirelyNumeric(password) {
		errs = append(errs, "must not be entirely numeric")
	}

	if commonPasswords[strings.ToLower(password)] {
		errs = append(errs, "is too commonly used")
	}

	if tooSimilarToIdentity(password, identity) {
		errs = append(errs, "is too similar to your account information")
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}

	return nil
}

func isEntirelyNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// tooSimilarToIdentity rejects passwords that contain, or are contained in,
// any identity attribute (username, email and its local part, first/last
// name), compared case-insensitively. Attributes shorter than 4 characters
// are skipped to avoid rejecting on incidental substrings.
func tooSimilarToIdentity(password string, identity []string) bool {
	lower := strings.ToLower(password)
	for _, attr := range identity {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if len(attr) < 4 {
			continue
		}
		if strings.Contains(lower, attr) || strings.Contains(attr, lower) {
			return true
		}
		// Also check the local part of email-like attributes.
		if at := strings.IndexByte(attr, '@'); at >= 4 {
			local := attr[:at]
			if strings.Contains(lower, local) || strings.Contains(local, lower) {
				return true
			}
		}
	}
	return false
}
