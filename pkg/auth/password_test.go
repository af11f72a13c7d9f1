package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashPassword_Success(t *testing.T) {
	hash, err := HashPassword("correct horse battery")

	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery", hash)
	assert.NoError(t, ComparePassword(hash, "correct horse battery"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")

	assert.Error(t, err)
}

func TestComparePassword_Wrong(t *testing.T) {
	hash, err := HashPassword("right-password")
	assert.NoError(t, err)

	assert.Error(t, ComparePassword(hash, "wrong-password"))
}

func TestSecurityAnswer_TrimsWhitespace(t *testing.T) {
	hash, err := HashSecurityAnswer("blue")
	assert.NoError(t, err)

	assert.NoError(t, CompareSecurityAnswer(hash, "blue"))
	assert.NoError(t, CompareSecurityAnswer(hash, "  blue  "))
}

func TestSecurityAnswer_CaseSensitive(t *testing.T) {
	hash, err := HashSecurityAnswer("blue")
	assert.NoError(t, err)

	assert.Error(t, CompareSecurityAnswer(hash, "Blue"))
}

func TestSecurityAnswer_HashedAtRest(t *testing.T) {
	hash, err := HashSecurityAnswer("  maiden name  ")
	assert.NoError(t, err)

	assert.NotContains(t, hash, "maiden name")
	assert.NoError(t, CompareSecurityAnswer(hash, "maiden name"))
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := GenerateTempPassword()

	assert.NoError(t, err)
	assert.Len(t, pw, TempPasswordLen)
	for _, r := range pw {
		assert.Contains(t, tempPasswordChars, string(r))
	}
}

func TestGenerateTempPassword_Varies(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		pw, err := GenerateTempPassword()
		assert.NoError(t, err)
		seen[pw] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestValidatePassword_TooShort(t *testing.T) {
	err := ValidatePassword("short1", nil)

	assert.Error(t, err)
	var ve *PasswordValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "at least 8 characters")
}

func TestValidatePassword_EntirelyNumeric(t *testing.T) {
	err := ValidatePassword("8675309112358", nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "entirely numeric")
}

func TestValidatePassword_Common(t *testing.T) {
	err := ValidatePassword("password123", nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "commonly used")
}

func TestValidatePassword_SimilarToIdentity(t *testing.T) {
	identity := []string{"jsmith", "jsmith@example.com", "Jane", "Smith"}

	err := ValidatePassword("jsmith2026", identity)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "too similar")

	err = ValidatePassword("MySmithereens9", identity)
	assert.Error(t, err)
}

func TestValidatePassword_Valid(t *testing.T) {
	identity := []string{"jsmith", "jsmith@example.com", "Jane", "Smith"}

	assert.NoError(t, ValidatePassword("tall ships at dawn 7", identity))
	assert.NoError(t, ValidatePassword("correct-horse-battery", nil))
}

func TestValidatePassword_TooLong(t *testing.T) {
	err := ValidatePassword(strings.Repeat("a", MaxPasswordLen+1), nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at most")
}
