package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"maya@example.com",
		"first.last+tag@sub.domain.co",
	}
	for _, email := range valid {
		assert.NoError(t, ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"not-an-email",
		"missing@tld",
		"@no-local.com",
		strings.Repeat("a", 250) + "@x.com",
	}
	for _, email := range invalid {
		assert.Error(t, ValidateEmail(email), email)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword("abc"))
	assert.Error(t, ValidatePassword(strings.Repeat("a", 129)))
	assert.NoError(t, ValidatePassword("password123"))
}

func TestValidateName(t *testing.T) {
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("   "))
	assert.Error(t, ValidateName(strings.Repeat("a", 121)))
	assert.NoError(t, ValidateName("Maya Lindqvist"))
}
