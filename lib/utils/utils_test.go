package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("ana@example.com"))
	assert.True(t, ValidateEmail("Ana.Perez+fit@mail.example.org"))
	assert.False(t, ValidateEmail("ana@"))
	assert.False(t, ValidateEmail("ana.example.com"))
	assert.False(t, ValidateEmail(""))
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("abcdefg1"))
	assert.False(t, ValidatePassword("abc1"))
	assert.False(t, ValidatePassword("abcdefgh"))
	assert.False(t, ValidatePassword("12345678"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
}

func TestErrorBanner(t *testing.T) {
	assert.Equal(t, "==============\n= ERROR: bad =\n==============\n\n", ErrorBanner("bad"))
}
