package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("superadmin.john@techcorp.com"))
	assert.False(t, IsValidEmail("john"))
	assert.False(t, IsValidEmail("john@localhost"))
	assert.False(t, IsValidEmail(""))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "mike@techcorp.com", NormalizeEmail("  Mike@TechCorp.com "))
}
