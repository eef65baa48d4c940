package keypath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"a"}, Split("a"))
	assert.Equal(t, []string{"accounts", "accountInternalId"}, Split("accounts.accountInternalId"))
	assert.Equal(t, []string{"a", "", "b"}, Split("a..b"))
}

func TestValidate(t *testing.T) {
	valid := []string{"a", "a.b", "accounts.accountInternalId", "x-y.z_1"}
	for _, p := range valid {
		assert.NoError(t, Validate(p), p)
	}

	invalid := []string{"", ".", "a.", ".a", "a..b"}
	for _, p := range invalid {
		assert.Error(t, Validate(p), p)
	}
}
