package security_test

import (
	"strings"
	"testing"

	"github.com/dimasprayoga/tokopos-backend/pkg/config"
	"github.com/dimasprayoga/tokopos-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() config.PasswordConfig {
	// Low-cost parameters keep the test fast; clamping still applies.
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	encoded, err := security.HashPassword("kasir-rahasia", testParams())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := security.VerifyPassword("kasir-rahasia", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	t.Parallel()

	_, err := security.HashPassword("", testParams())
	assert.Error(t, err)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	t.Parallel()

	_, err := security.VerifyPassword("x", "not-a-hash")
	assert.ErrorIs(t, err, security.ErrInvalidHash)
}
