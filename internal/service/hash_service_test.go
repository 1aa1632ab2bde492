package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Low cost keeps the suite fast; the encoding round-trips the same way at any
// cost setting.
func lightArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, MemoryKiB: 8 * 1024, Threads: 2}
}

func TestArgon2HashService_RoundTrip(t *testing.T) {
	svc := NewArgon2HashService(lightArgon2Params())

	hash, err := svc.Hash("SecureP@ssw0rd!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v="))

	match, err := svc.Verify("SecureP@ssw0rd!", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = svc.Verify("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestArgon2HashService_SaltVariesPerHash(t *testing.T) {
	svc := NewArgon2HashService(lightArgon2Params())

	hash1, err := svc.Hash("same-password")
	require.NoError(t, err)
	hash2, err := svc.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2, "each hash must carry a fresh salt")
}

func TestArgon2HashService_CostEncodedInHash(t *testing.T) {
	svc := NewArgon2HashService(Argon2Params{Time: 2, MemoryKiB: 16 * 1024, Threads: 2})

	hash, err := svc.Hash("tuned")
	require.NoError(t, err)
	assert.Contains(t, hash, "m=16384,t=2,p=2")
}

func TestArgon2HashService_ZeroParamsUseDefaults(t *testing.T) {
	svc := NewArgon2HashService(Argon2Params{})

	hash, err := svc.Hash("defaulted")
	require.NoError(t, err)
	assert.Contains(t, hash, "m=65536,t=1,p=4")
}

func TestArgon2HashService_VerifySurvivesCostRetune(t *testing.T) {
	old := NewArgon2HashService(lightArgon2Params())
	hash, err := old.Hash("kept-password")
	require.NoError(t, err)

	// A service running a new cost still verifies old credentials: the cost
	// comes from the hash, not the service.
	retuned := NewArgon2HashService(Argon2Params{Time: 3, MemoryKiB: 32 * 1024, Threads: 1})
	match, err := retuned.Verify("kept-password", hash)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestArgon2HashService_RejectsMalformedHashes(t *testing.T) {
	svc := NewArgon2HashService(lightArgon2Params())

	for _, encoded := range []string{
		"",
		"not-a-valid-hash",
		"$argon2i$v=19$m=8192,t=1,p=2$c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=2$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=2$c2FsdA",
		"$argon2id$v=19$m=8192,t=1,p=2$!!!$a2V5",
	} {
		_, err := svc.Verify("password", encoded)
		assert.Error(t, err, "encoded=%q", encoded)
	}
}

func TestArgon2HashService_EmptyAndLongPasswords(t *testing.T) {
	svc := NewArgon2HashService(lightArgon2Params())

	for _, password := range []string{"", strings.Repeat("a", 1000)} {
		hash, err := svc.Hash(password)
		require.NoError(t, err)

		match, err := svc.Verify(password, hash)
		require.NoError(t, err)
		assert.True(t, match)
	}
}
