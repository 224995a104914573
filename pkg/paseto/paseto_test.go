package pasetotoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, keys Keys) *Manager {
	t.Helper()
	m, err := New(Config{Mode: keys.Mode, Issuer: "simorq", Audience: "simorq-queue", AccessTTL: time.Minute}, keys)
	require.NoError(t, err)
	return m
}

func TestIssueAndVerify(t *testing.T) {
	for _, keys := range []Keys{NewLocalKeys(), NewPublicKeys()} {
		t.Run(string(keys.Mode), func(t *testing.T) {
			m := newManager(t, keys)

			tok, err := m.Issue("staff-42", "staff")
			require.NoError(t, err)

			claims, err := m.Verify(tok)
			require.NoError(t, err)
			assert.Equal(t, "staff-42", claims.Subject)
			assert.Equal(t, "staff", claims.Role)
			assert.Equal(t, TokenTypeAccess, claims.Type)
			assert.False(t, claims.IsExpired())
		})
	}
}

func TestVerifyOnlyPublicKey(t *testing.T) {
	signer := newManager(t, NewPublicKeys())
	tok, err := signer.Issue("admin-1", "admin")
	require.NoError(t, err)

	pub := signer.keys.Hex()
	keys, err := LoadKeys(KeyStrings{Mode: ModePublic, PublicHex: pub.PublicHex})
	require.NoError(t, err)
	verifier := newManager(t, keys)

	claims, err := verifier.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	_, err = verifier.Issue("x", "admin")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestVerifyRejects(t *testing.T) {
	m := newManager(t, NewLocalKeys())
	other := newManager(t, NewLocalKeys())

	tok, err := other.Issue("s", "viewer")
	require.NoError(t, err)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("garbage")
	assert.Error(t, err)

	wrongAud, err := New(Config{Mode: ModeLocal, Issuer: "simorq", Audience: "other"}, m.keys)
	require.NoError(t, err)
	tok, err = wrongAud.Issue("s", "viewer")
	require.NoError(t, err)
	_, err = m.Verify(tok)
	assert.Error(t, err)
}

func TestLoadKeys(t *testing.T) {
	_, err := LoadKeys(KeyStrings{Mode: ModeLocal})
	assert.Error(t, err)

	_, err = LoadKeys(KeyStrings{Mode: "weird"})
	assert.Error(t, err)

	local := NewLocalKeys().Hex()
	keys, err := LoadKeys(local)
	require.NoError(t, err)
	assert.NotNil(t, keys.Symmetric)

	_, err = LoadKeys(KeyStrings{Mode: ModePublic, SecretHex: "zz"})
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "secret_key_hex")
}

func TestLoadKeys_SecretDerivesPublic(t *testing.T) {
	pair := NewPublicKeys().Hex()
	keys, err := LoadKeys(KeyStrings{Mode: ModePublic, SecretHex: pair.SecretHex})
	require.NoError(t, err)
	require.NotNil(t, keys.Public)
	assert.Equal(t, pair.PublicHex, keys.Public.ExportHex())
	assert.True(t, keys.CanIssue())
	assert.True(t, keys.CanVerify())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Public ")
	require.NoError(t, err)
	assert.Equal(t, ModePublic, m)

	_, err = ParseMode("v3")
	assert.ErrorIs(t, err, ErrConfig)

	_, err = GenerateKeys("v3")
	assert.ErrorIs(t, err, ErrConfig)

	keys, err := GenerateKeys(ModeLocal)
	require.NoError(t, err)
	assert.True(t, keys.CanIssue())
}

func TestVerifyOnlyKeysCannotIssue(t *testing.T) {
	pub := NewPublicKeys().Hex()
	keys, err := LoadKeys(KeyStrings{Mode: ModePublic, PublicHex: pub.PublicHex})
	require.NoError(t, err)
	assert.False(t, keys.CanIssue())
	assert.True(t, keys.CanVerify())

	m := newManager(t, keys)
	_, err = m.Issue("staff-1", "staff")
	assert.ErrorIs(t, err, ErrConfig)
}
