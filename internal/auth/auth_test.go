package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"), "hash embeds algorithm and cost: %s", hash)
	assert.NotEqual(t, "pw1", hash)

	assert.True(t, CheckPasswordHash("pw1", hash))
	for _, wrong := range []string{"pw2", "Pw1", "pw", "pw1 ", ""} {
		assert.False(t, CheckPasswordHash(wrong, hash), "password %q must not verify", wrong)
	}

	again, err := HashPassword("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salts differ per hash")
}

func TestHashPasswordTooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNoopIssuer(t *testing.T) {
	session, err := NoopIssuer{}.Issue(1)
	require.NoError(t, err)
	assert.Nil(t, session)

	_, err = NoopIssuer{}.Validate("anything")
	assert.ErrorIs(t, err, ErrTokensDisabled)
}

func newTestKeys(t *testing.T) ([]byte, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	return privatePEM, publicPEM
}

func TestJWTIssuerRoundTrip(t *testing.T) {
	privatePEM, publicPEM := newTestKeys(t)
	issuer, err := NewJWTIssuer(privatePEM, publicPEM, time.Minute)
	require.NoError(t, err)

	session, err := issuer.Issue(42)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, time.Minute, session.ExpiresIn)

	claims, err := issuer.Validate(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)

	_, err = issuer.Validate(session.AccessToken + "x")
	assert.Error(t, err)
	_, err = issuer.Validate("")
	assert.Error(t, err)
}

func TestJWTIssuerRejectsForeignKey(t *testing.T) {
	privateA, publicA := newTestKeys(t)
	privateB, _ := newTestKeys(t)

	issuerA, err := NewJWTIssuer(privateA, publicA, time.Minute)
	require.NoError(t, err)
	issuerB, err := NewJWTIssuer(privateB, publicA, time.Minute)
	require.NoError(t, err)

	session, err := issuerB.Issue(1)
	require.NoError(t, err)
	_, err = issuerA.Validate(session.AccessToken)
	assert.Error(t, err)
}

func TestJWTIssuerExpired(t *testing.T) {
	privatePEM, publicPEM := newTestKeys(t)
	issuer, err := NewJWTIssuer(privatePEM, publicPEM, time.Minute)
	require.NoError(t, err)
	issuer.ttl = -time.Minute

	session, err := issuer.Issue(1)
	require.NoError(t, err)
	_, err = issuer.Validate(session.AccessToken)
	assert.Error(t, err)
}
