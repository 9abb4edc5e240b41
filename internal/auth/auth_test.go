package auth

import (
	"strings"
	"testing"
	"time"

	"poetportal/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast; the format is unchanged
var testHasher = NewHasher(Params{N: 1024, R: 8, P: 1, KeyLen: 32, SaltLen: 16})

func TestHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, password := range []string{"quill4verse", "ünïcödé-pässwörd-1", strings.Repeat("x", 128)} {
		first, err := testHasher.Hash(password)
		require.NoError(t, err)
		second, err := testHasher.Hash(password)
		require.NoError(t, err)

		assert.NotEqual(t, first, second, "distinct salts must give distinct digests")

		ok, err := testHasher.Verify(password, first)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = testHasher.Verify(password, second)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = testHasher.Verify(password+"!", first)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestHasher_DigestFormat(t *testing.T) {
	t.Parallel()

	digest, err := testHasher.Hash("quill4verse")
	require.NoError(t, err)

	derived, salt, ok := strings.Cut(digest, ".")
	require.True(t, ok)
	assert.Len(t, derived, 64)
	assert.Len(t, salt, 32)
}

func TestHasher_MalformedDigest(t *testing.T) {
	t.Parallel()

	for _, digest := range []string{"", "nodot", "zz.00", "00.zz", ".abcd", "abcd."} {
		_, err := testHasher.Verify("pw", digest)
		assert.ErrorIs(t, err, ErrMalformedDigest, digest)
	}
}

func TestDefaultHasher(t *testing.T) {
	digest, err := HashPassword("quill4verse")
	require.NoError(t, err)
	ok, err := VerifyPassword("quill4verse", digest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIssuer_IssueAndValidate(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer("a-test-secret-that-is-long-enough!!", 0)
	user := &models.User{ID: 42, Username: "alice", IsAdmin: true}

	token, expiresAt, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	identity, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), identity.UserID)
	assert.Equal(t, "alice", identity.Username)
	assert.True(t, identity.IsAdmin)
	assert.NotEmpty(t, identity.TokenID)
}

func TestIssuer_Expired(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer("a-test-secret-that-is-long-enough!!", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := issuer.Issue(&models.User{ID: 1, Username: "bob"})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestIssuer_InvalidTokens(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer("a-test-secret-that-is-long-enough!!", 0)
	token, _, err := issuer.Issue(&models.User{ID: 1, Username: "bob"})
	require.NoError(t, err)

	t.Run("malformed", func(t *testing.T) {
		_, err := issuer.Validate("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("rotated secret", func(t *testing.T) {
		rotated := NewIssuer("another-secret-that-is-long-enough!", 0)
		_, err := rotated.Validate(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{"someone-else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.secret)
		require.NoError(t, err)
		_, err = issuer.Validate(forged)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "1",
			Issuer:   TokenIssuer,
			Audience: jwt.ClaimStrings{TokenAudience},
		}}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.secret)
		require.NoError(t, err)
		_, err = issuer.Validate(forged)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("empty secret cannot issue", func(t *testing.T) {
		_, _, err := NewIssuer("", 0).Issue(&models.User{ID: 1})
		assert.Error(t, err)
	})
}
