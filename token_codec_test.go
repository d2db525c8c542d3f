package auth_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-signin"
)

var testIdentity = auth.Identity{
	ID:    "410544b2-4001-4271-9855-fec4b6a6442a",
	Name:  "User",
	Email: "user@nextmail.com",
}

func TestNewTokenCodec_ConfigurationFaults(t *testing.T) {
	_, err := auth.NewTokenCodec(nil, time.Hour)
	assert.ErrorIs(t, err, auth.ErrMissingSigningSecret)

	_, err = auth.NewTokenCodec([]byte{}, time.Hour)
	assert.ErrorIs(t, err, auth.ErrMissingSigningSecret)

	_, err = auth.NewTokenCodec(testSigningKey, 0)
	assert.ErrorIs(t, err, auth.ErrInvalidTokenTTL)

	_, err = auth.NewTokenCodec(testSigningKey, -time.Minute)
	assert.ErrorIs(t, err, auth.ErrInvalidTokenTTL)
}

func TestNewTokenCodecFromConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.issuer = "signin"
	cfg.audience = []string{"web"}

	codec, err := auth.NewTokenCodecFromConfig(cfg, auth.WithCodecClock(fixedClock(testNow)))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, codec.TTL())

	token, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "signin", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"web"}, claims.Audience)

	cfg.signingKey = ""
	_, err = auth.NewTokenCodecFromConfig(cfg)
	assert.ErrorIs(t, err, auth.ErrMissingSigningSecret)
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	token, issued, err := codec.Issue(testIdentity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, testNow, issued.IssuedAt())
	assert.Equal(t, testNow.Add(time.Hour), issued.Expires())
	assert.NotEmpty(t, issued.TokenID())

	claims, err := codec.Decode(token)
	require.NoError(t, err)

	assert.Equal(t, testIdentity, claims.Identity())
	assert.Equal(t, testIdentity.ID, claims.UserID())
	assert.Equal(t, testIdentity.ID, claims.Subject)
	assert.Equal(t, issued.TokenID(), claims.TokenID())
	assert.True(t, claims.Expires().Equal(testNow.Add(time.Hour)))
}

func TestTokenCodec_IssueRejectsEmptyIdentity(t *testing.T) {
	codec := newTestCodec(t)

	_, _, err := codec.Issue(auth.Identity{})
	assert.Error(t, err)
}

func TestTokenCodec_UniqueTokenIDs(t *testing.T) {
	codec := newTestCodec(t)

	first, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)
	second, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenCodec_PayloadCarriesNoSecrets(t *testing.T) {
	codec := newTestCodec(t)

	token, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	payload := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &payload))

	for key := range payload {
		assert.Contains(t, []string{"jti", "sub", "iat", "exp", "uid", "name", "email"}, key)
	}
	assert.NotContains(t, string(raw), "password")
}

func TestTokenCodec_Expired(t *testing.T) {
	codec := newTestCodec(t)

	token, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	later, err := auth.NewTokenCodec(testSigningKey, time.Hour,
		auth.WithCodecClock(fixedClock(testNow.Add(time.Hour+time.Second))))
	require.NoError(t, err)

	claims, err := later.Decode(token)
	assert.Nil(t, claims)
	assert.True(t, auth.IsTokenExpiredError(err))

	failure, ok := auth.DecodeFailureOf(err)
	require.True(t, ok)
	assert.Equal(t, auth.DecodeExpired, failure)
}

func TestTokenCodec_TamperedTokenIsBadSignature(t *testing.T) {
	codec := newTestCodec(t)

	token, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	signed := token[:strings.LastIndex(token, ".")]

	for i := 0; i < len(signed); i++ {
		replacements := []byte{'A'}
		if signed[i] == 'A' {
			replacements[0] = 'B'
		}
		if signed[i] != '.' {
			replacements = append(replacements, '.')
		}

		for _, replacement := range replacements {
			tampered := token[:i] + string(replacement) + token[i+1:]

			claims, err := codec.Decode(tampered)
			require.Nil(t, claims, "byte %d as %q", i, replacement)

			failure, ok := auth.DecodeFailureOf(err)
			require.True(t, ok, "byte %d as %q", i, replacement)
			require.Equal(t, auth.DecodeBadSignature, failure, "byte %d as %q", i, replacement)
		}
	}
}

func TestTokenCodec_NonCanonicalSignatureIsRejected(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	codec := newTestCodec(t)

	token, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	// a 32 byte signature leaves two unused bits in its last character
	last := strings.IndexByte(alphabet, token[len(token)-1])
	require.GreaterOrEqual(t, last, 0)

	for bits := 1; bits <= 3; bits++ {
		variant := token[:len(token)-1] + string(alphabet[last^bits])

		claims, err := codec.Decode(variant)
		assert.Nil(t, claims, "variant %q", variant)

		failure, ok := auth.DecodeFailureOf(err)
		require.True(t, ok, "variant %q", variant)
		assert.Equal(t, auth.DecodeMalformed, failure, "variant %q", variant)
	}
}

func TestTokenCodec_WrongKey(t *testing.T) {
	codec := newTestCodec(t)

	token, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	other, err := auth.NewTokenCodec([]byte("another-signing-key"), time.Hour,
		auth.WithCodecClock(fixedClock(testNow)))
	require.NoError(t, err)

	_, err = other.Decode(token)
	assert.ErrorIs(t, err, auth.ErrTokenBadSignature)
}

func TestTokenCodec_AbsentAndMalformed(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name     string
		token    string
		expected auth.DecodeFailure
	}{
		{name: "empty", token: "", expected: auth.DecodeAbsent},
		{name: "whitespace", token: "   ", expected: auth.DecodeAbsent},
		{name: "garbage", token: "not-a-token", expected: auth.DecodeMalformed},
		{name: "two segments with undecodable signature", token: "abc.def", expected: auth.DecodeMalformed},
		{name: "two segments with decodable signature", token: "abc.AAAA", expected: auth.DecodeBadSignature},
		{name: "four segments", token: "a.b.c.d", expected: auth.DecodeMalformed},
		{name: "nothing signed", token: ".AAAA", expected: auth.DecodeMalformed},
		{name: "empty signature", token: "abc.def.", expected: auth.DecodeMalformed},
		{name: "bad signature encoding", token: "abc.def.!!!", expected: auth.DecodeMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := codec.Decode(tt.token)
			assert.Nil(t, claims)

			failure, ok := auth.DecodeFailureOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.expected, failure)
		})
	}
}

func TestTokenCodec_SignedGarbageIsMalformed(t *testing.T) {
	codec := newTestCodec(t)

	// validly signed but the payload is not JSON
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`not json`))
	signingString := header + "." + payload

	sig, err := jwt.SigningMethodHS256.Sign(signingString, testSigningKey)
	require.NoError(t, err)

	_, err = codec.Decode(signingString + "." + base64.RawURLEncoding.EncodeToString(sig))
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenCodec_MissingSubjectIsMalformed(t *testing.T) {
	codec := newTestCodec(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": testNow.Add(time.Hour).Unix(),
	}).SignedString(testSigningKey)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, auth.ErrTokenMalformed)
}

func TestTokenCodec_MissingExpiryIsMalformed(t *testing.T) {
	codec := newTestCodec(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": testIdentity.ID,
	}).SignedString(testSigningKey)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, auth.ErrTokenMalformed)
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec := newTestCodec(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": testIdentity.ID,
		"exp": testNow.Add(time.Hour).Unix(),
	}).SignedString(testSigningKey)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.Error(t, err)
}

func TestTokenCodec_IssuerMismatch(t *testing.T) {
	issuing := newTestCodec(t, auth.WithIssuer("other"))
	token, _, err := issuing.Issue(testIdentity)
	require.NoError(t, err)

	codec := newTestCodec(t, auth.WithIssuer("signin"))
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, auth.ErrTokenMalformed)
}

func TestTokenCodec_AudienceMismatch(t *testing.T) {
	issuing := newTestCodec(t, auth.WithAudience("mobile"))
	token, _, err := issuing.Issue(testIdentity)
	require.NoError(t, err)

	codec := newTestCodec(t, auth.WithAudience("web"))
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, auth.ErrTokenMalformed)
}
