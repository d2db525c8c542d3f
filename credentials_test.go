package auth_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-signin"
)

func TestParseCredentials(t *testing.T) {
	tests := []struct {
		name  string
		raw   any
		email string
	}{
		{"struct", auth.Credentials{Email: "user@nextmail.com", Password: "123456"}, "user@nextmail.com"},
		{"pointer", &auth.Credentials{Email: "user@nextmail.com", Password: "123456"}, "user@nextmail.com"},
		{"payload", auth.LoginRequest{Email: "user@nextmail.com", Password: "123456"}, "user@nextmail.com"},
		{"string map", map[string]string{"email": "user@nextmail.com", "password": "123456"}, "user@nextmail.com"},
		{"any map", map[string]any{"email": "user@nextmail.com", "password": "123456"}, "user@nextmail.com"},
		{"form", url.Values{"email": {"user@nextmail.com"}, "password": {"123456"}}, "user@nextmail.com"},
		{"normalized", map[string]string{"email": "  User@NextMail.com ", "password": "123456"}, "user@nextmail.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := auth.ParseCredentials(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.email, creds.Email)
			assert.Equal(t, "123456", creds.Password)
		})
	}
}

func TestParseCredentials_InvalidInput(t *testing.T) {
	var nilCreds *auth.Credentials

	tests := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"nil pointer", nilCreds},
		{"string", "user@nextmail.com:123456"},
		{"number", 42},
		{"missing email", map[string]string{"password": "123456"}},
		{"missing password", map[string]string{"email": "user@nextmail.com"}},
		{"not an email", map[string]string{"email": "user", "password": "123456"}},
		{"short password", map[string]string{"email": "user@nextmail.com", "password": "12345"}},
		{"email not a string", map[string]any{"email": 1, "password": "123456"}},
		{"password not a string", map[string]any{"email": "user@nextmail.com", "password": 123456}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ParseCredentials(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrInvalidInput)

			var ve *auth.VerificationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, auth.FailureInvalidInput, ve.Failure)
			assert.Equal(t, auth.CauseMalformedInput, ve.Cause)
		})
	}
}

func TestParseCredentials_PasswordLengthCountsRunes(t *testing.T) {
	_, err := auth.ParseCredentials(map[string]string{"email": "user@nextmail.com", "password": "ééééé"})
	assert.Error(t, err)

	_, err = auth.ParseCredentials(map[string]string{"email": "user@nextmail.com", "password": "éééééé"})
	assert.NoError(t, err)
}
