package auth

import (
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// MinPasswordLength is the shortest password accepted at sign in
const MinPasswordLength = 6

// Credentials is a validated email/password pair
type Credentials struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// CredentialsPayload is implemented by request payloads carrying credentials
type CredentialsPayload interface {
	GetEmail() string
	GetPassword() string
}

// Validate will run validation rules
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.Email,
			validation.Required,
			is.EmailFormat,
		),
		validation.Field(
			&c.Password,
			validation.Required,
			validation.RuneLength(MinPasswordLength, 0),
		),
	)
}

// ParseCredentials turns an unchecked submission into Credentials. Any
// value that does not have the expected shape fails with ErrInvalidInput
// wrapped in a VerificationError.
func ParseCredentials(raw any) (Credentials, error) {
	creds, ok := credentialsFrom(raw)
	if !ok {
		return Credentials{}, invalidInput(nil)
	}

	creds.Email = normalizeEmail(creds.Email)

	if err := creds.Validate(); err != nil {
		return Credentials{}, invalidInput(err)
	}

	return creds, nil
}

func credentialsFrom(raw any) (Credentials, bool) {
	switch v := raw.(type) {
	case Credentials:
		return v, true
	case *Credentials:
		if v == nil {
			return Credentials{}, false
		}
		return *v, true
	case CredentialsPayload:
		return Credentials{Email: v.GetEmail(), Password: v.GetPassword()}, true
	case map[string]string:
		return Credentials{Email: v["email"], Password: v["password"]}, true
	case url.Values:
		return Credentials{Email: v.Get("email"), Password: v.Get("password")}, true
	case map[string]any:
		email, ok := v["email"].(string)
		if !ok {
			return Credentials{}, false
		}
		password, ok := v["password"].(string)
		if !ok {
			return Credentials{}, false
		}
		return Credentials{Email: email, Password: password}, true
	default:
		return Credentials{}, false
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
