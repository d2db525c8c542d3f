package auth

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidInput         = "INVALID_INPUT"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeTokenBadSignature    = "TOKEN_BAD_SIGNATURE"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenAbsent          = "TOKEN_ABSENT"
	TextCodeMissingSigningSecret = "MISSING_SIGNING_SECRET"
	TextCodeInvalidTokenTTL      = "INVALID_TOKEN_TTL"
	TextCodeUserNotFound         = "USER_NOT_FOUND"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
)

var (
	// ErrInvalidInput submitted credentials do not have the expected shape
	ErrInvalidInput = errors.New("invalid credentials input", errors.CategoryValidation).
			WithTextCode(TextCodeInvalidInput).
			WithCode(http.StatusBadRequest)

	// ErrInvalidCredentials is the single outcome for unknown accounts and
	// wrong passwords
	ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
				WithTextCode(TextCodeInvalidCredentials).
				WithCode(http.StatusUnauthorized)

	// ErrTokenMalformed token could not be decoded
	ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
				WithTextCode(TextCodeTokenMalformed).
				WithCode(http.StatusUnauthorized)

	// ErrTokenBadSignature token integrity proof does not match
	ErrTokenBadSignature = errors.New("token signature is invalid", errors.CategoryAuth).
				WithTextCode(TextCodeTokenBadSignature).
				WithCode(http.StatusUnauthorized)

	// ErrTokenExpired token is past its expiration time
	ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
			WithTextCode(TextCodeTokenExpired).
			WithCode(http.StatusUnauthorized)

	// ErrTokenAbsent no token was presented
	ErrTokenAbsent = errors.New("token is absent", errors.CategoryAuth).
			WithTextCode(TextCodeTokenAbsent).
			WithCode(http.StatusUnauthorized)

	// ErrMissingSigningSecret the process has no signing secret configured
	ErrMissingSigningSecret = errors.New("signing secret is required", errors.CategoryInternal).
				WithTextCode(TextCodeMissingSigningSecret).
				WithCode(http.StatusInternalServerError)

	// ErrInvalidTokenTTL token TTL must be a positive duration
	ErrInvalidTokenTTL = errors.New("token TTL must be positive", errors.CategoryInternal).
				WithTextCode(TextCodeInvalidTokenTTL).
				WithCode(http.StatusInternalServerError)

	// ErrUserNotFound no user record matches the lookup
	ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
			WithTextCode(TextCodeUserNotFound).
			WithCode(http.StatusNotFound)

	// ErrNoEmptyString password must not be empty
	ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
				WithTextCode(TextCodeEmptyPassword).
				WithCode(http.StatusBadRequest)

	// ErrMismatchedHashAndPassword password does not match digest
	ErrMismatchedHashAndPassword = errors.New("password does not match hash", errors.CategoryAuth).
					WithTextCode(TextCodeInvalidCredentials).
					WithCode(http.StatusUnauthorized)
)

// VerificationFailure is the externally observable outcome of a failed
// credential verification.
type VerificationFailure int

const (
	FailureInvalidInput VerificationFailure = iota + 1
	FailureInvalidCredentials
)

func (f VerificationFailure) String() string {
	switch f {
	case FailureInvalidInput:
		return "invalid_input"
	case FailureInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

// VerificationCause records why verification failed. It is for logging
// and failure mapping inside the process only.
type VerificationCause string

const (
	CauseMalformedInput   VerificationCause = "malformed_input"
	CauseUnknownAccount   VerificationCause = "unknown_account"
	CauseMissingDigest    VerificationCause = "missing_digest"
	CausePasswordMismatch VerificationCause = "password_mismatch"
	CauseStoreFailure     VerificationCause = "store_failure"
)

// VerificationError is returned by CredentialVerifier.Verify
type VerificationError struct {
	Failure VerificationFailure
	Cause   VerificationCause
	Err     error
}

func (e *VerificationError) Error() string {
	if e.Failure == FailureInvalidInput {
		return ErrInvalidInput.Message
	}
	return ErrInvalidCredentials.Message
}

// Unwrap exposes the public sentinel so errors.Is works against
// ErrInvalidInput or ErrInvalidCredentials. The underlying cause is
// intentionally not part of the chain.
func (e *VerificationError) Unwrap() error {
	if e.Failure == FailureInvalidInput {
		return ErrInvalidInput
	}
	return ErrInvalidCredentials
}

// Internal returns the underlying error for server side logging
func (e *VerificationError) Internal() error {
	return e.Err
}

// IsStoreFailure reports whether the store could not answer the lookup
func (e *VerificationError) IsStoreFailure() bool {
	return e.Cause == CauseStoreFailure
}

func invalidInput(err error) *VerificationError {
	return &VerificationError{Failure: FailureInvalidInput, Cause: CauseMalformedInput, Err: err}
}

func invalidCredentials(cause VerificationCause, err error) *VerificationError {
	return &VerificationError{Failure: FailureInvalidCredentials, Cause: cause, Err: err}
}

// DecodeFailure enumerates the ways a presented token can be rejected
type DecodeFailure int

const (
	DecodeMalformed DecodeFailure = iota + 1
	DecodeBadSignature
	DecodeExpired
	DecodeAbsent
)

func (f DecodeFailure) String() string {
	switch f {
	case DecodeMalformed:
		return "malformed"
	case DecodeBadSignature:
		return "bad_signature"
	case DecodeExpired:
		return "expired"
	case DecodeAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

func (f DecodeFailure) sentinel() *errors.Error {
	switch f {
	case DecodeBadSignature:
		return ErrTokenBadSignature
	case DecodeExpired:
		return ErrTokenExpired
	case DecodeAbsent:
		return ErrTokenAbsent
	default:
		return ErrTokenMalformed
	}
}

// DecodeError is returned by TokenCodec.Decode
type DecodeError struct {
	Failure DecodeFailure
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Failure.sentinel().Message, e.Err)
	}
	return e.Failure.sentinel().Message
}

func (e *DecodeError) Unwrap() error {
	return e.Failure.sentinel()
}

func decodeFailure(f DecodeFailure, err error) *DecodeError {
	return &DecodeError{Failure: f, Err: err}
}

// DecodeFailureOf extracts the decode failure from err
func DecodeFailureOf(err error) (DecodeFailure, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Failure, true
	}
	return 0, false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

// IsMalformedError will check for tokens that could not be decoded
func IsMalformedError(err error) bool {
	return errors.Is(err, ErrTokenMalformed)
}
