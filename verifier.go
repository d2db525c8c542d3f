package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultLookupTimeout bounds a single store lookup during sign in
const DefaultLookupTimeout = 5 * time.Second

// CredentialVerifier checks submitted credentials against the store.
// Every failure is returned as a *VerificationError.
type CredentialVerifier struct {
	finder        UserFinder
	passwords     PasswordVerifier
	lookupTimeout time.Duration
	logger        Logger
	provider      LoggerProvider
}

// VerifierOption configures a CredentialVerifier
type VerifierOption func(*CredentialVerifier)

// WithPasswordVerifier overrides the digest comparison capability
func WithPasswordVerifier(p PasswordVerifier) VerifierOption {
	return func(v *CredentialVerifier) {
		if p != nil {
			v.passwords = p
		}
	}
}

// WithLookupTimeout bounds the store lookup. Zero disables the bound.
func WithLookupTimeout(d time.Duration) VerifierOption {
	return func(v *CredentialVerifier) {
		v.lookupTimeout = d
	}
}

// WithVerifierLogger sets the logger
func WithVerifierLogger(l Logger) VerifierOption {
	return func(v *CredentialVerifier) {
		if l != nil {
			v.provider, v.logger = ResolveLogger("auth.verifier", nil, l)
		}
	}
}

// WithVerifierLoggerProvider sets the logger provider
func WithVerifierLoggerProvider(p LoggerProvider) VerifierOption {
	return func(v *CredentialVerifier) {
		v.provider, v.logger = ResolveLogger("auth.verifier", p, v.logger)
	}
}

// NewCredentialVerifier returns a verifier reading from finder
func NewCredentialVerifier(finder UserFinder, opts ...VerifierOption) *CredentialVerifier {
	provider, logger := ResolveLogger("auth.verifier", nil, nil)
	v := &CredentialVerifier{
		finder:        finder,
		passwords:     BcryptHasher{},
		lookupTimeout: DefaultLookupTimeout,
		logger:        logger,
		provider:      provider,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	return v
}

// Verify validates raw, looks the account up and checks the password.
// Unknown accounts, missing digests, wrong passwords and store failures
// all fail with FailureInvalidCredentials; the Cause tells them apart.
// Every outcome other than a store failure runs one digest comparison.
func (v *CredentialVerifier) Verify(ctx context.Context, raw any) (Identity, error) {
	creds, err := ParseCredentials(raw)
	if err != nil {
		v.logger.Debug("credentials rejected before lookup", "error", err)
		return Identity{}, err
	}

	if v.finder == nil {
		return Identity{}, invalidCredentials(CauseStoreFailure,
			errors.New("credential store is not configured", errors.CategoryInternal))
	}

	lookupCtx := ctx
	if v.lookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, v.lookupTimeout)
		defer cancel()
	}

	record, err := v.finder.FindUserByEmail(lookupCtx, creds.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.IsNotFound(err) {
			v.logger.Info("sign in for unknown account", "email", creds.Email)
			v.equalizeTiming(creds.Password)
			return Identity{}, invalidCredentials(CauseUnknownAccount, err)
		}
		v.logger.Error("credential store lookup failed", "email", creds.Email, "error", err)
		return Identity{}, invalidCredentials(CauseStoreFailure, err)
	}

	if record == nil {
		v.logger.Info("sign in for unknown account", "email", creds.Email)
		v.equalizeTiming(creds.Password)
		return Identity{}, invalidCredentials(CauseUnknownAccount, ErrUserNotFound)
	}

	if record.PasswordDigest == "" {
		v.logger.Warn("account has no password digest", "email", creds.Email)
		v.equalizeTiming(creds.Password)
		return Identity{}, invalidCredentials(CauseMissingDigest, nil)
	}

	if err := v.passwords.ComparePasswordAndHash(creds.Password, record.PasswordDigest); err != nil {
		v.logger.Info("password mismatch", "email", creds.Email)
		return Identity{}, invalidCredentials(CausePasswordMismatch, err)
	}

	return identityFromRecord(record), nil
}

// equalizeTiming runs the same comparison a wrong password would, against
// a fixed digest
func (v *CredentialVerifier) equalizeTiming(password string) {
	_ = v.passwords.ComparePasswordAndHash(password, dummyDigest())
}
