package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the structured logger used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider resolves named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// LoggerProviderFunc adapts a function to the LoggerProvider interface.
type LoggerProviderFunc func(name string) Logger

// GetLogger implements LoggerProvider.
func (f LoggerProviderFunc) GetLogger(name string) Logger {
	if f == nil {
		return nil
	}
	return f(name)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetCookieName() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetProtectedPrefix() string
	GetSignInPath() string
	GetHomePath() string
	GetRejectedRouteKey() string
	GetBypassPaths() []string
	GetLookupTimeout() time.Duration
}

// UserFinder is the read contract over the external record store.
// Implementations return an error matching ErrUserNotFound when no
// record exists for the given email.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*UserRecord, error)
}

// PasswordVerifier checks a cleartext secret against a stored digest
type PasswordVerifier interface {
	ComparePasswordAndHash(password, hash string) error
}

// PasswordHasher produces and checks password digests
type PasswordHasher interface {
	PasswordVerifier
	HashPassword(password string) (string, error)
}

// TokenDecoder validates a presented token and returns its claims
type TokenDecoder interface {
	Decode(token string) (*Claims, error)
}

// TokenIssuer signs claims for a verified identity
type TokenIssuer interface {
	Issue(identity Identity) (string, *Claims, error)
}

// ResolveLogger picks the logger for the given name. A provider wins over
// the fallback logger unless it resolves to nil. When both are missing the
// package default logger is used.
func ResolveLogger(name string, provider LoggerProvider, fallback Logger) (LoggerProvider, Logger) {
	var logger Logger
	if provider != nil {
		logger = provider.GetLogger(name)
	}

	if logger == nil {
		logger = fallback
	}

	if logger == nil {
		logger = defaultLogger(name)
	}

	if provider == nil {
		provider = LoggerProviderFunc(func(string) Logger { return logger })
	}

	resolved := logger
	return LoggerProviderFunc(func(n string) Logger {
		if l := provider.GetLogger(n); l != nil {
			return l
		}
		return resolved
	}), logger
}

func defaultLogger(name string) Logger {
	if name == "" {
		name = "auth"
	}
	return glog.NewLogger(
		glog.WithName("auth"),
		glog.WithAddSource(false),
	).GetLogger(name)
}
