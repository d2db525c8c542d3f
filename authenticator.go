package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

const (
	// ReasonInvalidCredentials is shown for every rejected submission
	ReasonInvalidCredentials = "Invalid credentials."
	// ReasonSomethingWentWrong is shown when the store or signer failed
	ReasonSomethingWentWrong = "Something went wrong."
)

// Verifier checks raw credentials and returns the verified identity
type Verifier interface {
	Verify(ctx context.Context, raw any) (Identity, error)
}

// TokenService issues and decodes session tokens
type TokenService interface {
	TokenIssuer
	TokenDecoder
}

// SignInResult is the outcome of a sign in attempt. Reason is empty on
// success and one of the two user facing messages otherwise.
type SignInResult struct {
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Identity  Identity  `json:"user,omitzero"`
	Reason    string    `json:"error,omitempty"`
	Err       error     `json:"-"`
}

// OK reports whether a token was issued
func (r SignInResult) OK() bool {
	return r.Reason == "" && r.Token != ""
}

// Auther coordinates credential verification, token issuance, session
// materialization and gate evaluation. It holds no per request state.
type Auther struct {
	verifier     Verifier
	tokens       TokenService
	gate         *Gate
	logger       Logger
	provider     LoggerProvider
	activitySink ActivitySink
	now          func() time.Time
}

// NewAuther wires the orchestrator from its parts
func NewAuther(verifier Verifier, tokens TokenService, gate *Gate) *Auther {
	if gate == nil {
		gate = NewGate()
	}

	provider, logger := ResolveLogger("auth.authenticator", nil, nil)

	return &Auther{
		verifier:     verifier,
		tokens:       tokens,
		gate:         gate,
		logger:       logger,
		provider:     provider,
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

// NewAuthenticator builds the default stack over finder: a bcrypt backed
// CredentialVerifier, an HS256 TokenCodec and a Gate, all configured from
// opts. It fails when the signing secret or TTL are invalid.
func NewAuthenticator(finder UserFinder, opts Config) (*Auther, error) {
	codec, err := NewTokenCodecFromConfig(opts)
	if err != nil {
		return nil, err
	}

	verifier := NewCredentialVerifier(finder, WithLookupTimeout(opts.GetLookupTimeout()))

	return NewAuther(verifier, codec, NewGateFromConfig(opts)), nil
}

// WithLogger sets the logger
func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.provider, s.logger = ResolveLogger("auth.authenticator", nil, logger)
	}
	return s
}

// WithLoggerProvider sets the logger provider. A CredentialVerifier
// built by NewAuthenticator picks it up too.
func (s *Auther) WithLoggerProvider(provider LoggerProvider) *Auther {
	s.provider, s.logger = ResolveLogger("auth.authenticator", provider, s.logger)
	if v, ok := s.verifier.(*CredentialVerifier); ok {
		WithVerifierLoggerProvider(provider)(v)
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClock sets the time source used to stamp activity events
func (s *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		s.now = now
	}
	return s
}

// Gate returns the gate used by Authorize
func (s *Auther) Gate() *Gate {
	return s.gate
}

// TokenService returns the token codec
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// SignIn verifies raw and issues a token for the verified identity. The
// result never says whether the account exists.
func (s *Auther) SignIn(ctx context.Context, raw any) SignInResult {
	email := submittedEmail(raw)

	identity, err := s.verifier.Verify(ctx, raw)
	if err != nil {
		reason := reasonFor(err)
		s.logFailure(email, reason, err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", email, reason, failureMetadata(err))
		return SignInResult{Reason: reason, Err: err}
	}

	if identity.IsZero() {
		err = errors.New("verifier returned an empty identity", errors.CategoryInternal)
		s.logger.Error("sign in failed", "email", email, "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", email, ReasonSomethingWentWrong, nil)
		return SignInResult{Reason: ReasonSomethingWentWrong, Err: err}
	}

	token, claims, err := s.tokens.Issue(identity)
	if err != nil {
		s.logger.Error("token issue failed", "user_id", identity.ID, "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, identity.ID, identity.Email, ReasonSomethingWentWrong, nil)
		return SignInResult{Reason: ReasonSomethingWentWrong, Err: err}
	}

	s.logger.Info("sign in succeeded", "user_id", identity.ID)
	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, identity.ID, identity.Email, "", map[string]any{
		"token_id": claims.TokenID(),
	})

	return SignInResult{
		Token:     token,
		ExpiresAt: claims.Expires(),
		Identity:  identity,
	}
}

// SignOut records the sign out. Tokens are stateless so there is nothing
// to revoke; the transport drops the token.
func (s *Auther) SignOut(ctx context.Context, session Session) {
	if !session.IsAuthenticated() {
		return
	}
	s.emitAuthEvent(ctx, ActivityEventLogout, session.User.ID, session.User.Email, "", nil)
}

// SessionFromToken decodes raw and materializes the session. It never
// fails, a token that does not decode gives an anonymous session.
func (s *Auther) SessionFromToken(raw string) Session {
	claims, err := s.tokens.Decode(raw)
	if err != nil {
		if f, ok := DecodeFailureOf(err); !ok || f != DecodeAbsent {
			s.logger.Debug("session token rejected", "error", err)
		}
	}
	return Materialize(claims, err)
}

// Authorize evaluates the gate for session and path
func (s *Auther) Authorize(session Session, path string) AuthDecision {
	return s.gate.Decide(session, path)
}

func reasonFor(err error) string {
	var ve *VerificationError
	if errors.As(err, &ve) {
		if ve.IsStoreFailure() {
			return ReasonSomethingWentWrong
		}
		return ReasonInvalidCredentials
	}

	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidCredentials) {
		return ReasonInvalidCredentials
	}

	return ReasonSomethingWentWrong
}

func (s *Auther) logFailure(email, reason string, err error) {
	cause := ""
	var internal error
	var ve *VerificationError
	if errors.As(err, &ve) {
		cause = string(ve.Cause)
		internal = ve.Internal()
	}

	if reason == ReasonSomethingWentWrong {
		s.logger.Error("sign in failed", "email", email, "cause", cause, "error", internal)
		return
	}
	s.logger.Info("sign in rejected", "email", email, "cause", cause)
}

func failureMetadata(err error) map[string]any {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return map[string]any{
			"failure": ve.Failure.String(),
			"cause":   string(ve.Cause),
		}
	}
	return nil
}

func submittedEmail(raw any) string {
	creds, ok := credentialsFrom(raw)
	if !ok {
		return ""
	}
	return normalizeEmail(creds.Email)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID, email, reason string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Email:      email,
		Reason:     reason,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}
