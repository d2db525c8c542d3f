package auth

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-signin/middleware/jwtware"
)

const (
	DefaultCookieName       = "auth_token"
	DefaultRejectedRouteKey = "rejected_route"
	DefaultAuthScheme       = "Bearer"

	rejectedRouteTTL = 5 * time.Minute
)

// RouteAuthenticator carries the orchestrator over go-router: the token
// travels in an HttpOnly cookie or an Authorization header.
type RouteAuthenticator struct {
	auth             *Auther
	cfg              Config
	cookieName       string
	rejectedRouteKey string
	extractors       []jwtware.JWTExtractor
	now              func() time.Time
	logger           Logger
	loggerProvider   LoggerProvider
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

// NewHTTPAuthenticator wraps auther for HTTP use
func NewHTTPAuthenticator(auther *Auther, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryInternal)
	}

	cookieName := stringOr(cfg.GetCookieName(), DefaultCookieName)

	lookup := strings.TrimSpace(cfg.GetTokenLookup())
	if lookup == "" {
		lookup = "cookie:" + cookieName + ",header:" + router.HeaderAuthorization
	}

	provider, logger := ResolveLogger("auth.http", nil, nil)

	a := &RouteAuthenticator{
		auth:             auther,
		cfg:              cfg,
		cookieName:       cookieName,
		rejectedRouteKey: stringOr(cfg.GetRejectedRouteKey(), DefaultRejectedRouteKey),
		extractors:       jwtware.GetExtractors(lookup, stringOr(cfg.GetAuthScheme(), DefaultAuthScheme)),
		now:              time.Now,
		logger:           logger,
		loggerProvider:   provider,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// WithLogger sets the logger
func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.loggerProvider, a.logger = ResolveLogger("auth.http", nil, logger)
	}
	return a
}

// WithLoggerProvider sets the logger provider
func (a *RouteAuthenticator) WithLoggerProvider(provider LoggerProvider) *RouteAuthenticator {
	a.loggerProvider, a.logger = ResolveLogger("auth.http", provider, a.logger)
	return a
}

// WithClock sets the time source for cookie expiry
func (a *RouteAuthenticator) WithClock(now func() time.Time) *RouteAuthenticator {
	if now != nil {
		a.now = now
	}
	return a
}

// CookieName returns the session cookie name
func (a *RouteAuthenticator) CookieName() string {
	return a.cookieName
}

// SignIn verifies raw and on success sets the session cookie
func (a *RouteAuthenticator) SignIn(c router.Context, raw any) SignInResult {
	result := a.auth.SignIn(c.Context(), raw)
	if !result.OK() {
		return result
	}

	a.setCookieToken(c, result.Token, result.ExpiresAt)
	c.Locals(SessionLocalsKey, Session{User: &result.Identity, ExpiresAt: result.ExpiresAt})

	return result
}

// SignOut drops the session cookie. Calling it without a session, or
// twice, has the same effect as calling it once.
func (a *RouteAuthenticator) SignOut(c router.Context) {
	session := a.CurrentSession(c)
	a.cookieDel(c, a.cookieName)
	c.Locals(SessionLocalsKey, Anonymous())
	a.auth.SignOut(c.Context(), session)
}

// CurrentSession returns the session for the request. The token is only
// decoded once per request, later calls read it from locals.
func (a *RouteAuthenticator) CurrentSession(c router.Context) Session {
	if session, ok := GetRouterSession(c); ok {
		return session
	}

	raw, _ := jwtware.ExtractRawTokenFromContext(c, a.extractors)
	session := a.auth.SessionFromToken(raw)
	c.Locals(SessionLocalsKey, session)

	return session
}

// Authorize evaluates the gate for the current request
func (a *RouteAuthenticator) Authorize(c router.Context) AuthDecision {
	return a.auth.Authorize(a.CurrentSession(c), c.Path())
}

// GateMiddleware resolves the session and enforces the gate before the
// handler runs. Bypassed paths reach the handler untouched.
func (a *RouteAuthenticator) GateMiddleware() router.MiddlewareFunc {
	gate := a.auth.Gate()

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if gate.Bypass(c.Path()) {
				return hf(c)
			}

			session := a.CurrentSession(c)
			decision := gate.Decide(session, c.Path())

			switch decision.Kind {
			case DecisionDeny:
				return a.AuthErrorHandler(c, ErrTokenAbsent)
			case DecisionRedirect:
				a.logger.Debug("gate redirect", "path", c.Path(), "target", decision.Target)
				return c.Redirect(decision.Target, redirectStatus(c))
			default:
				c.SetContext(WithSessionContext(c.Context(), session))
				return hf(c)
			}
		}
	}
}

// ProtectedRoute rejects requests without a valid token using
// errorHandler. Intended for API routes that answer with a status
// instead of a redirect.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.ErrorHandler
	}

	lookup := strings.TrimSpace(a.cfg.GetTokenLookup())
	if lookup == "" {
		lookup = "cookie:" + a.cookieName + ",header:" + router.HeaderAuthorization
	}

	return jwtware.New(jwtware.Config[Session]{
		ErrorHandler: errorHandler,
		ContextKey:   SessionLocalsKey,
		TokenLookup:  lookup,
		AuthScheme:   stringOr(a.cfg.GetAuthScheme(), DefaultAuthScheme),
		Decode: func(token string) (Session, error) {
			claims, err := a.auth.TokenService().Decode(token)
			if err != nil {
				return Anonymous(), err
			}
			return Materialize(claims, nil), nil
		},
		ContextEnricher: WithSessionContext,
	})
}

// GetRedirectOrDefault returns where to send the user after sign in: the
// protected page they were turned away from, or home.
func (a *RouteAuthenticator) GetRedirectOrDefault(c router.Context) string {
	r := c.Cookies(a.rejectedRouteKey)
	if r != "" {
		a.cookieDel(c, a.rejectedRouteKey)
	}

	if !isLocalRedirect(r) {
		return a.auth.Gate().HomePath()
	}

	return r
}

// SetRedirect remembers the current URL so sign in can return to it
func (a *RouteAuthenticator) SetRedirect(c router.Context) {
	a.logger.Debug("setting redirect cookie", "key", a.rejectedRouteKey, "path", c.OriginalURL())

	c.Cookie(&router.Cookie{
		Name:     a.rejectedRouteKey,
		Value:    c.OriginalURL(),
		Expires:  a.now().Add(rejectedRouteTTL),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     a.cookieName,
		Value:    val,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  a.now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.logger.Info(
		"authentication required, redirecting to sign in",
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	return c.Redirect(a.auth.Gate().SignInPath(), redirectStatus(c))
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		err = ErrTokenAbsent
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.logger.Info(
		"middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": ReasonSomethingWentWrong})
	}
}

// redirectStatus keeps GET navigations as 302 and turns everything else
// into a 303 so the browser follows up with a GET
func redirectStatus(c router.Context) int {
	if c.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

func isLocalRedirect(target string) bool {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Host == "" && u.Scheme == ""
}

func stringOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
