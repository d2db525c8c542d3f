package auth

import (
	"net/http"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// HTTPAuthenticator is the transport surface the controller drives
type HTTPAuthenticator interface {
	SignIn(c router.Context, raw any) SignInResult
	SignOut(c router.Context)
	CurrentSession(c router.Context) Session
	GetRedirectOrDefault(c router.Context) string
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

// RegisterAuthRoutes mounts the sign in, sign out and session routes
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")
	app.Post(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.post")

	app.Get(controller.Routes.Session, controller.SessionShow).
		SetName("session.get")

	return controller
}

type AuthControllerRoutes struct {
	Login       string
	Logout      string
	Session     string
	AfterLogout string
}

type AuthController struct {
	Debug  bool
	Logger Logger
	Routes *AuthControllerRoutes
	Auther HTTPAuthenticator
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerAuther sets the HTTP authenticator
func WithControllerAuther(a HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = a
		return c
	}
}

// WithControllerLogger sets the logger
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// WithControllerRoutes overrides the route paths, empty fields keep
// their default
func WithControllerRoutes(r AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes.Login = stringOr(r.Login, c.Routes.Login)
		c.Routes.Logout = stringOr(r.Logout, c.Routes.Logout)
		c.Routes.Session = stringOr(r.Session, c.Routes.Session)
		c.Routes.AfterLogout = stringOr(r.AfterLogout, c.Routes.AfterLogout)
		return c
	}
}

// WithControllerDebug logs submitted payloads without their password
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	_, logger := ResolveLogger("auth.controller", nil, nil)

	c := &AuthController{
		Logger: logger,
		Routes: &AuthControllerRoutes{
			Login:       DefaultSignInPath,
			Logout:      "/logout",
			Session:     "/api/session",
			AfterLogout: "/",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

var _ CredentialsPayload = LoginRequest{}

// GetEmail returns the submitted email
func (r LoginRequest) GetEmail() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("sign in payload could not be bound", "error", err)
		return ctx.JSON(http.StatusUnauthorized, router.ViewContext{
			"error": ReasonInvalidCredentials,
		})
	}

	if a.Debug {
		a.Logger.Debug("sign in attempt", "payload", print.MaybePrettyJSON(map[string]string{
			"email": payload.Email,
		}))
	}

	result := a.Auther.SignIn(ctx, *payload)
	if !result.OK() {
		status := http.StatusUnauthorized
		if result.Reason == ReasonSomethingWentWrong {
			status = http.StatusInternalServerError
		}
		return ctx.JSON(status, router.ViewContext{
			"error": result.Reason,
		})
	}

	return ctx.Redirect(a.Auther.GetRedirectOrDefault(ctx), http.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.SignOut(ctx)
	return ctx.Redirect(a.Routes.AfterLogout, http.StatusSeeOther)
}

// SessionShow returns the current session, the user is null when anonymous
func (a *AuthController) SessionShow(ctx router.Context) error {
	return ctx.JSON(http.StatusOK, a.Auther.CurrentSession(ctx))
}
