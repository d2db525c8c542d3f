package auth

import (
	"path"
	"strings"
)

// DecisionKind classifies the outcome of a gate evaluation
type DecisionKind int

const (
	DecisionAllow DecisionKind = iota
	DecisionDeny
	DecisionRedirect
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// AuthDecision is the verdict for a single request. Target is only set
// for DecisionRedirect.
type AuthDecision struct {
	Kind   DecisionKind
	Target string
}

// Allow lets the request through
func Allow() AuthDecision {
	return AuthDecision{Kind: DecisionAllow}
}

// Deny rejects the request, the transport sends the caller to sign in
func Deny() AuthDecision {
	return AuthDecision{Kind: DecisionDeny}
}

// RedirectTo sends the caller to target
func RedirectTo(target string) AuthDecision {
	return AuthDecision{Kind: DecisionRedirect, Target: target}
}

func (d AuthDecision) String() string {
	if d.Kind == DecisionRedirect {
		return d.Kind.String() + ":" + d.Target
	}
	return d.Kind.String()
}

const (
	DefaultProtectedPrefix = "/dashboard"
	DefaultSignInPath      = "/login"
	DefaultHomePath        = "/dashboard"
)

// DefaultBypassPaths are never evaluated by the gate
var DefaultBypassPaths = []string{
	"/_next/static",
	"/_next/image",
	"/favicon.ico",
	"/api/seed",
	"/static",
	"/assets",
}

// DefaultBypassExtensions are asset extensions that skip the gate
var DefaultBypassExtensions = []string{".png", ".jpg", ".jpeg", ".svg", ".webp"}

// Gate decides per path whether the current session may proceed. It is
// immutable after construction.
type Gate struct {
	protectedPrefix  string
	signInPath       string
	homePath         string
	bypassPaths      []string
	bypassExtensions []string
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithProtectedPrefix sets the path prefix that requires a signed in user
func WithProtectedPrefix(prefix string) GateOption {
	return func(g *Gate) {
		if prefix != "" {
			g.protectedPrefix = cleanPath(prefix)
		}
	}
}

// WithSignInPath sets the sign in page path
func WithSignInPath(p string) GateOption {
	return func(g *Gate) {
		if p != "" {
			g.signInPath = cleanPath(p)
		}
	}
}

// WithHomePath sets where signed in users visiting the sign in page go
func WithHomePath(p string) GateOption {
	return func(g *Gate) {
		if p != "" {
			g.homePath = cleanPath(p)
		}
	}
}

// WithBypassPaths replaces the bypass list
func WithBypassPaths(paths ...string) GateOption {
	return func(g *Gate) {
		g.bypassPaths = g.bypassPaths[:0:0]
		for _, p := range paths {
			if strings.TrimSpace(p) == "" {
				continue
			}
			g.bypassPaths = append(g.bypassPaths, cleanPath(p))
		}
	}
}

// WithBypassExtensions replaces the asset extension list
func WithBypassExtensions(exts ...string) GateOption {
	return func(g *Gate) {
		g.bypassExtensions = g.bypassExtensions[:0:0]
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			g.bypassExtensions = append(g.bypassExtensions, ext)
		}
	}
}

// NewGate returns a gate with the default routes
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		protectedPrefix:  DefaultProtectedPrefix,
		signInPath:       DefaultSignInPath,
		homePath:         DefaultHomePath,
		bypassPaths:      append([]string(nil), DefaultBypassPaths...),
		bypassExtensions: append([]string(nil), DefaultBypassExtensions...),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// NewGateFromConfig builds a gate from the auth options. An empty bypass
// list in cfg keeps the defaults.
func NewGateFromConfig(cfg Config) *Gate {
	opts := []GateOption{
		WithProtectedPrefix(cfg.GetProtectedPrefix()),
		WithSignInPath(cfg.GetSignInPath()),
		WithHomePath(cfg.GetHomePath()),
	}

	if paths := cfg.GetBypassPaths(); len(paths) > 0 {
		opts = append(opts, WithBypassPaths(paths...))
	}

	return NewGate(opts...)
}

// Decide evaluates the rules in order: protected path while anonymous is
// denied, the sign in page while signed in redirects home, anything else
// is allowed. Path comparisons ignore case.
func (g *Gate) Decide(session Session, requestPath string) AuthDecision {
	p := cleanPath(requestPath)

	if hasFoldedPathPrefix(p, g.protectedPrefix) {
		if !session.IsAuthenticated() {
			return Deny()
		}
		return Allow()
	}

	if strings.EqualFold(p, g.signInPath) && session.IsAuthenticated() {
		return RedirectTo(g.homePath)
	}

	return Allow()
}

// Bypass reports whether requestPath is a static asset or otherwise
// excluded from gate evaluation
func (g *Gate) Bypass(requestPath string) bool {
	p := cleanPath(requestPath)

	for _, prefix := range g.bypassPaths {
		if hasPathPrefix(p, prefix) {
			return true
		}
	}

	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}

	for _, e := range g.bypassExtensions {
		if ext == e {
			return true
		}
	}

	return false
}

// SignInPath returns the configured sign in path
func (g *Gate) SignInPath() string {
	return g.signInPath
}

// HomePath returns the configured home path
func (g *Gate) HomePath() string {
	return g.homePath
}

// IsProtected reports whether requestPath falls under the protected prefix
func (g *Gate) IsProtected(requestPath string) bool {
	return hasFoldedPathPrefix(cleanPath(requestPath), g.protectedPrefix)
}

// hasPathPrefix matches whole segments: /dashboard matches /dashboard and
// /dashboard/x but not /dashboardx
func hasPathPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}

// hasFoldedPathPrefix is hasPathPrefix ignoring case. Protection must hold
// whether or not the router matches routes case sensitively; bypass
// matching stays exact.
func hasFoldedPathPrefix(p, prefix string) bool {
	return hasPathPrefix(strings.ToLower(p), strings.ToLower(prefix))
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
