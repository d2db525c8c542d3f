package auth_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-signin"
)

var testSigningKey = []byte("test-signing-key-0123456789abcdef")

var testNow = time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCodec(t *testing.T, opts ...auth.CodecOption) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec(testSigningKey, time.Hour, append([]auth.CodecOption{
		auth.WithCodecClock(fixedClock(testNow)),
	}, opts...)...)
	require.NoError(t, err)
	return codec
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.NewBcryptHasher(bcrypt.MinCost).HashPassword(password)
	require.NoError(t, err)
	return hash
}

// stubFinder is an in memory UserFinder
type stubFinder struct {
	mu      sync.Mutex
	records map[string]*auth.UserRecord
	err     error
	block   bool
	calls   []string
}

func newStubFinder(records ...*auth.UserRecord) *stubFinder {
	f := &stubFinder{records: map[string]*auth.UserRecord{}}
	for _, r := range records {
		f.records[r.Email] = r
	}
	return f
}

func (f *stubFinder) FindUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, email)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if f.err != nil {
		return nil, f.err
	}

	r, ok := f.records[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}

	copied := *r
	return &copied, nil
}

func (f *stubFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// testConfig implements auth.Config
type testConfig struct {
	signingKey  string
	ttl         time.Duration
	issuer      string
	audience    []string
	cookieName  string
	tokenLookup string
	bypass      []string
}

func newTestConfig() testConfig {
	return testConfig{
		signingKey: string(testSigningKey),
		ttl:        time.Hour,
		cookieName: "auth_token",
	}
}

func (c testConfig) GetSigningKey() string           { return c.signingKey }
func (c testConfig) GetTokenTTL() time.Duration      { return c.ttl }
func (c testConfig) GetIssuer() string               { return c.issuer }
func (c testConfig) GetAudience() []string           { return c.audience }
func (c testConfig) GetCookieName() string           { return c.cookieName }
func (c testConfig) GetTokenLookup() string          { return c.tokenLookup }
func (c testConfig) GetAuthScheme() string           { return "" }
func (c testConfig) GetProtectedPrefix() string      { return "" }
func (c testConfig) GetSignInPath() string           { return "" }
func (c testConfig) GetHomePath() string             { return "" }
func (c testConfig) GetRejectedRouteKey() string     { return "" }
func (c testConfig) GetBypassPaths() []string        { return c.bypass }
func (c testConfig) GetLookupTimeout() time.Duration { return time.Second }

// routerContext lets the fake embed router.Context while defining its own
// Context method.
type routerContext = router.Context

// fakeContext overrides the router.Context methods the package uses.
// Anything else panics through the nil embedded interface.
type fakeContext struct {
	routerContext

	ctx         context.Context
	method      string
	path        string
	originalURL string
	headers     map[string]string
	cookies     map[string]string
	locals      map[any]any
	body        any

	setCookies []*router.Cookie
	redirect   string
	status     int
	payload    any
	nextCalled bool
}

func newFakeContext(method, path string) *fakeContext {
	return &fakeContext{
		ctx:         context.Background(),
		method:      method,
		path:        path,
		originalURL: path,
		headers:     map[string]string{},
		cookies:     map[string]string{},
		locals:      map[any]any{},
	}
}

func (c *fakeContext) Context() context.Context       { return c.ctx }
func (c *fakeContext) SetContext(ctx context.Context) { c.ctx = ctx }
func (c *fakeContext) Path() string                   { return c.path }
func (c *fakeContext) Method() string                 { return c.method }
func (c *fakeContext) OriginalURL() string            { return c.originalURL }
func (c *fakeContext) Header(key string) string       { return c.headers[key] }

func (c *fakeContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := c.cookies[key]; ok && v != "" {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

// Cookie applies the cookie to the jar. Expiry is not simulated, an empty
// value deletes the cookie.
func (c *fakeContext) Cookie(cookie *router.Cookie) {
	c.setCookies = append(c.setCookies, cookie)
	if cookie.Value == "" {
		delete(c.cookies, cookie.Name)
		return
	}
	c.cookies[cookie.Name] = cookie.Value
}

func (c *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		c.locals[key] = value[0]
		return value[0]
	}
	return c.locals[key]
}

func (c *fakeContext) Redirect(path string, status ...int) error {
	c.redirect = path
	if len(status) > 0 {
		c.status = status[0]
	}
	return nil
}

func (c *fakeContext) JSON(code int, val any) error {
	c.status = code
	c.payload = val
	return nil
}

func (c *fakeContext) Bind(i any) error {
	raw, err := json.Marshal(c.body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, i)
}

func (c *fakeContext) lastCookie(name string) *router.Cookie {
	for i := len(c.setCookies) - 1; i >= 0; i-- {
		if c.setCookies[i].Name == name {
			return c.setCookies[i]
		}
	}
	return nil
}

// nextRequest starts a new request carrying the current cookie jar
func (c *fakeContext) nextRequest(method, path string) *fakeContext {
	next := newFakeContext(method, path)
	for k, v := range c.cookies {
		next.cookies[k] = v
	}
	return next
}

func nextHandler(c router.Context) error {
	if fc, ok := c.(*fakeContext); ok {
		fc.nextCalled = true
	}
	return nil
}

func jsonString(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return strings.TrimSpace(string(raw))
}
