package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-signin"
)

const (
	// EnvPrefix marks environment variables that override file values
	EnvPrefix = "SIGNIN_"

	defaultPath = "."
)

type Config struct {
	Auth        AuthConfig        `koanf:"auth" json:"auth"`
	Persistence PersistenceConfig `koanf:"persistence" json:"persistence"`
	Server      ServerConfig      `koanf:"server" json:"server"`
	Log         LogConfig         `koanf:"log" json:"log"`
	Seed        SeedConfig        `koanf:"seed" json:"seed"`
}

type AuthConfig struct {
	SigningKey       string        `koanf:"signing_key" json:"-"`
	TokenTTL         time.Duration `koanf:"token_ttl" json:"token_ttl"`
	ProtectedPrefix  string        `koanf:"protected_prefix" json:"protected_prefix"`
	SignInPath       string        `koanf:"sign_in_path" json:"sign_in_path"`
	HomePath         string        `koanf:"home_path" json:"home_path"`
	CookieName       string        `koanf:"cookie_name" json:"cookie_name"`
	TokenLookup      string        `koanf:"token_lookup" json:"token_lookup"`
	AuthScheme       string        `koanf:"auth_scheme" json:"auth_scheme"`
	Issuer           string        `koanf:"issuer" json:"issuer"`
	Audience         []string      `koanf:"audience" json:"audience"`
	RejectedRouteKey string        `koanf:"rejected_route_key" json:"rejected_route_key"`
	BypassPaths      []string      `koanf:"bypass_paths" json:"bypass_paths"`
	LookupTimeout    time.Duration `koanf:"lookup_timeout" json:"lookup_timeout"`
	BcryptCost       int           `koanf:"bcrypt_cost" json:"bcrypt_cost"`
}

// PersistenceConfig satisfies the go-persistence-bun client config
type PersistenceConfig struct {
	DSN            string        `koanf:"dsn" json:"-"`
	Driver         string        `koanf:"driver" json:"driver"`
	Server         string        `koanf:"server" json:"server"`
	Debug          bool          `koanf:"debug" json:"debug"`
	PingTimeout    time.Duration `koanf:"ping_timeout" json:"ping_timeout"`
	OtelIdentifier string        `koanf:"otel_identifier" json:"otel_identifier"`
}

type ServerConfig struct {
	Address string `koanf:"address" json:"address"`
}

type LogConfig struct {
	Level  string `koanf:"level" json:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty"`
}

type SeedConfig struct {
	Enabled bool            `koanf:"enabled" json:"enabled"`
	Users   []auth.SeedUser `koanf:"users" json:"users"`
}

var (
	_ auth.Config        = AuthConfig{}
	_ persistence.Config = PersistenceConfig{}
)

// Defaults are applied before the file and the environment are read
func Defaults() map[string]any {
	return map[string]any{
		"auth.token_ttl":              time.Duration(0),
		"auth.protected_prefix":       auth.DefaultProtectedPrefix,
		"auth.sign_in_path":           auth.DefaultSignInPath,
		"auth.home_path":              auth.DefaultHomePath,
		"auth.cookie_name":            auth.DefaultCookieName,
		"auth.token_lookup":           "cookie:" + auth.DefaultCookieName + ",header:Authorization",
		"auth.auth_scheme":            auth.DefaultAuthScheme,
		"auth.rejected_route_key":     auth.DefaultRejectedRouteKey,
		"auth.lookup_timeout":         auth.DefaultLookupTimeout.String(),
		"auth.bcrypt_cost":            12,
		"auth.signing_key":            "",
		"auth.issuer":                 "",
		"auth.audience":               []string{},
		"auth.bypass_paths":           append([]string(nil), auth.DefaultBypassPaths...),
		"persistence.dsn":             "file:signin.db?cache=shared",
		"persistence.driver":          "sqlite",
		"persistence.server":          "",
		"persistence.debug":           false,
		"persistence.ping_timeout":    "5s",
		"persistence.otel_identifier": "",
		"server.address":              ":8572",
		"log.level":                   "info",
		"log.pretty":                  false,
		"seed.enabled":                false,
	}
}

// LoadWithEnv reads <name>.yaml from the first search path that has it,
// then overlays SIGNIN_ prefixed environment variables. A missing file is
// not an error, defaults and the environment still apply.
func LoadWithEnv[T any](name string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	for key, value := range Defaults() {
		if err := koanfInstance.Set(key, value); err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "set config default").
				WithMetadata(map[string]any{"key": key})
		}
	}

	if configFile, ok := findConfigFile(name, configPath...); ok {
		if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "read config failed").
				WithMetadata(map[string]any{"file": configFile})
		}
	}

	existingConfigMap := koanfInstance.Raw()

	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(k, v string) (string, any) {
			return canonicalizeEnvKey(strings.TrimPrefix(k, EnvPrefix), existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "unmarshal config failed")
	}

	return cfg, nil
}

// New loads config.yaml from the working directory or ./config and
// validates it
func New() (*Config, error) {
	return Load("config", "config")
}

// Load reads <name>.yaml from the working directory or paths, applies
// the environment and validates the result
func Load(name string, paths ...string) (*Config, error) {
	cfg, err := LoadWithEnv[Config](name, paths...)
	if err != nil {
		return nil, err
	}

	cfg.Auth.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate will run validation rules
func (c Config) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid auth config")
	}

	if err := validation.ValidateStruct(&c.Persistence,
		validation.Field(&c.Persistence.DSN, validation.Required),
		validation.Field(&c.Persistence.Driver, validation.Required),
		validation.Field(&c.Persistence.PingTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid persistence config")
	}

	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Address, validation.Required),
	); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid server config")
	}

	return nil
}

// Validate will run validation rules
func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required),
		validation.Field(&a.TokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&a.ProtectedPrefix, validation.Required),
		validation.Field(&a.SignInPath, validation.Required),
		validation.Field(&a.HomePath, validation.Required),
		validation.Field(&a.CookieName, validation.Required),
		validation.Field(&a.LookupTimeout, validation.Min(time.Duration(0))),
		validation.Field(&a.BcryptCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
	)
}

func (a *AuthConfig) normalize() {
	a.Audience = compact(a.Audience)
	a.BypassPaths = compact(a.BypassPaths)
}

func (a AuthConfig) GetSigningKey() string           { return a.SigningKey }
func (a AuthConfig) GetTokenTTL() time.Duration      { return a.TokenTTL }
func (a AuthConfig) GetIssuer() string               { return a.Issuer }
func (a AuthConfig) GetAudience() []string           { return a.Audience }
func (a AuthConfig) GetCookieName() string           { return a.CookieName }
func (a AuthConfig) GetTokenLookup() string          { return a.TokenLookup }
func (a AuthConfig) GetAuthScheme() string           { return a.AuthScheme }
func (a AuthConfig) GetProtectedPrefix() string      { return a.ProtectedPrefix }
func (a AuthConfig) GetSignInPath() string           { return a.SignInPath }
func (a AuthConfig) GetHomePath() string             { return a.HomePath }
func (a AuthConfig) GetRejectedRouteKey() string     { return a.RejectedRouteKey }
func (a AuthConfig) GetBypassPaths() []string        { return a.BypassPaths }
func (a AuthConfig) GetLookupTimeout() time.Duration { return a.LookupTimeout }

func (p PersistenceConfig) GetDSN() string                { return p.DSN }
func (p PersistenceConfig) GetDriver() string             { return p.Driver }
func (p PersistenceConfig) GetServer() string             { return p.Server }
func (p PersistenceConfig) GetDebug() bool                { return p.Debug }
func (p PersistenceConfig) GetPingTimeout() time.Duration { return p.PingTimeout }
func (p PersistenceConfig) GetOtelIdentifier() string     { return p.OtelIdentifier }

func findConfigFile(name string, configPath ...string) (string, bool) {
	searchPaths := []string{defaultPath}
	if pwd, err := os.Getwd(); err == nil {
		for _, path := range configPath {
			if filepath.IsAbs(path) {
				searchPaths = append(searchPaths, path)
				continue
			}
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	for _, path := range searchPaths {
		candidate := filepath.Join(path, name+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	return "", false
}

// canonicalizeEnvKey maps AUTH_SIGNING_KEY to auth.signing_key by
// joining underscore separated segments until they name a known key.
// Unknown keys fall back to one level per segment.
func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for i := 0; i < len(segments); {
		if segments[i] == "" {
			i++
			continue
		}

		matched, next, width := findExistingSegment(current, segments[i:])
		if width == 0 {
			canonical = append(canonical, segments[i])
			current = nil
			i++
			continue
		}

		canonical = append(canonical, matched)
		current = next
		i += width
	}

	return strings.Join(canonical, ".")
}

// findExistingSegment tries the longest run of segments first so that
// signing_key wins over signing
func findExistingSegment(current map[string]any, segments []string) (string, map[string]any, int) {
	if len(current) == 0 {
		return "", nil, 0
	}

	for width := len(segments); width > 0; width-- {
		needle := normalizeToken(strings.Join(segments[:width], ""))
		for key, value := range current {
			if normalizeToken(key) != needle {
				continue
			}
			child, _ := value.(map[string]any)
			return key, child, width
		}
	}

	return "", nil, 0
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

func compact(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
