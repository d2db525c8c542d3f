package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenCodec issues and decodes HS256 signed session tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenCodec struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	now        func() time.Time
	parser     *jwt.Parser
}

var (
	_ TokenIssuer  = (*TokenCodec)(nil)
	_ TokenDecoder = (*TokenCodec)(nil)
)

// CodecOption configures a TokenCodec
type CodecOption func(*TokenCodec)

// WithCodecClock sets the time source used for iat, exp and expiry checks
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIssuer stamps and requires the iss claim
func WithIssuer(issuer string) CodecOption {
	return func(c *TokenCodec) {
		c.issuer = issuer
	}
}

// WithAudience stamps and requires the aud claim
func WithAudience(audience ...string) CodecOption {
	return func(c *TokenCodec) {
		if len(audience) == 0 {
			c.audience = nil
			return
		}
		c.audience = make(jwt.ClaimStrings, len(audience))
		copy(c.audience, audience)
	}
}

// NewTokenCodec creates a codec. An empty signing key or a non positive
// TTL is a configuration fault.
func NewTokenCodec(signingKey []byte, ttl time.Duration, opts ...CodecOption) (*TokenCodec, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningSecret
	}

	if ttl <= 0 {
		return nil, ErrInvalidTokenTTL
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	c := &TokenCodec{
		signingKey: key,
		ttl:        ttl,
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}
	if len(c.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(c.audience...))
	}
	c.parser = jwt.NewParser(parserOptions...)

	return c, nil
}

// NewTokenCodecFromConfig creates a codec from the auth options
func NewTokenCodecFromConfig(cfg Config, opts ...CodecOption) (*TokenCodec, error) {
	base := []CodecOption{
		WithIssuer(cfg.GetIssuer()),
		WithAudience(cfg.GetAudience()...),
	}
	return NewTokenCodec([]byte(cfg.GetSigningKey()), cfg.GetTokenTTL(), append(base, opts...)...)
}

// TTL returns the configured token lifetime
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a new token for identity. The returned claims describe the
// token and must not be modified.
func (c *TokenCodec) Issue(identity Identity) (string, *Claims, error) {
	if identity.IsZero() {
		return "", nil, errors.New("identity is required to issue a token", errors.CategoryBadInput)
	}

	now := c.now().Truncate(time.Second)

	var aud jwt.ClaimStrings
	if len(c.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(c.audience))
		copy(aud, c.audience)
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   identity.ID,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		UID:       identity.ID,
		UserName:  identity.Name,
		UserEmail: identity.Email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, claims, nil
}

// Decode validates token and returns its claims. The signature is checked
// over the raw signed bytes before anything is parsed, so any change to
// the header, the payload or the delimiter between them is reported as
// DecodeBadSignature. Segments must be canonical base64url.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, decodeFailure(DecodeAbsent, nil)
	}

	// only the last delimiter is structural here: whatever precedes it is
	// the signed region and must verify as is
	dot := strings.LastIndex(token, ".")
	if dot <= 0 {
		return nil, decodeFailure(DecodeMalformed, nil)
	}

	signature, err := c.parser.DecodeSegment(token[dot+1:])
	if err != nil || len(signature) == 0 {
		return nil, decodeFailure(DecodeMalformed, err)
	}

	signingString := token[:dot]
	if err := jwt.SigningMethodHS256.Verify(signingString, signature, c.signingKey); err != nil {
		return nil, decodeFailure(DecodeBadSignature, err)
	}

	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, c.keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, decodeFailure(DecodeExpired, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, decodeFailure(DecodeBadSignature, err)
		default:
			return nil, decodeFailure(DecodeMalformed, err)
		}
	}

	if !parsed.Valid || claims.UserID() == "" {
		return nil, decodeFailure(DecodeMalformed, nil)
	}

	return claims, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenUnverifiable
	}
	return c.signingKey, nil
}
