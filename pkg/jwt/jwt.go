package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSigningKey = errors.New("jwt: missing signing key")
	ErrInvalidToken      = errors.New("jwt: invalid token")
	ErrExpiredToken      = errors.New("jwt: token is expired")
)

// Config holds access-token issuance settings, fixed at startup.
type Config struct {
	SigningKey string        `env:"JWT_SIGNING_KEY,required"`         // SigningKey is the HS256 secret, at least 32 bytes.
	Issuer     string        `env:"JWT_ISSUER" envDefault:"authcore"` // Issuer is written into and required from every token.
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"1h"`   // AccessTTL bounds access-token lifetime.
}

// Claims carried by access tokens. Verification is stateless: everything
// needed to authorize a request within the TTL window is in the token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// Issuer mints and verifies HS256 access tokens.
type Issuer struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
}

// NewIssuer creates an access-token issuer. The signing key must be at
// least 32 bytes for adequate HMAC-SHA256 strength.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.SigningKey) < 32 {
		return nil, ErrMissingSigningKey
	}

	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Issuer{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		accessTTL:  ttl,
	}, nil
}

// TTL reports the configured access-token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.accessTTL
}

// Mint signs an access token for the subject. The caller supplies "now" so
// expiry math follows the injected clock used by the rest of the flows.
func (i *Issuer) Mint(subject, email, role string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
		Email: email,
		Role:  role,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
}

// Verify checks signature, algorithm, issuer, and expiry, and returns the
// decoded claims. No storage lookup is involved.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, errors.Join(ErrInvalidToken, err)
	}

	return claims, nil
}
