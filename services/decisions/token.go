package decisions

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/grocerlink/commerce-router/services"
)

const tokenIssuerName = "commerce-router"

// DefaultTokenTTL matches the decision TTL so tokens and stored decisions
// expire together
const DefaultTokenTTL = 10 * time.Minute

// TokenIssuer mints and verifies confirmation tokens. The token carries the
// routing request ID as its jti claim; the decision store stays the
// authority on whether that ID is still usable.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer signing with the given secret
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

// TTL returns the configured token lifetime
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a confirmation token for the given request ID
func (t *TokenIssuer) Issue(requestID string, issuedAt time.Time) (string, time.Time, error) {
	expiresAt := issuedAt.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		ID:        requestID,
		Issuer:    tokenIssuerName,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign confirmation token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a confirmation token and returns the request ID it was
// issued for. Expired tokens map to the decision-expired error so callers
// report the same condition whether the token or the stored decision aged
// out first.
func (t *TokenIssuer) Parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, t.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", services.ErrDecisionExpired
		}
		return "", services.ErrInvalidToken
	}
	return t.requestID(token)
}

// ParseAllowExpired verifies a token's signature and issuer but tolerates an
// elapsed expiry. Cancellations outlive the confirmation window, so for them
// the decision store, not the token clock, decides whether the underlying
// order is still addressable.
func (t *TokenIssuer) ParseAllowExpired(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, t.keyFunc, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", services.ErrInvalidToken
	}
	return t.requestID(token)
}

func (t *TokenIssuer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return t.secret, nil
}

// requestID extracts and checks the claims of an already-verified token
func (t *TokenIssuer) requestID(token *jwt.Token) (string, error) {
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", services.ErrInvalidToken
	}
	if claims.Issuer != tokenIssuerName {
		return "", services.ErrInvalidToken
	}
	if claims.ID == "" {
		return "", services.ErrInvalidToken
	}
	return claims.ID, nil
}
