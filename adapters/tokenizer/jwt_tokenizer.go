package tokenizer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/ports"
)

// AudienceSession marks session tokens so they cannot be confused with any
// other JWT signed by the same key.
const AudienceSession = "zkvault:session"

// SessionClaims are the claims carried by a JWT session token.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// JWTTokenizer issues ES256-signed session tokens. The JTI is the session
// store key, so a revoked session stays revoked no matter how long the token
// itself remains structurally valid.
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a JWT tokenizer signing with the given key.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) *JWTTokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// Issue implements ports.Tokenizer.
func (t *JWTTokenizer) Issue(session *core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  session.Username,
			ID:       session.ID,
			Audience: jwt.ClaimStrings{AudienceSession},
			IssuedAt: jwt.NewNumericDate(session.IssuedAt),
		},
	}
	if !session.ExpiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(session.ExpiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(t.signKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse implements ports.Tokenizer. A token that fails signature or audience
// checks is simply unauthenticated; the caller never learns why.
func (t *JWTTokenizer) Parse(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &t.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceSession))
	if err != nil || !token.Valid {
		return "", core.ErrUnauthenticated
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || claims.ID == "" {
		return "", core.ErrUnauthenticated
	}
	return claims.ID, nil
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)
