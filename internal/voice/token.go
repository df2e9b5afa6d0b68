package voice

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session tokens scope one voice-agent connection to one interview session
// and carry the agent's system prompt, so the socket handler never trusts
// client-supplied configuration.

type sessionClaims struct {
	jwt.RegisteredClaims
	SystemPrompt string `json:"system_prompt"`
}

func MintSessionToken(secret, sessionID, systemPrompt string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("voice token secret is not set")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	now := time.Now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SystemPrompt: systemPrompt,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseSessionToken(secret, token string) (sessionID, systemPrompt string, err error) {
	claims := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || tok == nil || !tok.Valid {
		return "", "", errors.New("invalid voice session token")
	}
	if claims.Subject == "" {
		return "", "", errors.New("voice session token missing subject")
	}
	return claims.Subject, claims.SystemPrompt, nil
}
