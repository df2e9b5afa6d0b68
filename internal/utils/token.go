package utils

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// NewLiveViewToken mints an opaque viewer token and its bcrypt hash. The
// hash is what gets persisted on the session; the plaintext is handed to
// the candidate exactly once per demo attempt.
func NewLiveViewToken() (token, hash string, err error) {
	token = uuid.NewString()
	b, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return token, string(b), nil
}

func CheckLiveViewToken(hash, token string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
}
