package utils

import "golang.org/x/crypto/bcrypt"

// HashAPIKey returns the bcrypt hash of an API key using the given cost.
// Only the hash is configured on the server (API_KEY_HASH).
func HashAPIKey(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyAPIKey compares a presented key against its bcrypt hash.  An
// empty hash never matches.
func VerifyAPIKey(hash, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
