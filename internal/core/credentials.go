package core

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// CredentialChecker decides whether a presented secret matches a stored credential
type CredentialChecker interface {
	Check(stored, presented string) bool
}

// PlainCredentials compares secrets stored as plain text
type PlainCredentials struct{}

// Check compares in constant time
func (PlainCredentials) Check(stored, presented string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// BcryptCredentials compares against bcrypt hashes
type BcryptCredentials struct{}

// Check verifies presented against a bcrypt hash
func (BcryptCredentials) Check(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
}

const bcryptCost = 12

// HashSecret produces a bcrypt hash for storing an admin secret
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
