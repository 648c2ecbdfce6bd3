// Package auth provides single-user authentication for the self-hosted
// server: a password verified with argon2id, and HS256 JWT session
// tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Service verifies the configured owner password and issues session
// tokens.
type Service struct {
	passwordHash string
	jwtSecret    string
	tokenTTL     time.Duration
}

// NewService hashes the configured password and returns a ready
// Service.
func NewService(password, jwtSecret string, tokenTTL time.Duration) (*Service, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth.NewService: %w", err)
	}

	return &Service{
		passwordHash: hash,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
	}, nil
}

// Login validates the owner password and returns a session token.
func (s *Service) Login(password string) (string, error) {
	if !verifyPassword(password, s.passwordHash) {
		return "", fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	token, err := IssueToken(s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("auth.Login: %w", err)
	}

	return token, nil
}

// hashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2Key([]byte(password), salt)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// verifyPassword checks a password against an argon2id hash.
func verifyPassword(password, encoded string) bool {
	// Split salt$hash
	var saltHex, hashHex string
	for i := range len(encoded) {
		if encoded[i] == '$' {
			saltHex = encoded[:i]
			hashHex = encoded[i+1:]
			break
		}
	}

	if saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expectedHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2Key([]byte(password), salt)

	// Constant-time comparison to prevent timing attacks.
	if len(computed) != len(expectedHash) {
		return false
	}

	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}

// argon2Key derives the password hash with the package parameters.
func argon2Key(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}
