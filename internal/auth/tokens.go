package auth

import (
	"encoding/hex"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/mapleapp/maple-server/internal/domain"
	"github.com/mapleapp/maple-server/internal/id"

	json "encoding/json/v2"
)

const (
	tokenIssuer   = "maple-server"
	tokenAudience = "maple-client"
)

// TokenService issues and verifies PASETO v4.local access tokens.
type TokenService struct {
	key            paseto.V4SymmetricKey
	accessDuration time.Duration
}

// NewTokenService builds a TokenService from a 64-character hex key.
func NewTokenService(keyHex string, accessDuration time.Duration) (*TokenService, error) {
	if len(keyHex) != 64 {
		return nil, fmt.Errorf("token key must be 64 hex characters, got %d", len(keyHex))
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("token key is not valid hex: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to construct symmetric key: %w", err)
	}

	return &TokenService{
		key:            key,
		accessDuration: accessDuration,
	}, nil
}

// GenerateAccessToken creates a signed access token for the user.
func (s *TokenService) GenerateAccessToken(user *domain.User) (string, error) {
	now := time.Now()

	jti, err := id.Generate("token")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(user.ID)
	token.SetJti(jti)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.accessDuration))

	if err := token.Set("user_id", user.ID); err != nil {
		return "", fmt.Errorf("failed to set user_id claim: %w", err)
	}
	if err := token.Set("email", user.Email); err != nil {
		return "", fmt.Errorf("failed to set email claim: %w", err)
	}

	return token.V4Encrypt(s.key, nil), nil
}

// VerifyAccessToken checks the token's signature and standard claims and
// returns the decoded claims.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}

	return &claims, nil
}
