package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/SijoOrganization/sijo-qcm-front/internal/config"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
)

// TokenType distinguishes candidate tokens from anything else signed with
// the same secret.
type TokenType string

const TokenTypeCandidate TokenType = "candidate"

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType `json:"token_type"`
	CandidateID string    `json:"candidate_id"`
}

// AuthService issues and checks candidate tokens for the sandbox. There is a
// single configured candidate whose access code is kept only as a bcrypt hash.
type AuthService struct {
	cfg      *config.Config
	email    string
	codeHash string
}

func NewAuthService(cfg *config.Config) (*AuthService, error) {
	s := &AuthService{cfg: cfg, email: strings.ToLower(cfg.SandboxCandidateEmail)}
	hash, err := s.HashAccessCode(cfg.SandboxAccessCode)
	if err != nil {
		return nil, fmt.Errorf("hash access code: %w", err)
	}
	s.codeHash = hash
	return s, nil
}

// HashAccessCode hashes a code with the configured bcrypt cost.
func (s *AuthService) HashAccessCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckAccessCode compares a plaintext code against a bcrypt hash.
func (s *AuthService) CheckAccessCode(hash, code string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// CandidateID derives a stable id from an email address.
func CandidateID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(email))).String()
}

// Login checks the candidate's credentials and returns a signed token.
func (s *AuthService) Login(email, accessCode string) (token, candidateID string, err error) {
	if !strings.EqualFold(email, s.email) {
		// Still pay the bcrypt cost so timing does not reveal the email.
		_ = s.CheckAccessCode(s.codeHash, accessCode)
		return "", "", ErrInvalidCredentials
	}
	if err := s.CheckAccessCode(s.codeHash, accessCode); err != nil {
		return "", "", err
	}

	candidateID = CandidateID(email)
	token, err = s.GenerateCandidateToken(candidateID)
	if err != nil {
		return "", "", err
	}
	return token, candidateID, nil
}

// GenerateCandidateToken creates an HS256 JWT for candidateID.
func (s *AuthService) GenerateCandidateToken(candidateID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   candidateID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:   TokenTypeCandidate,
		CandidateID: candidateID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
