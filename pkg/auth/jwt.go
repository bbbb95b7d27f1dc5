package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenKind separates access tokens from refresh tokens so one cannot be
// replayed as the other.
type tokenKind string

const (
	kindAccess  tokenKind = "access"
	kindRefresh tokenKind = "refresh"
)

// audience is fixed: tokens are only ever presented to this API.
const audience = "clinicbook-api"

// clockSkew tolerated between replicas when checking exp and nbf.
const clockSkew = 10 * time.Second

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalid      = errors.New("token is invalid")
	ErrTokenTypeMismatch = errors.New("wrong token type")
)

var errDoctorClaimRole = errors.New("doctor_id claim is only valid for the doctor role")

// sessionClaims is the signed payload. The subject is the user id; the
// doctor id lets /appointments/mine resolve the caller's agenda without a
// lookup.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	DoctorID *uuid.UUID  `json:"doctor_id,omitempty"`
	Kind     tokenKind   `json:"kind"`
}

func (c *sessionClaims) principal() (*domain.Claims, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !c.Role.IsValid() {
		return nil, ErrTokenInvalid
	}
	if c.DoctorID != nil && c.Role != domain.RoleDoctor {
		return nil, ErrTokenInvalid
	}
	return &domain.Claims{
		UserID:   userID,
		Email:    c.Email,
		Role:     c.Role,
		DoctorID: c.DoctorID,
	}, nil
}

type JWTManager struct {
	cfg    config.JWTConfig
	secret []byte
	now    func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{cfg: cfg, secret: []byte(cfg.Secret), now: time.Now}
}

// GenerateTokenPair signs an access and a refresh token for the same
// principal. ExpiresAt reports the access token's expiry.
func (m *JWTManager) GenerateTokenPair(claims *domain.Claims) (*domain.TokenPair, error) {
	if claims.DoctorID != nil && claims.Role != domain.RoleDoctor {
		return nil, errDoctorClaimRole
	}

	access, expiresAt, err := m.sign(claims, kindAccess, m.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, _, err := m.sign(claims, kindRefresh, m.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

func (m *JWTManager) ValidateAccessToken(token string) (*domain.Claims, error) {
	return m.parse(token, kindAccess)
}

func (m *JWTManager) ValidateRefreshToken(token string) (*domain.Claims, error) {
	return m.parse(token, kindRefresh)
}

func (m *JWTManager) sign(claims *domain.Claims, kind tokenKind, ttl time.Duration) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(ttl)

	payload := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.cfg.Issuer,
			Subject:   claims.UserID.String(),
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:    claims.Email,
		Role:     claims.Role,
		DoctorID: claims.DoctorID,
		Kind:     kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *JWTManager) parse(raw string, want tokenKind) (*domain.Claims, error) {
	var sc sessionClaims
	_, err := jwt.ParseWithClaims(raw, &sc,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenInvalid
	}

	if sc.Kind != want {
		return nil, ErrTokenTypeMismatch
	}
	return sc.principal()
}
