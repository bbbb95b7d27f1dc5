package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
)

const maxFailedAttempts = 5

const lockDuration = 15 * time.Minute

const minPasswordLength = 12

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	RecordLoginSuccess(ctx context.Context, id uuid.UUID) error
	RecordLoginFailure(ctx context.Context, id uuid.UUID, maxAttempts int, lockFor time.Duration) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// DoctorLinks resolves the doctor profile linked to a login.
type DoctorLinks interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*doctor.Doctor, error)
}

type AuthService struct {
	userRepo   UserRepository
	doctors    DoctorLinks
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	log        *zap.Logger
}

func NewAuthService(userRepo UserRepository, doctors DoctorLinks, jwtManager *auth.JWTManager, auditSvc *AuditService, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, doctors: doctors, jwtManager: jwtManager, auditSvc: auditSvc, log: log}
}

func (s *AuthService) Login(ctx context.Context, email, password string, ip string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Use bcrypt dummy hash to prevent timing-based user enumeration.
		// An attacker measuring response time should not be able to determine
		// whether the email exists in the system.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		// Record failed attempt; lock if threshold exceeded
		if err := s.userRepo.RecordLoginFailure(ctx, user.ID, maxFailedAttempts, lockDuration); err != nil {
			s.log.Error("failed to record login failure", zap.Error(err))
		}
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.RecordLoginSuccess(ctx, user.ID); err != nil {
		s.log.Error("failed to record login", zap.Error(err))
	}

	pair, err := s.jwtManager.GenerateTokenPair(s.claimsFor(ctx, user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       domain.Caller{UserID: user.ID, Role: user.Role, IP: ip},
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
	})
	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)

	return pair, nil
}

// RefreshToken issues a new access token given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Re-validate user is still active
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(s.claimsFor(ctx, user))
}

// CreateUser registers a staff login. Only admins may call it.
func (s *AuthService) CreateUser(ctx context.Context, cmd *domain.CreateUserCommand, caller domain.Caller) (*domain.UserProfile, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := validateCreateUser(cmd); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(cmd.Email)),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(cmd.FirstName),
		LastName:     strings.TrimSpace(cmd.LastName),
		Role:         cmd.Role,
		PhotoURL:     strings.TrimSpace(cmd.PhotoURL),
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       domain.ActionCreate,
		ResourceType: "user",
		ResourceID:   u.ID.String(),
		Changes:      changes(map[string]any{"email": u.Email, "role": u.Role}),
	})
	s.log.Info("user created",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
	)

	return u.Profile(), nil
}

func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Profile(), nil
}

// ChangePassword updates a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if err := validatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

// claimsFor builds the token claims for u. A doctor login that is not yet
// linked to a profile, or whose lookup fails, gets no doctor id and is
// resolved per request instead.
func (s *AuthService) claimsFor(ctx context.Context, u *domain.User) *domain.Claims {
	claims := &domain.Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	}
	if u.Role != domain.RoleDoctor || s.doctors == nil {
		return claims
	}

	d, err := s.doctors.GetByUserID(ctx, u.ID)
	switch {
	case err == nil:
		claims.DoctorID = &d.ID
	case !errors.Is(err, doctor.ErrDoctorNotFound):
		s.log.Warn("resolving doctor profile for token", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	return claims
}

func validatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return &ValidationError{Fields: []string{fmt.Sprintf("password must be at least %d characters", minPasswordLength)}}
	}
	return nil
}

func validateCreateUser(cmd *domain.CreateUserCommand) error {
	var errs fieldErrors
	if _, err := mail.ParseAddress(strings.TrimSpace(cmd.Email)); err != nil {
		errs.add("email is invalid")
	}
	if len(cmd.Password) < minPasswordLength {
		errs.add(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(cmd.FirstName) == "" {
		errs.add("first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs.add("last_name is required")
	}
	if !cmd.Role.IsValid() {
		errs.add(domain.ErrInvalidRole.Error())
	}
	return errs.err()
}
