package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

// AccountService implements signup, authentication and profile lookups.
type AccountService struct {
	repo      ports.AccountRepository
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewAccountService(repo ports.AccountRepository, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AccountService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AccountService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: log, now: clock}
}

// Signup creates an account. Pullers start pending; everyone else is approved.
func (s *AccountService) Signup(ctx context.Context, input ports.SignupInput) (*domain.Account, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(input.Role)))
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if len(input.Password) < domain.MinPasswordLength {
		return nil, domain.ErrWeakCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	now := s.now()
	account := &domain.Account{
		ID:             uuid.NewString(),
		Username:       username,
		PasswordHash:   string(hash),
		Role:           role,
		ApprovalStatus: domain.InitialApproval(role),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("role", string(role)).
		Str("approval_status", string(account.ApprovalStatus)).
		Msg("account created")
	return account, nil
}

// Authenticate verifies credentials and issues a token. Unapproved pullers
// are refused even with a correct password.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !account.Approved() {
		return nil, domain.ErrNotApproved
	}

	token, err := s.generateToken(account)
	if err != nil {
		return nil, fmt.Errorf("authenticate: sign token: %w", err)
	}
	return &ports.AuthResult{Token: token, Account: account}, nil
}

// Profile returns the caller's own account.
func (s *AccountService) Profile(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return account, nil
}

func (s *AccountService) generateToken(account *domain.Account) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      account.ID,
		"username": account.Username,
		"role":     string(account.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
