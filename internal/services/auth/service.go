package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/worldgate/internal/dependencies/clock"
	"github.com/mcoot/worldgate/internal/dependencies/random"
	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrPasswordTooShort   = errors.New("password too short")
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// Mode selects how registration credentials are verified
type Mode string

const (
	// ModeInsecure treats the credential as the username and trusts it
	ModeInsecure Mode = "insecure"
	// ModeToken treats the credential as a token issued by IssueToken
	ModeToken Mode = "token"
)

// accountNamespace derives stable account UUIDs from usernames in insecure mode
var accountNamespace = uuid.MustParse("6f1c7a52-8d3e-4b1f-9c0a-2e5d7b9f4a10")

// Config holds configuration for the auth service
type Config struct {
	Mode          Mode
	TokenTTL      time.Duration
	TokenLength   int
	VerifyTimeout time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Mode:          ModeToken,
		TokenTTL:      24 * time.Hour,
		TokenLength:   32,
		VerifyTimeout: 10 * time.Second,
	}
}

// Service handles accounts and credential verification
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	cfg     Config
	logger  *slog.Logger
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.Mode == "" {
		cfg.Mode = defaults.Mode
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.TokenLength == 0 {
		cfg.TokenLength = defaults.TokenLength
	}
	if cfg.VerifyTimeout == 0 {
		cfg.VerifyTimeout = defaults.VerifyTimeout
	}
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "auth")),
	}
}

// Mode returns the configured verification mode
func (s *Service) Mode() Mode {
	return s.cfg.Mode
}

// InsecureAccountUUID is the account UUID a username logs in as in insecure mode
func InsecureAccountUUID(username string) uuid.UUID {
	return uuid.NewSHA1(accountNamespace, []byte(username))
}

// TokenTTL returns how long issued tokens stay valid
func (s *Service) TokenTTL() time.Duration {
	return s.cfg.TokenTTL
}

// RegisterAccount creates a new account with a bcrypt-hashed password
func (s *Service) RegisterAccount(ctx context.Context, username, password string) (*model.Account, error) {
	if !model.AliasIsValid(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	// Check if username exists
	_, err := s.storage.GetAccountByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	account := &model.Account{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		slog.String("username", username),
		slog.String("uuid", account.UUID.String()))
	return account, nil
}

// IssueToken checks a username/password pair and returns a login token
func (s *Service) IssueToken(ctx context.Context, username, password string) (string, error) {
	account, err := s.storage.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := s.random.String(s.cfg.TokenLength, random.TokenAlphabet)
	if err := s.storage.SaveToken(ctx, token, account.UUID, s.cfg.TokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// RevokeToken invalidates a token
func (s *Service) RevokeToken(ctx context.Context, token string) error {
	return s.storage.DeleteToken(ctx, token)
}

// BeginVerification starts verifying a registration credential and returns
// immediately. Poll the returned PendingLogin for the outcome.
func (s *Service) BeginVerification(credential string) *PendingLogin {
	if s.cfg.Mode == ModeInsecure {
		// Alias validity is checked at admission, not here
		return NewResolvedLogin(model.Identity{
			UUID:     InsecureAccountUUID(credential),
			Username: credential,
		})
	}

	if credential == "" {
		return NewFailedLogin(model.NewAuthError("missing token"))
	}

	pending, resolve := NewDeferredLogin()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.VerifyTimeout)
		defer cancel()
		resolve(s.verifyToken(ctx, credential))
	}()
	return pending
}

func (s *Service) verifyToken(ctx context.Context, token string) (model.Identity, error) {
	accountID, err := s.storage.ResolveToken(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrTokenNotFound) {
			return model.Identity{}, model.NewAuthError("invalid or expired token")
		}
		s.logger.Warn("token lookup failed", slog.Any("error", err))
		return model.Identity{}, model.NewAuthError("authentication backend unavailable")
	}

	account, err := s.storage.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return model.Identity{}, model.NewAuthError("account no longer exists")
		}
		s.logger.Warn("account lookup failed",
			slog.String("uuid", accountID.String()),
			slog.Any("error", err))
		return model.Identity{}, model.NewAuthError("authentication backend unavailable")
	}

	return account.Identity(), nil
}
