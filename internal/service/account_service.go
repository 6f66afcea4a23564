package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/estates-web/internal/auth"
	"github.com/spec-kit/estates-web/internal/config"
	"github.com/spec-kit/estates-web/internal/domain"
	"github.com/spec-kit/estates-web/internal/events"
	"github.com/spec-kit/estates-web/internal/repository"
	"github.com/spec-kit/estates-web/internal/token"
)

// Sentinel errors the handlers translate into user-visible form errors.
// Anything else escaping the service is an infrastructure failure.
var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrUserNotFound    = errors.New("user not found")
	ErrNotConfirmed    = errors.New("account not confirmed")
	ErrInvalidPassword = errors.New("invalid password")
	ErrTokenInvalid    = errors.New("token invalid or consumed")
)

// AccountService coordinates registration, login, confirmation and
// password-reset flows over the single users table.
type AccountService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	redeemer   *token.Redeemer
	sessions   *auth.SessionManager
	bcryptCost int
	logger     *zap.Logger
}

// AccountDependencies encapsulates collaborator requirements.
type AccountDependencies struct {
	Users      repository.UserRepository
	Dispatcher events.Dispatcher
	Redeemer   *token.Redeemer
	Logger     *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		users:      deps.Users,
		dispatcher: deps.Dispatcher,
		redeemer:   deps.Redeemer,
		sessions:   auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL()),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// Register creates an unconfirmed account with a pending confirmation token
// and publishes the event that triggers the confirmation email. The
// plaintext password is hashed here, at the persistence boundary; it is
// never stored or logged.
func (s *AccountService) Register(ctx context.Context, name, email, phone, password string) (*domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if err != pgx.ErrNoRows {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	confirmToken := token.NewOpaque()
	user := &domain.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Token:        &confirmToken,
		Confirmed:    false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Name:  user.Name,
		Email: user.Email,
		Token: confirmToken,
	})
	return user, nil
}

// Authenticate verifies credentials and issues a session token. Checks run
// in order: existence, confirmation, password; the first failure wins and
// each maps to a distinct user-visible message.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, ErrUserNotFound
		}
		return nil, "", time.Time{}, err
	}
	if !user.Confirmed {
		return nil, "", time.Time{}, ErrNotConfirmed
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidPassword
	}

	signed, expiresAt, err := s.sessions.Issue(user.ID, user.Name)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, signed, expiresAt, nil
}

// Confirm redeems a confirmation token: the token is nulled and the account
// marked confirmed, both in one update. A second attempt with the same value
// no longer matches any row and fails with ErrTokenInvalid, which is the
// mechanism enforcing single use.
func (s *AccountService) Confirm(ctx context.Context, tokenStr string) (*domain.User, error) {
	user, err := s.users.GetByToken(ctx, tokenStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	if !s.redeemer.Claim(ctx, tokenStr) {
		return nil, ErrTokenInvalid
	}

	user.Token = nil
	user.Confirmed = true
	if err := s.users.Update(ctx, user); err != nil {
		s.redeemer.Release(ctx, tokenStr)
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset stores a fresh reset token on the account and
// publishes the event that triggers the reset email. Any pending token,
// including an unconsumed confirmation token, is overwritten.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	resetToken := token.NewOpaque()
	user.Token = &resetToken
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventPasswordResetRequested, user.ID, events.PasswordResetRequestedPayload{
		Name:  user.Name,
		Email: user.Email,
		Token: resetToken,
	})
	return user, nil
}

// VerifyResetToken is the read-only gate before the new-password form; it
// does not consume the token.
func (s *AccountService) VerifyResetToken(ctx context.Context, tokenStr string) (*domain.User, error) {
	user, err := s.users.GetByToken(ctx, tokenStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return user, nil
}

// CompleteReset redeems a reset token: the password is rehashed with a
// fresh salt and the token nulled. The token may have vanished between the
// form render and the submit, so the lookup failure is handled rather than
// assumed away.
func (s *AccountService) CompleteReset(ctx context.Context, tokenStr, password string) error {
	user, err := s.users.GetByToken(ctx, tokenStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrTokenInvalid
		}
		return err
	}

	if !s.redeemer.Claim(ctx, tokenStr) {
		return ErrTokenInvalid
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.redeemer.Release(ctx, tokenStr)
		return err
	}

	user.PasswordHash = hash
	user.Token = nil
	if err := s.users.Update(ctx, user); err != nil {
		s.redeemer.Release(ctx, tokenStr)
		return err
	}
	return nil
}

// SessionManager exposes the underlying manager for middleware usage.
func (s *AccountService) SessionManager() *auth.SessionManager {
	return s.sessions
}

func (s *AccountService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
