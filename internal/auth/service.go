package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/registria/registria/internal/shared"
	"github.com/registria/registria/internal/users"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. Every failure maps to
// the same error so the response never reveals which part was wrong.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session and records it on the user's token
// set.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if err := s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua); err != nil {
		return err
	}
	return s.repo.AppendToken(ctx, userID, id)
}

// RemoveSession deletes a session record and drops it from the user's
// token set.
func (s *Service) RemoveSession(ctx context.Context, id string, userID int64) error {
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return err
	}
	return s.repo.RemoveToken(ctx, userID, id)
}

// UserBySession loads the user a session belongs to and verifies the
// session is still in the user's token set. Sessions of revoked tokens are
// dead even if the cookie store has not expired them yet.
func (s *Service) UserBySession(ctx context.Context, sessionID string, userID int64) (users.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return users.User{}, err
	}
	for _, token := range user.Tokens {
		if token == sessionID {
			return user, nil
		}
	}
	return users.User{}, shared.ErrInvalidCredentials
}
