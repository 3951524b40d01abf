package auth

import (
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/user"
)

// UserStore is the account access the auth flow needs.
type UserStore interface {
	GetByUsername(username string) (*user.User, error)
	GetByID(id int64) (*user.User, error)
	Update(u *user.User) error
}

// Service authenticates credentials and issues token pairs. Pending and
// blocked accounts cannot log in.
type Service struct {
	users      UserStore
	tokens     TokenGenerator
	logger     *slog.Logger
	bcryptCost int
}

func NewService(users UserStore, tokens TokenGenerator, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, tokens: tokens, logger: logger, bcryptCost: bcryptCost}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	u, err := s.users.GetByUsername(dto.Username)
	if err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	switch u.Status {
	case user.StatusBlocked:
		return AuthTokens{}, internal.ErrUserBlocked
	case user.StatusPending:
		return AuthTokens{}, internal.NewUnauthorizedError("account awaiting approval", internal.ErrCodeInvalidCredentials)
	}

	return s.issueTokens(u)
}

// RefreshTokens validates a refresh token and returns a new pair.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return AuthTokens{}, internal.ErrInvalidToken
	}
	if u.Status == user.StatusBlocked {
		return AuthTokens{}, internal.ErrUserBlocked
	}

	return s.issueTokens(u)
}

func (s *Service) issueTokens(u *user.User) (AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, u.Username)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to sign access token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID, u.Username)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to sign refresh token", err)
	}
	s.logger.Info("tokens issued", "user_id", u.ID, "username", u.Username)
	return AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// ResolveActor validates an access token and loads the account behind it.
func (s *Service) ResolveActor(tokenString string) (*user.User, error) {
	claims, err := s.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}
	if u.Status == user.StatusBlocked {
		return nil, internal.ErrUserBlocked
	}
	return u, nil
}

// ChangePassword verifies the old password and stores a new hash.
func (s *Service) ChangePassword(actor *user.User, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(dto.OldPassword)); err != nil {
		return internal.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}

	actor.PasswordHash = string(hash)
	if err := s.users.Update(actor); err != nil {
		s.logger.Error("failed to update password", "user_id", actor.ID, "error", err)
		return err
	}
	s.logger.Info("password changed", "user_id", actor.ID)
	return nil
}
