package services

import (
	"errors"
	"fmt"

	"etalase/internal/models"
	"etalase/internal/repositories"
)

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	Token string
	User  *models.User
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo repositories.UserRepository
	hasher   *PasswordHasher
	tokens   *TokenService
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   NewPasswordHasher(),
		tokens:   tokens,
	}
}

// Tokens exposes the token service used by the auth gate.
func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

// RegisterUser creates an account for a new email and returns a token for it.
func (s *AuthService) RegisterUser(username, email, password string) (*AuthResult, error) {
	if _, err := s.userRepo.GetByEmail(email); err == nil {
		return nil, ErrDuplicateUser
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(user); err != nil {
		// Two concurrent registrations can both pass the lookup above.
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	// Welcome e-mails are not sent on registration; mailer.Message is the hook if that changes.

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// LoginUser authenticates by email and password and returns a fresh token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) LoginUser(email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}
