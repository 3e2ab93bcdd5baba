package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/repository"
	"github.com/qualitrack/qc-api/pkg/auth"
	"github.com/qualitrack/qc-api/pkg/security"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthServicer authenticates callers and issues tokens.
type AuthServicer interface {
	Login(ctx context.Context, email, password string) (*model.Account, string, error)
}

type Service struct {
	accounts repository.AccountRepository
	hasher   security.PasswordHasher
	tokens   auth.JWTService
}

func NewService(accounts repository.AccountRepository, hasher security.PasswordHasher, tokens auth.JWTService) *Service {
	return &Service{accounts: accounts, hasher: hasher, tokens: tokens}
}

// Login verifies the credentials and returns the account with a signed
// access token. Unknown email and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Account, string, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up account: %w", err)
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(account)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return account, token, nil
}
