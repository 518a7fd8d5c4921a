package service

import (
	"context"
	"errors"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/jwt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService is the minimal slice of the auth collaborator this service
// needs: a login that issues the token the middleware turns into actor
// attribution.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *model.Actor, error)
}

type authService struct {
	actors repository.ActorRepository
}

func NewAuthService(actors repository.ActorRepository) AuthService {
	return &authService{actors: actors}
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *model.Actor, error) {
	actor, err := s.actors.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !actor.IsActive || !actor.CheckPassword(password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(actor.ID, actor.Email, actor.FullName)
	if err != nil {
		return "", nil, err
	}
	return token, actor, nil
}
