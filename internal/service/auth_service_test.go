package service

import (
	"context"
	"errors"
	"testing"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/pkg/jwt"
)

func TestLogin(t *testing.T) {
	repo := newFakeActorRepo()
	actor := &model.Actor{Email: "ops@example.com", FullName: "Ops", IsActive: true}
	if err := actor.SetPassword("s3cret"); err != nil {
		t.Fatal(err)
	}
	_ = repo.Create(context.Background(), actor)

	inactive := &model.Actor{Email: "gone@example.com", FullName: "Gone", IsActive: false}
	if err := inactive.SetPassword("s3cret"); err != nil {
		t.Fatal(err)
	}
	_ = repo.Create(context.Background(), inactive)

	svc := NewAuthService(repo)
	ctx := context.Background()

	token, got, err := svc.Login(ctx, "ops@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.Email != actor.Email {
		t.Errorf("actor email = %q", got.Email)
	}
	claims, err := jwt.ValidateToken(token)
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}
	if claims.ActorID != actor.ID || claims.Name != "Ops" {
		t.Errorf("claims = %+v", claims)
	}

	for name, attempt := range map[string][2]string{
		"wrong password": {"ops@example.com", "wrong"},
		"unknown email":  {"nobody@example.com", "s3cret"},
		"inactive actor": {"gone@example.com", "s3cret"},
	} {
		if _, _, err := svc.Login(ctx, attempt[0], attempt[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: err = %v, want ErrInvalidCredentials", name, err)
		}
	}
}
