package repository

import (
	"context"
	"errors"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActorRepository interface {
	Create(ctx context.Context, actor *model.Actor) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Actor, error)
	FindByEmail(ctx context.Context, email string) (*model.Actor, error)
}

type actorRepo struct {
	db *gorm.DB
}

func NewActorRepo(db *gorm.DB) ActorRepository {
	return &actorRepo{db}
}

func (r *actorRepo) Create(ctx context.Context, actor *model.Actor) error {
	return r.db.WithContext(ctx).Create(actor).Error
}

func (r *actorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Actor, error) {
	var actor model.Actor
	err := r.db.WithContext(ctx).First(&actor, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &actor, err
}

func (r *actorRepo) FindByEmail(ctx context.Context, email string) (*model.Actor, error) {
	var actor model.Actor
	err := r.db.WithContext(ctx).First(&actor, "email = ?", email).Error
	return &actor, err
}
