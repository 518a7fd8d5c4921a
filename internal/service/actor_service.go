package service

import (
	"context"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/google/uuid"
)

// ActorResolver turns a claimed actor id into an attribution for audit
// rows. It is injected wherever attribution is needed; unknown or missing
// actors resolve to the configured fallback with Known=false, so a default
// never masquerades as a real user.
type ActorResolver struct {
	actors   repository.ActorRepository
	fallback string
}

func NewActorResolver(actors repository.ActorRepository, fallback string) *ActorResolver {
	if fallback == "" {
		fallback = "system"
	}
	return &ActorResolver{actors: actors, fallback: fallback}
}

func (r *ActorResolver) Resolve(ctx context.Context, actorID string) model.ActorRef {
	id, err := uuid.Parse(actorID)
	if err != nil {
		return r.Fallback()
	}
	actor, err := r.actors.FindByID(ctx, id)
	if err != nil || !actor.IsActive {
		return r.Fallback()
	}
	return model.ActorRef{ID: actor.ID.String(), Name: actor.FullName, Known: true}
}

func (r *ActorResolver) Fallback() model.ActorRef {
	return model.ActorRef{ID: r.fallback, Name: r.fallback}
}
