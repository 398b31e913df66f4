package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skyfed/internal/core"
)

type actorRepository struct {
	db *gorm.DB
}

func (r *actorRepository) Find(ctx context.Context, id string) (*core.ActorModel, error) {
	return r.take(ctx, "actor "+id, "id = ?", id)
}

func (r *actorRepository) FindByURI(ctx context.Context, uri string) (*core.ActorModel, error) {
	return r.take(ctx, "actor "+uri, "uri = ?", uri)
}

func (r *actorRepository) FindByAcct(ctx context.Context, username, host string) (*core.ActorModel, error) {
	return r.take(ctx, "actor "+core.Acct(username, host), "username = ? AND host = ?", username, host)
}

// EnsureRemote inserts the actor unless one with the same URI exists, then returns the stored row.
func (r *actorRepository) EnsureRemote(ctx context.Context, actor *core.ActorModel) (*core.ActorModel, error) {
	row := *actor
	if row.ID == "" {
		row.ID = core.NewID()
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, Translate(err)
	}

	return r.FindByURI(ctx, actor.URI)
}

func (r *actorRepository) MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&core.ActorModel{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at)
	if res.Error != nil {
		return false, Translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	if _, err := r.Find(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *actorRepository) take(ctx context.Context, what string, query string, args ...any) (*core.ActorModel, error) {
	var actor core.ActorModel
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&actor).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", what, Translate(err))
	}
	return &actor, nil
}
