package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"skyfed/internal/core"
)

type reactionRepository struct {
	db *gorm.DB
}

// Insert relies on the partial unique index over active (post_id, actor_id) pairs:
// of two concurrent reactions only one commits.
func (r *reactionRepository) Insert(ctx context.Context, reaction *core.ReactionModel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reaction).Error; err != nil {
			return Translate(err)
		}
		return Translate(AdjustCounter(tx, reaction.PostID, reaction.Label, 1))
	})
}

func (r *reactionRepository) Tombstone(ctx context.Context, postID, actorID string, at time.Time) (*core.ReactionModel, error) {
	var reaction core.ReactionModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("post_id = ? AND actor_id = ? AND deleted_at IS NULL", postID, actorID).
			Take(&reaction).Error
		if err != nil {
			return Translate(err)
		}

		res := tx.Model(&core.ReactionModel{}).
			Where("id = ? AND deleted_at IS NULL", reaction.ID).
			Update("deleted_at", at)
		if res.Error != nil {
			return Translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return core.ErrRecordNotFound
		}

		reaction.DeletedAt = &at
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reaction on %s by %s: %w", postID, actorID, err)
	}

	return &reaction, nil
}
