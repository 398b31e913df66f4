package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skyfed/internal/core"
)

type postRepository struct {
	db *gorm.DB
}

func (r *postRepository) Find(ctx context.Context, id string) (*core.PostModel, error) {
	var post core.PostModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&post).Error; err != nil {
		return nil, fmt.Errorf("post %s: %w", id, Translate(err))
	}
	return &post, nil
}

func (r *postRepository) FindByURI(ctx context.Context, uri string) (*core.PostModel, error) {
	var post core.PostModel
	if err := r.db.WithContext(ctx).Where("uri = ?", uri).Take(&post).Error; err != nil {
		return nil, fmt.Errorf("post %s: %w", uri, Translate(err))
	}
	return &post, nil
}

// FindMostRecent follows the author's latest_post_id, the same pointer Insert swaps.
func (r *postRepository) FindMostRecent(ctx context.Context, authorID string) (*core.PostModel, error) {
	var actor core.ActorModel
	err := r.db.WithContext(ctx).Select("id", "latest_post_id").Where("id = ?", authorID).Take(&actor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Translate(err)
	}
	if actor.LatestPostID == nil {
		return nil, nil
	}
	return r.Find(ctx, *actor.LatestPostID)
}

// Insert swaps the author's latest post pointer and stores the post in one transaction.
// The conditional update locks the author row, so concurrent inserts serialize on it
// and all but one see zero affected rows.
func (r *postRepository) Insert(ctx context.Context, post *core.PostModel, predecessorID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swap := tx.Model(&core.ActorModel{}).Where("id = ?", post.AuthorID)
		if predecessorID == "" {
			swap = swap.Where("latest_post_id IS NULL")
		} else {
			swap = swap.Where("latest_post_id = ?", predecessorID)
		}

		res := swap.Update("latest_post_id", post.ID)
		if res.Error != nil {
			return Translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return core.ErrPredecessorChanged
		}

		return Translate(tx.Create(post).Error)
	})
}

func (r *postRepository) MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&core.PostModel{}).
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

func (r *postRepository) AdjustReactionCounter(ctx context.Context, id, label string, delta int64) error {
	return Translate(AdjustCounter(r.db.WithContext(ctx), id, label, delta))
}

func (r *postRepository) ReactionCounts(ctx context.Context, id string) (map[string]int64, error) {
	var counters []core.ReactionCounterModel
	if err := r.db.WithContext(ctx).Where("post_id = ?", id).Find(&counters).Error; err != nil {
		return nil, Translate(err)
	}

	counts := make(map[string]int64, len(counters))
	for _, c := range counters {
		counts[c.Label] = c.Count
	}
	return counts, nil
}

// AdjustCounter upserts a reaction counter row. It runs on tx so callers can
// make it part of a larger transaction.
func AdjustCounter(tx *gorm.DB, postID, label string, delta int64) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}, {Name: "label"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count": gorm.Expr("reaction_counters.count + ?", delta),
		}),
	}).Create(&core.ReactionCounterModel{PostID: postID, Label: label, Count: delta}).Error
}
