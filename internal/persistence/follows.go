package persistence

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skyfed/internal/core"
)

type followRepository struct {
	db *gorm.DB
}

func (r *followRepository) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&core.FollowingModel{FollowerID: followerID, FolloweeID: followeeID})
	return res.RowsAffected > 0, Translate(res.Error)
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&core.FollowingModel{})
	return res.RowsAffected > 0, Translate(res.Error)
}

func (r *followRepository) Request(ctx context.Context, req core.FollowRequestModel) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&req)
	return res.RowsAffected > 0, Translate(res.Error)
}

func (r *followRepository) CancelRequest(ctx context.Context, followerID, followeeID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&core.FollowRequestModel{})
	return res.RowsAffected > 0, Translate(res.Error)
}

func (r *followRepository) RemoteFollowers(ctx context.Context, followeeID string) ([]core.ActorModel, error) {
	var followers []core.ActorModel
	err := r.db.WithContext(ctx).
		Joins("JOIN followings ON followings.follower_id = actors.id").
		Where("followings.followee_id = ?", followeeID).
		Where("actors.host <> '' AND actors.deleted_at IS NULL").
		Order("actors.id").
		Find(&followers).Error
	return followers, Translate(err)
}
