package persistence

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"skyfed/internal/core"
)

type channelRepository struct {
	db *gorm.DB
}

func (r *channelRepository) Find(ctx context.Context, id string) (*core.ChannelModel, error) {
	var channel core.ChannelModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&channel).Error; err != nil {
		return nil, fmt.Errorf("channel %s: %w", id, Translate(err))
	}
	return &channel, nil
}

type mediaRepository struct {
	db *gorm.DB
}

func (r *mediaRepository) FindOwned(ctx context.Context, ownerID string, ids []string) ([]core.MediaModel, error) {
	var found []core.MediaModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Find(&found).Error
	if err != nil {
		return nil, Translate(err)
	}

	byID := lo.KeyBy(found, func(m core.MediaModel) string { return m.ID })

	return lo.FilterMap(ids, func(id string, _ int) (core.MediaModel, bool) {
		m, ok := byID[id]
		return m, ok
	}), nil
}

func (r *mediaRepository) Register(ctx context.Context, media []core.MediaModel) error {
	if len(media) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&media).Error; err != nil {
		return fmt.Errorf("register media: %w", Translate(err))
	}
	return nil
}
