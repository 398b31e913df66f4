package persistence

import (
	"context"

	"gorm.io/gorm"

	"skyfed/internal/core"
)

// Store is the gorm-backed core.Store.
type Store struct {
	DB *DB

	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Init(_ context.Context) error {
	s.db = s.DB.Gorm()
	return nil
}

func (s *Store) Posts() core.PostRepository         { return &postRepository{s.db} }
func (s *Store) Actors() core.ActorRepository       { return &actorRepository{s.db} }
func (s *Store) Channels() core.ChannelRepository   { return &channelRepository{s.db} }
func (s *Store) Media() core.MediaRepository        { return &mediaRepository{s.db} }
func (s *Store) Follows() core.FollowRepository     { return &followRepository{s.db} }
func (s *Store) Reactions() core.ReactionRepository { return &reactionRepository{s.db} }

// AutoMigrate creates the schema from the models. Deployments use the SQL migrations;
// this serves throwaway databases.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}
