package persistence

import (
	"context"
	"database/sql"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skyfed/internal/config"
	"skyfed/internal/core"
)

// Models lists every table the store owns, in dependency order.
var Models = []any{
	&core.ActorModel{},
	&core.ChannelModel{},
	&core.MediaModel{},
	&core.PostModel{},
	&core.ReactionModel{},
	&core.ReactionCounterModel{},
	&core.FollowingModel{},
	&core.FollowRequestModel{},
}

type DB struct {
	Logger *slog.Logger
	Config *config.Config

	db *gorm.DB
}

func (db *DB) Init(_ context.Context) error {
	db.Logger = db.Logger.With("component", "persistence.DB")

	gormDB, err := Open(postgres.Open(db.Config.DatabaseURL))
	if err != nil {
		return err
	}

	db.db = gormDB

	return nil
}

// Open connects gorm with the settings every store relies on: silent logging and
// driver errors translated to gorm's sentinels.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
}

func (db *DB) Gorm() *gorm.DB {
	return db.db
}

func (db *DB) DB() (*sql.DB, error) {
	return db.db.DB()
}

func (db *DB) EstimatedCount(tableName string) (int64, error) {
	var count int64
	return count, db.db.Raw(
		`SELECT reltuples::bigint AS count 
				FROM pg_class 
				WHERE relname = ?`, tableName,
	).Scan(&count).Error
}

func (db *DB) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Shutdown(_ context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}
