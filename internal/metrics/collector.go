package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm/schema"

	"skyfed/internal/core"
	"skyfed/internal/persistence"
)

const collectInterval = 15 * time.Second

var tableCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "skyfed_table_estimated_count",
	Help: "Estimated record count for a table.",
}, []string{"table"})

var collectedTables = []schema.Tabler{
	core.ActorModel{},
	core.PostModel{},
	core.ReactionModel{},
	core.FollowingModel{},
}

// Collector periodically publishes planner row estimates of the busiest tables.
type Collector struct {
	Logger *slog.Logger
	DB     *persistence.DB
}

func (c *Collector) Init(_ context.Context) error {
	c.Logger = c.Logger.With("component", "metrics.Collector")
	return nil
}

func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(collectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Logger.Debug("Collecting metrics")
			for _, table := range collectedTables {
				if err := c.collectTableEstimatedCount(table); err != nil {
					c.Logger.Warn("failed to estimate table size", "table", table.TableName(), "error", err)
				}
			}
		}
	}
}

func (c *Collector) collectTableEstimatedCount(tabler schema.Tabler) error {
	count, err := c.DB.EstimatedCount(tabler.TableName())
	if err != nil {
		return err
	}
	tableCount.WithLabelValues(tabler.TableName()).Set(float64(count))
	return nil
}
