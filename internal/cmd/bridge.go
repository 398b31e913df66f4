package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"skyfed/internal/bluesky"
	"skyfed/internal/cmd/flags"
	"skyfed/internal/config"
	"skyfed/internal/metrics"
)

var bridgeCmd = &cli.Command{
	Name:  "bluesky-bridge",
	Usage: "Mirror Bluesky posts into the local timeline",
	Flags: []cli.Flag{
		flags.Domain,
		flags.MetricsAddr,
		flags.DatabaseURL,
		flags.NATSURL,
		flags.NATSInit,
		flags.SearchEnabled,
		flags.SearchURL,
		flags.SearchIndex,
		flags.BlueskyURL,
		flags.BlueskyDIDs,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c,
			backendServices(config.BackendPostgres),
			domainServices(),
			pal.Provide(&bluesky.Subscriber{}),
			pal.Provide(&bluesky.Bridge{}),
			pal.Provide(&metrics.Server{}),
		)
	},
}
