package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"skyfed/internal/api"
	"skyfed/internal/cmd/flags"
	"skyfed/internal/metrics"
	"skyfed/internal/streaming"
)

var serverCmd = &cli.Command{
	Name:  "server",
	Usage: "Serve the client API, the federation inbox and the live stream",
	Flags: []cli.Flag{
		flags.Backend,
		flags.Domain,
		flags.APIAddr,
		flags.MetricsAddr,
		flags.DatabaseURL,
		flags.NATSURL,
		flags.NATSInit,
		flags.SearchEnabled,
		flags.SearchURL,
		flags.SearchIndex,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c,
			backendServices(c.String(flags.Backend.Name)),
			domainServices(),
			pal.Provide(&streaming.Handler{}),
			pal.Provide(&api.Backend{}),
			pal.Provide(&api.Server{}),
			pal.Provide(&metrics.Server{}),
		)
	},
}
