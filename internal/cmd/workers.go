package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"skyfed/internal/cmd/flags"
	"skyfed/internal/delivery"
	"skyfed/internal/metrics"
	"skyfed/internal/nats"
	"skyfed/internal/persistence"
	"skyfed/internal/reactions"
)

var counterWorkerCmd = &cli.Command{
	Name:  "counter-worker",
	Usage: "Apply queued reaction counter adjustments",
	Flags: []cli.Flag{
		flags.MetricsAddr,
		flags.DatabaseURL,
		flags.NATSURL,
		flags.NATSInit,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c,
			persistence.Provide(),
			nats.Provide(),
			pal.Provide(&reactions.CounterWorker{}),
			pal.Provide(&metrics.Server{}),
		)
	},
}

var deliveryWorkerCmd = &cli.Command{
	Name:  "delivery-worker",
	Usage: "Deliver queued activities to remote inboxes",
	Flags: []cli.Flag{
		flags.MetricsAddr,
		flags.NATSURL,
		flags.NATSInit,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c,
			nats.Provide(),
			pal.Provide(&delivery.Worker{}),
			pal.Provide(&metrics.Server{}),
		)
	},
}
