package nats

import (
	"context"
	"log/slog"
	"time"

	libnats "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"skyfed/internal/config"
)

const (
	appName = "skyfed"

	// Work queues are durable; live stream events use core NATS subjects and are not retained.
	subjectDeliveries = appName + ".deliveries"
	subjectCounters   = appName + ".counters"
	subjectStream     = appName + ".stream."

	bucketLedger = appName + "-distributed"
	bucketState  = appName + "-state"

	ledgerTTL    = 7 * 24 * time.Hour
	dedupeWindow = 24 * time.Hour
	streamMaxAge = 72 * time.Hour
)

type NATS struct {
	Logger *slog.Logger
	Config *config.Config

	Conn   *libnats.Conn
	JS     jetstream.JetStream
	Ledger jetstream.KeyValue
	State  jetstream.KeyValue
}

func (n *NATS) Init(ctx context.Context) error {
	n.Logger = n.Logger.With("component", "nats.NATS")

	nc, err := libnats.Connect(n.Config.NATSURL, libnats.Name(appName))
	if err != nil {
		return err
	}
	n.Conn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return err
	}
	n.JS = js

	if n.Config.NATSInit {
		if err := n.initNATS(ctx); err != nil {
			return err
		}
	}

	if n.Ledger, err = js.KeyValue(ctx, bucketLedger); err != nil {
		return err
	}
	if n.State, err = js.KeyValue(ctx, bucketState); err != nil {
		return err
	}

	return nil
}

func (n *NATS) HealthCheck(context.Context) error {
	_, err := n.Conn.RTT()
	return err
}

func (n *NATS) Shutdown(context.Context) error {
	return n.Conn.Drain()
}

func (n *NATS) initNATS(ctx context.Context) error {
	n.Logger.Info("Initializing NATS")
	_, err := n.JS.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       appName,
		Subjects:   []string{subjectDeliveries, subjectCounters},
		MaxAge:     streamMaxAge,
		Duplicates: dedupeWindow,
	})
	if err != nil {
		return err
	}
	n.Logger.Info("Stream created or updated", "name", appName)

	_, err = n.JS.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucketLedger,
		TTL:    ledgerTTL,
	})
	if err != nil {
		return err
	}
	n.Logger.Info("KeyValue created or updated", "name", bucketLedger)

	_, err = n.JS.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucketState,
	})
	if err != nil {
		return err
	}
	n.Logger.Info("KeyValue created or updated", "name", bucketState)

	return nil
}
