package reactions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fxamacker/cbor/v2"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zhulik/pips"
	"github.com/zhulik/pips/apply"

	"skyfed/internal/core"
)

const consumerName = "counter-worker"

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("reactions: CBOR encoder initialization failed: " + err.Error())
	}
}

var adjustmentsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skyfed_counter_adjustments_total",
	Help: "The total number of consumed reaction counter adjustments by outcome",
}, []string{"outcome"})

// CounterWorker applies queued counter adjustments.
type CounterWorker struct {
	Logger *slog.Logger

	Store    core.Store
	Consumer core.MessageConsumer
}

func (w *CounterWorker) Init(_ context.Context) error {
	w.Logger = w.Logger.With("component", "reactions.CounterWorker")
	return nil
}

func (w *CounterWorker) Run(ctx context.Context) error {
	return w.Consumer.ConsumeToPipeline(ctx, consumerName,
		pips.New[jetstream.Msg, any]().
			Then(
				apply.Each(func(ctx context.Context, msg jetstream.Msg) error {
					if err := w.Apply(ctx, msg.Data()); err != nil {
						w.Logger.Error("failed to apply counter adjustment", "error", err)
						adjustmentsApplied.WithLabelValues("error").Inc()
						return msg.Nak()
					}
					adjustmentsApplied.WithLabelValues("ok").Inc()
					return msg.Ack()
				}),
			),
	)
}

// Apply decodes one queued adjustment and applies it to the post's counter.
func (w *CounterWorker) Apply(ctx context.Context, data []byte) error {
	adjustment, err := DecodeAdjustment(data)
	if err != nil {
		return err
	}

	if err := w.Store.Posts().AdjustReactionCounter(ctx, adjustment.PostID, adjustment.Label, adjustment.Delta); err != nil {
		return fmt.Errorf("adjust counter of %s: %w", adjustment.PostID, err)
	}
	return nil
}

func EncodeAdjustment(adjustment core.CounterAdjustment) ([]byte, error) {
	return encMode.Marshal(adjustment)
}

func DecodeAdjustment(data []byte) (core.CounterAdjustment, error) {
	var adjustment core.CounterAdjustment
	if err := cbor.Unmarshal(data, &adjustment); err != nil {
		return adjustment, fmt.Errorf("decode counter adjustment: %w", err)
	}
	return adjustment, nil
}
