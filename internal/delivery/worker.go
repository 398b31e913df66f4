package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zhulik/pips"
	"github.com/zhulik/pips/apply"
	"resty.dev/v3"

	"skyfed/internal/core"
	"skyfed/internal/nats"
)

const (
	consumerName = "delivery-worker"
	contentType  = "application/activity+json"
	retryDelay   = 30 * time.Second
)

var deliveriesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skyfed_deliveries_processed_total",
	Help: "The total number of outbound deliveries by outcome",
}, []string{"outcome"})

// Worker posts queued activities to remote inboxes. Server errors are retried by
// redelivery; client errors drop the message.
type Worker struct {
	Logger   *slog.Logger
	Consumer core.MessageConsumer

	client *resty.Client
}

func (w *Worker) Init(_ context.Context) error {
	w.Logger = w.Logger.With("component", "delivery.Worker")
	w.client = resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         5 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	})
	return nil
}

func (w *Worker) Shutdown(_ context.Context) error {
	return w.client.Close()
}

func (w *Worker) Run(ctx context.Context) error {
	return w.Consumer.ConsumeToPipeline(ctx, consumerName,
		pips.New[jetstream.Msg, any]().
			Then(
				apply.Each(func(ctx context.Context, msg jetstream.Msg) error {
					return w.handle(ctx, msg)
				}),
			),
	)
}

func (w *Worker) handle(ctx context.Context, msg jetstream.Msg) error {
	var d nats.Delivery
	if err := json.Unmarshal(msg.Data(), &d); err != nil {
		w.Logger.Error("dropping malformed delivery", "error", err)
		deliveriesProcessed.WithLabelValues("malformed").Inc()
		return msg.Term()
	}

	retry, err := w.Send(ctx, d)
	switch {
	case err == nil:
		deliveriesProcessed.WithLabelValues("delivered").Inc()
		return msg.Ack()
	case retry:
		w.Logger.Warn("delivery failed, retrying", "inbox", d.Inbox, "error", err)
		deliveriesProcessed.WithLabelValues("retried").Inc()
		return msg.NakWithDelay(retryDelay)
	default:
		w.Logger.Warn("delivery rejected", "inbox", d.Inbox, "error", err)
		deliveriesProcessed.WithLabelValues("rejected").Inc()
		return msg.Term()
	}
}

// Send posts one activity. The boolean reports whether a failure is worth retrying.
func (w *Worker) Send(ctx context.Context, d nats.Delivery) (bool, error) {
	res, err := w.client.R().
		WithContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(d.Activity).
		Post(d.Inbox)
	if err != nil {
		return true, err
	}
	if res.StatusCode() >= 500 || res.StatusCode() == 429 {
		return true, fmt.Errorf("remote answered %d", res.StatusCode())
	}
	if res.IsError() {
		return false, fmt.Errorf("remote answered %d", res.StatusCode())
	}
	return false, nil
}
