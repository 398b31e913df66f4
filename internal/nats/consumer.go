package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/zhulik/pips"
)

var consumerSubjects = map[string]string{
	"counter-worker":  subjectCounters,
	"delivery-worker": subjectDeliveries,
}

// Consumer runs the durable JetStream consumers of the workers.
type Consumer struct {
	NATS *NATS
}

// ConsumeToPipeline feeds the durable consumer's messages into pipeline until ctx is done.
// Messages are acked by the pipeline.
func (c *Consumer) ConsumeToPipeline(ctx context.Context, consumer string, pipeline *pips.Pipeline[jetstream.Msg, any]) error {
	n := c.NATS

	subject, ok := consumerSubjects[consumer]
	if !ok {
		return fmt.Errorf("unknown consumer %s", consumer)
	}

	cons, err := n.JS.CreateOrUpdateConsumer(ctx, appName, jetstream.ConsumerConfig{
		Durable:       consumer,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    10,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumer, err)
	}

	iter, err := cons.Messages()
	if err != nil {
		return err
	}

	ch := make(chan pips.D[jetstream.Msg])

	go func() {
		<-ctx.Done()
		iter.Stop()
	}()

	go func() {
		defer close(ch)

		for {
			msg, err := iter.Next()
			if err != nil {
				if !errors.Is(err, jetstream.ErrMsgIteratorClosed) {
					n.Logger.Error("consumer stopped", "consumer", consumer, "error", err)
				}
				return
			}

			select {
			case ch <- pips.NewD(msg):
			case <-ctx.Done():
				return
			}
		}
	}()

	n.Logger.Info("Consuming", "consumer", consumer, "subject", subject)

	return pipeline.
		Run(ctx, ch).
		Wait(ctx)
}
