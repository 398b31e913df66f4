package nats

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/zeebo/blake3"

	"skyfed/internal/core"
	"skyfed/internal/reactions"
)

// Delivery is the payload of a queued outbound activity.
type Delivery struct {
	Inbox    string         `json:"inbox"`
	Activity map[string]any `json:"activity"`
}

type DeliveryQueue struct {
	NATS *NATS
}

// Enqueue publishes the delivery with a content-derived message ID, so a repeated
// distribution of the same activity to the same inbox is dropped by JetStream.
func (q *DeliveryQueue) Enqueue(ctx context.Context, inbox string, activity map[string]any) error {
	data, err := json.Marshal(Delivery{Inbox: inbox, Activity: activity})
	if err != nil {
		return err
	}

	id, _ := activity["id"].(string)

	_, err = q.NATS.JS.Publish(ctx, subjectDeliveries, data, jetstream.WithMsgID(DeliveryID(id, inbox)))
	return err
}

// DeliveryID identifies one activity sent to one inbox.
func DeliveryID(activityID, inbox string) string {
	sum := blake3.Sum256([]byte(activityID + "\n" + inbox))
	return hex.EncodeToString(sum[:])
}

type CounterQueue struct {
	NATS *NATS
}

func (q *CounterQueue) Enqueue(ctx context.Context, adjustment core.CounterAdjustment) error {
	data, err := reactions.EncodeAdjustment(adjustment)
	if err != nil {
		return err
	}

	_, err = q.NATS.JS.Publish(ctx, subjectCounters, data)
	return err
}

// Ledger records distributed posts in a KV bucket. Create fails for existing keys,
// which makes the claim atomic across processes. Create succeeds again once a key is deleted.
type Ledger struct {
	NATS *NATS
}

func (l *Ledger) Claim(ctx context.Context, postID string) (bool, error) {
	_, err := l.NATS.Ledger.Create(ctx, postID, []byte{1})
	if errors.Is(err, jetstream.ErrKeyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", postID, err)
	}
	return true, nil
}

func (l *Ledger) Release(ctx context.Context, postID string) error {
	if err := l.NATS.Ledger.Delete(ctx, postID); err != nil {
		return fmt.Errorf("release %s: %w", postID, err)
	}
	return nil
}
