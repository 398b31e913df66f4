package nats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skyfed/internal/nats"
)

func TestDeliveryID(t *testing.T) {
	t.Parallel()

	id := nats.DeliveryID("https://local.example/posts/1/activity", "https://remote.example/inbox")

	assert.Len(t, id, 64)
	assert.Equal(t, id, nats.DeliveryID("https://local.example/posts/1/activity", "https://remote.example/inbox"))
	assert.NotEqual(t, id, nats.DeliveryID("https://local.example/posts/1/activity", "https://other.example/inbox"))
	assert.NotEqual(t, id, nats.DeliveryID("https://local.example/posts/2/activity", "https://remote.example/inbox"))
}
