package nats

import (
	"github.com/zhulik/pal"

	"skyfed/internal/core"
)

func Provide() pal.ServiceDef {
	return pal.ProvideList(
		pal.Provide(&NATS{}),
		pal.Provide[core.StreamSink](&Stream{}),
		pal.Provide[core.StreamSubscriber](&Subscriptions{}),
		pal.Provide[core.DeliveryQueue](&DeliveryQueue{}),
		pal.Provide[core.CounterQueue](&CounterQueue{}),
		pal.Provide[core.DistributionLedger](&Ledger{}),
		pal.Provide[core.MessageConsumer](&Consumer{}),
	)
}
