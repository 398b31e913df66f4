package cmd

import (
	"github.com/zhulik/pal"

	"skyfed/internal/activities"
	"skyfed/internal/config"
	"skyfed/internal/core"
	"skyfed/internal/distribution"
	"skyfed/internal/memory"
	"skyfed/internal/metrics"
	"skyfed/internal/nats"
	"skyfed/internal/persistence"
	"skyfed/internal/publishing"
	"skyfed/internal/reactions"
	"skyfed/internal/search"
)

// domainServices are the publication, distribution and inbound processing services
// shared by the server and the bridge.
func domainServices() pal.ServiceDef {
	return pal.ProvideList(
		pal.Provide[core.Clock](&core.SystemClock{}),
		pal.Provide[core.FollowPolicy](&core.LockedPolicy{}),
		pal.Provide[core.SearchIndex](&search.Indexer{}),
		pal.Provide[publishing.Distributor](&distribution.Distributor{}),
		pal.Provide(&publishing.Publisher{}),
		pal.Provide(&activities.Dispatcher{}),
		pal.Provide(&reactions.Machine{}),
	)
}

// backendServices provide the store and the queues for the selected backend.
func backendServices(backend string) pal.ServiceDef {
	if backend == config.BackendMemory {
		stream := &memory.Stream{}

		return pal.ProvideList(
			pal.Provide[core.Store](memory.NewStore()),
			pal.Provide[core.StreamSink](stream),
			pal.Provide[core.StreamSubscriber](stream),
			pal.Provide[core.DeliveryQueue](&memory.Deliveries{}),
			pal.Provide[core.CounterQueue](&memory.CounterQueue{}),
			pal.Provide[core.DistributionLedger](&memory.Ledger{}),
		)
	}

	return pal.ProvideList(
		persistence.Provide(),
		nats.Provide(),
		pal.Provide(&metrics.Collector{}),
	)
}
