package activities

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"skyfed/internal/config"
	"skyfed/internal/core"
	"skyfed/internal/publishing"
)

var activitiesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skyfed_activities_processed_total",
	Help: "The total number of inbound activities by type and outcome",
}, []string{"type", "outcome"})

// Dispatcher routes inbound activities from remote actors to their handlers.
type Dispatcher struct {
	Logger *slog.Logger
	Config *config.Config

	Store      core.Store
	Publisher  *publishing.Publisher
	Stream     core.StreamSink
	Deliveries core.DeliveryQueue
	Policy     core.FollowPolicy
	Clock      core.Clock
}

func (d *Dispatcher) Init(_ context.Context) error {
	d.Logger = d.Logger.With("component", "activities.Dispatcher")
	return nil
}

// DispatchRaw decodes and dispatches a raw activity document.
func (d *Dispatcher) DispatchRaw(ctx context.Context, actor *core.ActorModel, raw []byte) error {
	activity, err := Decode(raw)
	if err != nil {
		activitiesProcessed.WithLabelValues("Malformed", "rejected").Inc()
		return err
	}
	return d.Dispatch(ctx, actor, activity)
}

// Dispatch applies an activity sent by actor. Unknown activity types succeed without effect.
// A panicking handler is reported as ErrHandlerPanicked. A nil actor is malformed.
func (d *Dispatcher) Dispatch(ctx context.Context, actor *core.ActorModel, activity Activity) (err error) {
	if actor == nil || activity == nil {
		activitiesProcessed.WithLabelValues("Malformed", "rejected").Inc()
		return core.ErrMalformedActivity
	}

	label := TypeOf(activity)
	if _, ok := activity.(Unknown); ok {
		label = "Unknown"
	}

	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error("activity handler panicked", "type", label, "actor", actor.URI, "panic", r)
			err = fmt.Errorf("%w: %v", core.ErrHandlerPanicked, r)
		}

		outcome := "ok"
		if err != nil {
			outcome = "rejected"
		}
		activitiesProcessed.WithLabelValues(label, outcome).Inc()
	}()

	switch a := activity.(type) {
	case Create:
		return d.create(ctx, actor, a)
	case Delete:
		return d.delete(ctx, actor, a)
	case Follow:
		return d.follow(ctx, actor, a)
	case Accept:
		return nil
	case Undo:
		return d.undo(ctx, actor, a)
	case Unknown:
		d.Logger.Info("unknown activity type", "type", a.Type, "id", a.ID, "actor", actor.URI)
		return nil
	default:
		return core.ErrUnsupportedActivity
	}
}
