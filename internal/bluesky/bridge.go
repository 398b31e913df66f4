package bluesky

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jeffail/gabs"
	"github.com/bluesky-social/jetstream/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"github.com/zhulik/pips"
	"github.com/zhulik/pips/apply"

	"skyfed/internal/activities"
	"skyfed/internal/core"
	"skyfed/internal/federation"
	"skyfed/pkg/stormy"
)

// Host is the host bridged Bluesky actors are registered under.
const Host = "bsky.app"

const imageCDN = "https://cdn.bsky.app/img/feed_fullsize/plain"

const (
	operationCreate = "create"
	operationDelete = "delete"
)

var commitsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skyfed_bluesky_commits_processed_total",
	Help: "The total number of bridged Bluesky commits by operation and outcome",
}, []string{"operation", "outcome"})

// Bridge mirrors Bluesky posts of the followed accounts into the local timeline.
type Bridge struct {
	Logger     *slog.Logger
	Subscriber *Subscriber
	Store      core.Store
	Dispatcher *activities.Dispatcher

	profiles *stormy.Client
}

func (b *Bridge) Init(_ context.Context) error {
	b.Logger = b.Logger.With("component", "bluesky.Bridge")
	b.profiles = stormy.NewClient(stormy.DefaultConfig)
	return nil
}

func (b *Bridge) Shutdown(_ context.Context) error {
	return b.profiles.Close()
}

func (b *Bridge) Run(ctx context.Context) error {
	return pips.New[*models.Event, any]().
		Then(apply.Each(func(ctx context.Context, event *models.Event) error {
			b.Handle(ctx, event)
			return nil
		})).
		Run(ctx, b.Subscriber.Events()).
		Wait(ctx)
}

// Handle applies one Jetstream event. Failures are logged: a single bad record must not stop the bridge.
func (b *Bridge) Handle(ctx context.Context, event *models.Event) {
	if event.Kind != models.EventKindCommit || event.Commit == nil || event.Commit.Collection != CollectionPost {
		return
	}

	operation := event.Commit.Operation

	activity, err := ToActivity(event)
	if err != nil {
		commitsProcessed.WithLabelValues(operation, "malformed").Inc()
		b.Logger.Warn("skipping malformed record", "did", event.Did, "rkey", event.Commit.RKey, "error", err)
		return
	}

	actor, err := b.actor(ctx, event.Did)
	if err != nil {
		commitsProcessed.WithLabelValues(operation, "failed").Inc()
		b.Logger.Error("failed to resolve bridged actor", "did", event.Did, "error", err)
		return
	}

	err = b.Dispatcher.Dispatch(ctx, actor, activity)
	if err != nil {
		commitsProcessed.WithLabelValues(operation, "rejected").Inc()
		b.Logger.Info("bridged record rejected", "did", event.Did, "rkey", event.Commit.RKey, "error", err)
		return
	}

	commitsProcessed.WithLabelValues(operation, "ok").Inc()
}

// actor returns the stored mirror of a Bluesky account, registering it on first sight.
func (b *Bridge) actor(ctx context.Context, did string) (*core.ActorModel, error) {
	uri := ActorURI(did)

	actor, err := b.Store.Actors().FindByURI(ctx, uri)
	if err == nil {
		return actor, nil
	}
	if !errors.Is(err, core.ErrRecordNotFound) {
		return nil, err
	}

	username := did
	handles, err := b.profiles.Handles(ctx, did)
	if err != nil {
		b.Logger.Warn("profile lookup failed, falling back to did", "did", did, "error", err)
	} else if handle, ok := handles[did]; ok {
		username = handle
	}

	return b.Store.Actors().EnsureRemote(ctx, &core.ActorModel{
		ID:       core.NewID(),
		Username: username,
		Host:     Host,
		URI:      uri,
	})
}

func ActorURI(did string) string {
	return "at://" + did
}

func PostURI(did, rkey string) string {
	return fmt.Sprintf("at://%s/%s/%s", did, CollectionPost, rkey)
}

// ToActivity translates a post commit into the activity a federated peer would have sent.
func ToActivity(event *models.Event) (activities.Activity, error) {
	commit := event.Commit
	uri := PostURI(event.Did, commit.RKey)

	switch commit.Operation {
	case operationCreate:
		note, err := noteFromRecord(event.Did, uri, commit.Record)
		if err != nil {
			return nil, err
		}
		return activities.Create{ID: uri + "#create", Object: note}, nil
	case operationDelete:
		return activities.Delete{ID: uri + "#delete", ObjectID: uri}, nil
	default:
		return activities.Unknown{ID: uri, Type: commit.Operation}, nil
	}
}

func noteFromRecord(did, uri string, record []byte) (activities.Note, error) {
	doc, err := gabs.ParseJSON(record)
	if err != nil {
		return activities.Note{}, fmt.Errorf("%w: %w", core.ErrMalformedActivity, err)
	}

	text, _ := doc.Path("text").Data().(string)

	note := activities.Note{
		ID:           uri,
		AttributedTo: ActorURI(did),
		To:           []string{federation.PublicURI},
		Hashtags:     hashtags(doc),
	}
	if text != "" {
		note.Content = lo.ToPtr(text)
	}

	if parent, ok := doc.Path("reply.parent.uri").Data().(string); ok {
		note.InReplyTo = &parent
	}

	embedType, _ := doc.Path("embed.$type").Data().(string)
	switch embedType {
	case "app.bsky.embed.record":
		if quoted, ok := doc.Path("embed.record.uri").Data().(string); ok {
			note.QuoteURL = &quoted
		}
	case "app.bsky.embed.recordWithMedia":
		if quoted, ok := doc.Path("embed.record.record.uri").Data().(string); ok {
			note.QuoteURL = &quoted
		}
		note.Attachments = images(did, doc.Path("embed.media.images"))
	case "app.bsky.embed.images":
		note.Attachments = images(did, doc.Path("embed.images"))
	}

	return note, nil
}

// images maps image embeds to their CDN URLs. Blobs without a CID are skipped.
func images(did string, node *gabs.Container) []activities.Attachment {
	items, _ := node.Children()

	return lo.FilterMap(items, func(image *gabs.Container, _ int) (activities.Attachment, bool) {
		cid, ok := image.Path("image.ref.$link").Data().(string)
		if !ok || cid == "" {
			return activities.Attachment{}, false
		}
		mimeType, _ := image.Path("image.mimeType").Data().(string)

		return activities.Attachment{
			URL:       fmt.Sprintf("%s/%s/%s@jpeg", imageCDN, did, cid),
			MediaType: mimeType,
		}, true
	})
}

// hashtags collects the tag facets of a post; the text itself already carries them as "#tag".
func hashtags(doc *gabs.Container) []string {
	facets, _ := doc.Path("facets").Children()

	tags := lo.FlatMap(facets, func(facet *gabs.Container, _ int) []string {
		features, _ := facet.Path("features").Children()
		return lo.FilterMap(features, func(feature *gabs.Container, _ int) (string, bool) {
			if t, _ := feature.Path("$type").Data().(string); t != "app.bsky.richtext.facet#tag" {
				return "", false
			}
			tag, ok := feature.Path("tag").Data().(string)
			return strings.TrimPrefix(tag, "#"), ok && tag != ""
		})
	})

	return lo.Uniq(tags)
}
