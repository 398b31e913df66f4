package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"resty.dev/v3"

	"skyfed/internal/config"
)

var requestLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "skyfed_search_request_latency",
		Help:    "Histogram of search index request latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	},
	[]string{"status_code"},
)

type document struct {
	Text string `json:"text"`
}

// Indexer upserts post text into an Elasticsearch-compatible index.
type Indexer struct {
	Logger *slog.Logger
	Config *config.Config

	client *resty.Client
}

func (i *Indexer) Init(_ context.Context) error {
	i.Logger = i.Logger.With("component", "search.Indexer")

	i.client = resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         2 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   2 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}).
		SetBaseURL(i.Config.SearchURL).
		AddResponseMiddleware(observeLatency)

	return nil
}

func (i *Indexer) Shutdown(_ context.Context) error {
	return i.client.Close()
}

func (i *Indexer) Upsert(ctx context.Context, id, text string) error {
	res, err := i.client.R().
		WithContext(ctx).
		SetPathParams(map[string]string{"index": i.Config.SearchIndex, "id": id}).
		SetBody(document{Text: text}).
		Put("/{index}/_doc/{id}")
	if err != nil {
		return fmt.Errorf("index %s: %w", id, err)
	}
	if res.IsError() {
		return fmt.Errorf("index %s: unexpected status %d: %s", id, res.StatusCode(), res.String())
	}

	i.Logger.Debug("post indexed", "post", id)
	return nil
}

func observeLatency(_ *resty.Client, res *resty.Response) error {
	requestLatency.WithLabelValues(fmt.Sprintf("%d", res.StatusCode())).Observe(res.Duration().Seconds())
	return nil
}
