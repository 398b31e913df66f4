package stormy

import (
	"context"

	"resty.dev/v3"
)

const publicAppView = "https://public.api.bsky.app"

// Client reads public records from a Bluesky AppView.
type Client struct {
	client *resty.Client
}

func NewClient(cfg *ClientConfig) *Client {
	url := cfg.BaseURL
	if url == "" {
		url = publicAppView
	}

	client := resty.NewWithTransportSettings(cfg.TransportSettings).
		SetBaseURL(url).
		SetRetryCount(cfg.RetryCount)

	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	for _, m := range cfg.RequestMiddlewares {
		client.AddRequestMiddleware(m)
	}

	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.client.R().WithContext(ctx)
}
