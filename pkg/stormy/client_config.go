package stormy

import (
	"time"

	"resty.dev/v3"
)

type ClientConfig struct {
	// BaseURL defaults to the public AppView.
	BaseURL   string
	UserAgent string

	TransportSettings *resty.TransportSettings
	RetryCount        int

	RequestMiddlewares []resty.RequestMiddleware
}

var DefaultConfig = &ClientConfig{
	UserAgent:  "skyfed-bridge",
	RetryCount: 2,
	TransportSettings: &resty.TransportSettings{
		DialerTimeout:         2 * time.Second,
		TLSHandshakeTimeout:   2 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		IdleConnTimeout:       30 * time.Second,
	},
}
