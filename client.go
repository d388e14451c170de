package gostatement

import (
	"context"
	"io"
)

// Merger concatenates the bodies of ordered chunk URLs into w, re-framing
// them so the output is one well formed document of the given format.
type Merger interface {
	Merge(ctx context.Context, format Format, urls []ChunkURL, w io.Writer) error
}

// Client executes statements and fetches their results. It is safe for
// concurrent use; calls share nothing but the HTTP connection pools.
type Client struct {
	cfg    *Config
	rest   *statementRestful
	chunks clientInterface
	merger Merger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithMerger replaces the default stream merge engine.
func WithMerger(m Merger) ClientOption {
	return func(c *Client) {
		c.merger = m
	}
}

// NewClient validates cfg and returns a client for it. cfg is copied.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	config := *cfg
	if err := fillMissingConfigParameters(&config); err != nil {
		return nil, err
	}
	auth, err := newAuthenticator(&config)
	if err != nil {
		return nil, err
	}
	service, chunks := newHTTPClients(&config)
	c := &Client{
		cfg: &config,
		rest: &statementRestful{
			baseURL:       config.baseURL(),
			client:        service,
			auth:          auth,
			timeout:       config.RequestTimeout,
			maxRetryCount: config.MaxRetryCount,
		},
		chunks: chunks,
	}
	c.merger = newDefaultMerger(c)
	for _, opt := range opts {
		opt(c)
	}
	logger.Debugf("client created for %v, warehouse %v", config.Host, config.warehouseID())
	return c, nil
}
