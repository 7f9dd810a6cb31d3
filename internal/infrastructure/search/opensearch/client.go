// Package opensearch keeps a full-text index of judgment records in
// OpenSearch.
package opensearch

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/CaseLaw-Intelligence/internal/config"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// Client wraps the OpenSearch client with a cached health flag.
type Client struct {
	client  *opensearch.Client
	cfg     config.SearchConfig
	logger  logging.Logger
	healthy atomic.Bool
}

// NewClient creates a client and pings the cluster once.
func NewClient(cfg config.SearchConfig, logger logging.Logger) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	backoff := 100 * time.Millisecond
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  func(i int) time.Duration { return time.Duration(i) * backoff },
		RetryOnStatus: []int{502, 503, 504, 429},
		Transport:     transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchError, "failed to create opensearch client")
	}

	c := newClient(client, cfg, logger)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	logger.Info("OpenSearch connected", logging.Any("addresses", cfg.Addresses))
	return c, nil
}

func newClient(client *opensearch.Client, cfg config.SearchConfig, logger logging.Logger) *Client {
	return &Client{client: client, cfg: cfg, logger: logger.Named("opensearch")}
}

// Ping checks the connection and records the outcome.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := opensearchapi.PingRequest{}.Do(ctx, c.client)
	if err != nil {
		c.healthy.Store(false)
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "opensearch is unreachable")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		c.healthy.Store(false)
		return errors.New(errors.ErrCodeServiceUnavailable, "opensearch ping failed").
			WithDetail(resp.Status())
	}
	c.healthy.Store(true)
	return nil
}

// HealthCheck pings the cluster and logs a change of state.
func (c *Client) HealthCheck(ctx context.Context) error {
	prev := c.healthy.Load()
	err := c.Ping(ctx)
	switch {
	case prev && err != nil:
		c.logger.Error("OpenSearch cluster became unhealthy", logging.Err(err))
	case !prev && err == nil:
		c.logger.Info("OpenSearch cluster recovered")
	}
	return err
}

// IsHealthy returns the outcome of the last ping.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// ValidateConfig checks the settings NewClient depends on.
func ValidateConfig(cfg config.SearchConfig) error {
	if len(cfg.Addresses) == 0 {
		return errors.New(errors.ErrCodeValidation, "search.addresses is required")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "search.max_retries must be >= 0")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New(errors.ErrCodeValidation, "search.request_timeout must be > 0")
	}
	if cfg.Index == "" {
		return errors.New(errors.ErrCodeValidation, "search.index is required")
	}
	return nil
}
