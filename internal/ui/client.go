package ui

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rovshanmuradov/solana-buyfeed/internal/api"
	"github.com/rovshanmuradov/solana-buyfeed/internal/blockchain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
)

const feedSource = "buyfeed"

// FeedClient reads the feed and the monitor status from a running buyfeed server.
type FeedClient struct {
	baseURL string
	client  *http.Client
	retry   blockchain.RetryPolicy
}

// NewFeedClient creates a client for the server at baseURL.
func NewFeedClient(baseURL string, timeout time.Duration) *FeedClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	// короткие повторы: следующий тик все равно придет
	retry := blockchain.DefaultRetryPolicy()
	retry.MaxTries = 2
	return &FeedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		retry:   retry,
	}
}

// Feed returns the current feed, newest first.
func (c *FeedClient) Feed(ctx context.Context) ([]domain.TransactionEvent, error) {
	var feed []domain.TransactionEvent
	if err := blockchain.GetJSON(ctx, c.client, feedSource, c.baseURL+"/api/monitor", nil, c.retry, &feed); err != nil {
		return nil, err
	}
	return feed, nil
}

// Status returns the monitor status.
func (c *FeedClient) Status(ctx context.Context) (api.StatusResponse, error) {
	var st api.StatusResponse
	err := blockchain.GetJSON(ctx, c.client, feedSource, c.baseURL+"/api/monitor/status", nil, c.retry, &st)
	return st, err
}
