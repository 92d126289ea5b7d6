// internal/blockchain/helius/client.go
package helius

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rovshanmuradov/solana-buyfeed/internal/blockchain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.helius.xyz"
	sourceName     = "helius"
)

// Client реализует blockchain.TransactionSource поверх Helius Enhanced Transactions API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	policy     blockchain.RetryPolicy
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p blockchain.RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// NewClient creates a Helius client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		policy: blockchain.DefaultRetryPolicy(),
		logger: logger.Named("helius"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRecent returns the wallet's most recent page of parsed transactions.
// Pagination is not performed; Helius returns its default page size.
func (c *Client) FetchRecent(ctx context.Context, wallet string) ([]domain.RawTransaction, error) {
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions", c.baseURL, url.PathEscape(wallet))

	params := url.Values{}
	if c.apiKey != "" {
		params.Set("api-key", c.apiKey)
	}
	fullURL := endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	start := time.Now()
	var txs []domain.RawTransaction
	if err := blockchain.GetJSON(ctx, c.httpClient, sourceName, fullURL, nil, c.policy, &txs); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched wallet transactions",
		zap.String("wallet", wallet),
		zap.Int("count", len(txs)),
		zap.Duration("elapsed", time.Since(start)))

	return txs, nil
}
