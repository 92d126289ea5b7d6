// internal/blockchain/birdeye/client.go
package birdeye

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
	DefaultBaseURL = "https://public-api.birdeye.so"
	sourceName     = "birdeye"
)

// TokenResponse представляет ответ Birdeye на запрос информации о токене
type TokenResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Name     string `json:"name"`
		Decimals uint8  `json:"decimals"`
	} `json:"data"`
}

// Client реализует blockchain.TokenMetadataSource поверх Birdeye public API.
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

func NewClient(apiKey, baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		policy: blockchain.DefaultRetryPolicy(),
		logger: logger.Named("birdeye"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch получает метаданные токена. success=false в ответе означает ErrTokenNotFound.
func (c *Client) Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	endpoint := fmt.Sprintf("%s/public/token/%s", c.baseURL, url.PathEscape(mint))

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("x-api-key", c.apiKey)
	}

	var resp TokenResponse
	if err := blockchain.GetJSON(ctx, c.httpClient, sourceName, endpoint, header, c.policy, &resp); err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("%s: %w", mint, blockchain.ErrTokenNotFound)
	}

	c.logger.Debug("token metadata fetched",
		zap.String("mint", mint),
		zap.String("symbol", resp.Data.Symbol),
		zap.Uint8("decimals", resp.Data.Decimals))

	return &domain.TokenMetadata{
		Symbol:   resp.Data.Symbol,
		Name:     resp.Data.Name,
		Decimals: resp.Data.Decimals,
	}, nil
}
