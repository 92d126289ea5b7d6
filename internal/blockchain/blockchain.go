// internal/blockchain/blockchain.go
package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rovshanmuradov/solana-buyfeed/internal/observability"
)

const (
	DefaultMaxTries        = 3
	DefaultInitialInterval = 500 * time.Millisecond
	maxErrorBodyBytes      = 512
)

// RetryPolicy bounds how hard a single request is retried before giving up
// until the next polling round.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used by the HTTP sources.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        DefaultMaxTries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     5 * time.Second,
	}
}

func (p RetryPolicy) options() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
	}
}

// GetJSON выполняет GET запрос и декодирует JSON ответ в out.
//
// Транспортные ошибки, 429 и 5xx повторяются согласно policy; остальные
// статусы и ошибки декодирования возвращаются сразу как *FetchError.
func GetJSON(
	ctx context.Context,
	client *http.Client,
	source string,
	url string,
	header http.Header,
	policy RetryPolicy,
	out any,
) error {
	operation := func() (struct{}, error) {
		err := getOnce(ctx, client, source, url, header, out)
		if err != nil && !IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	start := time.Now()
	_, err := backoff.Retry(ctx, operation, policy.options()...)
	observability.RecordSourceLatency(source, time.Since(start).Seconds())
	if err != nil {
		observability.RecordFetchError(source)
	}
	return err
}

func getOnce(ctx context.Context, client *http.Client, source, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewFetchError(source, 0, fmt.Errorf("failed to create request: %w", err))
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return NewFetchError(source, 0, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		cause := fmt.Errorf("unexpected response: %s", string(body))
		if resp.StatusCode == http.StatusTooManyRequests {
			cause = ErrRateLimit
		}
		return NewFetchError(source, resp.StatusCode, cause)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewFetchError(source, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
