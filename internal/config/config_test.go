package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BUYFEED_HELIUS_API_KEY", "helius-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "helius-key", cfg.HeliusAPIKey)
	assert.Equal(t, DefaultHeliusBaseURL, cfg.HeliusBaseURL)
	assert.Equal(t, DefaultBirdeyeBaseURL, cfg.BirdeyeBaseURL)
	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, DefaultFeedCapacity, cfg.FeedCapacity)
	assert.Equal(t, DefaultPollConcurrency, cfg.PollConcurrency)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultFetchRetries, cfg.FetchRetries)
	assert.Equal(t, uint(DefaultFetchRetries+1), cfg.FetchMaxTries())
	assert.Empty(t, cfg.Wallets)
}

func TestLoadConfig_FetchRetriesCountsRetries(t *testing.T) {
	tests := []struct {
		name      string
		retries   string
		wantTries uint
	}{
		{name: "no retries", retries: "0", wantTries: 1},
		{name: "one retry", retries: "1", wantTries: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BUYFEED_HELIUS_API_KEY", "k")
			t.Setenv("BUYFEED_FETCH_RETRIES", tt.retries)

			cfg, err := LoadConfig("")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTries, cfg.FetchMaxTries())
		})
	}
}

func TestLoadConfig_FileAndEnvOverlay(t *testing.T) {
	path := writeConfig(t, `{
		"helius_api_key": "from-file",
		"birdeye_api_key": "bird",
		"poll_interval_ms": 5000,
		"feed_capacity": 50,
		"wallets": ["A1"]
	}`)
	t.Setenv("BUYFEED_FEED_CAPACITY", "25")
	t.Setenv("BUYFEED_WALLETS", " W1 , W2,, ")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.HeliusAPIKey)
	assert.Equal(t, "bird", cfg.BirdeyeAPIKey)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 25, cfg.FeedCapacity)
	assert.Equal(t, []string{"W1", "W2"}, cfg.Wallets)
}

func TestLoadConfig_UnprefixedAPIKeys(t *testing.T) {
	t.Setenv("HELIUS_API_KEY", "plain-helius")
	t.Setenv("BIRDEYE_API_KEY", "plain-birdeye")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "plain-helius", cfg.HeliusAPIKey)
	assert.Equal(t, "plain-birdeye", cfg.BirdeyeAPIKey)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing helius key",
			body:    `{}`,
			wantErr: "missing helius_api_key",
		},
		{
			name:    "bad interval",
			body:    `{"helius_api_key":"k","poll_interval_ms":0}`,
			wantErr: "invalid poll_interval_ms",
		},
		{
			name:    "bad base url",
			body:    `{"helius_api_key":"k","helius_base_url":"ftp://example.com"}`,
			wantErr: "invalid helius_base_url",
		},
		{
			name:    "bad concurrency",
			body:    `{"helius_api_key":"k","poll_concurrency":-1}`,
			wantErr: "invalid poll_concurrency",
		},
		{
			name:    "negative retries",
			body:    `{"helius_api_key":"k","fetch_retries":-1}`,
			wantErr: "invalid fetch_retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HELIUS_API_KEY", "")
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
