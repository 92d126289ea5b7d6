package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rovshanmuradov/solana-buyfeed/internal/blockchain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockMetadataSource реализует blockchain.TokenMetadataSource
type MockMetadataSource struct {
	mock.Mock
}

func (m *MockMetadataSource) Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	args := m.Called(ctx, mint)
	md, _ := args.Get(0).(*domain.TokenMetadata)
	return md, args.Error(1)
}

func TestLookup_CachesSuccess(t *testing.T) {
	src := new(MockMetadataSource)
	bonk := &domain.TokenMetadata{Symbol: "BONK", Name: "Bonk", Decimals: 5}
	src.On("Fetch", mock.Anything, "MintA").Return(bonk, nil).Once()

	c := NewTokenMetadataCache(src, 0, zaptest.NewLogger(t))

	first := c.Lookup(context.Background(), "MintA")
	second := c.Lookup(context.Background(), "MintA")

	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, "BONK", second.Symbol)
	src.AssertNumberOfCalls(t, "Fetch", 1)
	assert.Equal(t, 1, c.Len())
}

func TestLookup_CachesNotFound(t *testing.T) {
	src := new(MockMetadataSource)
	src.On("Fetch", mock.Anything, "MintB").
		Return(nil, fmt.Errorf("MintB: %w", blockchain.ErrTokenNotFound)).Once()

	c := NewTokenMetadataCache(src, 0, zaptest.NewLogger(t))

	assert.Nil(t, c.Lookup(context.Background(), "MintB"))
	assert.Nil(t, c.Lookup(context.Background(), "MintB"))
	src.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestLookup_CachesTransportFailure(t *testing.T) {
	src := new(MockMetadataSource)
	src.On("Fetch", mock.Anything, "MintC").
		Return(nil, blockchain.NewFetchError("birdeye", 0, errors.New("connection refused"))).Once()

	c := NewTokenMetadataCache(src, 0, zaptest.NewLogger(t))

	assert.Nil(t, c.Lookup(context.Background(), "MintC"))
	assert.Nil(t, c.Lookup(context.Background(), "MintC"))
	src.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestLookup_NativeMintShortCircuits(t *testing.T) {
	src := new(MockMetadataSource)
	c := NewTokenMetadataCache(src, 0, zaptest.NewLogger(t))

	assert.Nil(t, c.Lookup(context.Background(), domain.NativeMint))
	src.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	assert.Equal(t, 0, c.Len())
}

func TestLookup_CancelledContextNotCached(t *testing.T) {
	src := new(MockMetadataSource)
	src.On("Fetch", mock.Anything, "MintD").Return(nil, context.Canceled).Once()
	src.On("Fetch", mock.Anything, "MintD").Return(&domain.TokenMetadata{Symbol: "D"}, nil).Once()

	c := NewTokenMetadataCache(src, 0, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, c.Lookup(ctx, "MintD"))

	md := c.Lookup(context.Background(), "MintD")
	require.NotNil(t, md)
	assert.Equal(t, "D", md.Symbol)
}

func TestLookup_MaxEntries(t *testing.T) {
	src := new(MockMetadataSource)
	src.On("Fetch", mock.Anything, mock.Anything).Return(&domain.TokenMetadata{Symbol: "X"}, nil)

	c := NewTokenMetadataCache(src, 2, zaptest.NewLogger(t))
	for _, mint := range []string{"M1", "M2", "M3"} {
		require.NotNil(t, c.Lookup(context.Background(), mint))
	}
	assert.Equal(t, 2, c.Len())

	// M3 was not stored, so it is fetched again.
	c.Lookup(context.Background(), "M3")
	src.AssertNumberOfCalls(t, "Fetch", 4)
}

func TestLookup_ConcurrentAccess(t *testing.T) {
	src := new(MockMetadataSource)
	src.On("Fetch", mock.Anything, mock.Anything).Return(&domain.TokenMetadata{Symbol: "X"}, nil)

	c := NewTokenMetadataCache(src, 0, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				md := c.Lookup(context.Background(), fmt.Sprintf("mint_%d", j))
				assert.NotNil(t, md)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, c.Len())
}
