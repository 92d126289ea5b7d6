package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

// MockTransactionSource реализует blockchain.TransactionSource
type MockTransactionSource struct {
	mock.Mock
}

func (m *MockTransactionSource) FetchRecent(ctx context.Context, wallet string) ([]domain.RawTransaction, error) {
	args := m.Called(ctx, wallet)
	txs, _ := args.Get(0).([]domain.RawTransaction)
	return txs, args.Error(1)
}

func TestWalletPoller_SortsBuysNewestFirst(t *testing.T) {
	src := new(MockTransactionSource)
	src.On("FetchRecent", mock.Anything, walletA).Return([]domain.RawTransaction{
		buyTx("old", 100, walletA, mintX, 1, 10),
		{Signature: "transfer", Timestamp: 300},
		buyTx("new", 200, walletA, mintY, 2, 20),
	}, nil)

	p := NewWalletPoller(src, NewBuyClassifier(nil), zaptest.NewLogger(t))
	got := p.Poll(context.Background(), walletA)

	if assert.Len(t, got, 2) {
		assert.Equal(t, "new", got[0].Signature)
		assert.Equal(t, "old", got[1].Signature)
	}
	src.AssertExpectations(t)
}

func TestWalletPoller_FetchErrorYieldsEmpty(t *testing.T) {
	src := new(MockTransactionSource)
	src.On("FetchRecent", mock.Anything, walletA).Return(nil, errors.New("connection reset"))

	p := NewWalletPoller(src, NewBuyClassifier(nil), zaptest.NewLogger(t))
	got := p.Poll(context.Background(), walletA)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWalletPoller_NoTransactions(t *testing.T) {
	src := new(MockTransactionSource)
	src.On("FetchRecent", mock.Anything, walletA).Return([]domain.RawTransaction{}, nil)

	p := NewWalletPoller(src, NewBuyClassifier(nil), zaptest.NewLogger(t))

	assert.Empty(t, p.Poll(context.Background(), walletA))
}
