// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
)

// TransactionSource отдаёт последние транзакции кошелька из индексатора.
type TransactionSource interface {
	// FetchRecent returns the source's default page of recent transactions.
	// Non-success responses and transport errors are reported as *FetchError.
	FetchRecent(ctx context.Context, wallet string) ([]domain.RawTransaction, error)
}

// TokenMetadataSource получает symbol/name/decimals для mint-адреса.
type TokenMetadataSource interface {
	// Fetch returns ErrTokenNotFound when the source has no entry for mint.
	Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}
