package ports

import (
	"context"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

// AccountStore resolves store-configured execution destinations. The core
// never sees raw credential material: it asks for an already-authenticated
// ExchangeClient handle.
type AccountStore interface {
	// ListEligibleAccounts returns accounts with isActive, isVerified, and
	// autoTradeEnabled all true, and the daily-loss breaker not tripped.
	ListEligibleAccounts(ctx context.Context) ([]domain.Account, error)

	// FetchDecryptedClient resolves an authenticated ExchangeClient for the
	// given account id via the external decryption capability.
	FetchDecryptedClient(ctx context.Context, accountID string) (ExchangeClient, error)
}
