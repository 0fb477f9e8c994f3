package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

func TestListEligibleAccounts_ReadsEnvSlots(t *testing.T) {
	t.Setenv("CREDENTIAL_SLOT_1_API_KEY", "key-1")
	t.Setenv("CREDENTIAL_SLOT_1_API_SECRET", "secret-1")
	t.Setenv("CREDENTIAL_SLOT_1_MARKET_TYPE", "SPOT")
	t.Setenv("CREDENTIAL_SLOT_1_SIZING_MODE", "PERCENT_BALANCE")
	t.Setenv("CREDENTIAL_SLOT_1_BALANCE_PERCENT", "0.05")

	store := New("CREDENTIAL_SLOT_", 3, true, nil, nil)
	accounts, err := store.ListEligibleAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "env-slot-1", accounts[0].ID)
	assert.Equal(t, domain.MarketSpot, accounts[0].MarketType)
	assert.Equal(t, domain.SizingPercentBalance, accounts[0].Policy.SizingMode)
	assert.Equal(t, 0.05, accounts[0].Policy.BalancePercent)
}

func TestListEligibleAccounts_SkipsSlotsMissingCredentials(t *testing.T) {
	t.Setenv("CREDENTIAL_SLOT_1_API_KEY", "key-1")
	// no matching secret for slot 1
	store := New("CREDENTIAL_SLOT_", 3, true, nil, nil)
	accounts, err := store.ListEligibleAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestListEligibleAccounts_DisabledSlotIsExcluded(t *testing.T) {
	t.Setenv("CREDENTIAL_SLOT_1_API_KEY", "key-1")
	t.Setenv("CREDENTIAL_SLOT_1_API_SECRET", "secret-1")
	t.Setenv("CREDENTIAL_SLOT_1_ENABLED", "false")

	store := New("CREDENTIAL_SLOT_", 3, true, nil, nil)
	accounts, err := store.ListEligibleAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestListEligibleAccounts_DailyLossBreakerExcludesAccount(t *testing.T) {
	t.Setenv("CREDENTIAL_SLOT_1_API_KEY", "key-1")
	t.Setenv("CREDENTIAL_SLOT_1_API_SECRET", "secret-1")
	t.Setenv("CREDENTIAL_SLOT_1_MAX_DAILY_LOSS", "0.10")
	t.Setenv("CREDENTIAL_SLOT_1_STOP_ON_DAILY_LOSS", "true")
	t.Setenv("CREDENTIAL_SLOT_1_MAX_POSITION_NOTIONAL", "1000")

	lookup := func(ctx context.Context, accountID string) (float64, int, error) {
		return -150, 4, nil // 15% of the 1000 notional-derived equity proxy
	}
	store := New("CREDENTIAL_SLOT_", 3, true, nil, lookup)

	accounts, err := store.ListEligibleAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestListEligibleAccounts_DailyLossWithinLimitStaysEligible(t *testing.T) {
	t.Setenv("CREDENTIAL_SLOT_1_API_KEY", "key-1")
	t.Setenv("CREDENTIAL_SLOT_1_API_SECRET", "secret-1")
	t.Setenv("CREDENTIAL_SLOT_1_MAX_DAILY_LOSS", "0.10")
	t.Setenv("CREDENTIAL_SLOT_1_STOP_ON_DAILY_LOSS", "true")
	t.Setenv("CREDENTIAL_SLOT_1_MAX_POSITION_NOTIONAL", "1000")

	lookup := func(ctx context.Context, accountID string) (float64, int, error) {
		return -50, 2, nil // 5% of the 1000 notional-derived equity proxy, under the 10% cap
	}
	store := New("CREDENTIAL_SLOT_", 3, true, nil, lookup)

	accounts, err := store.ListEligibleAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestFetchDecryptedClient_CachesPerAccount(t *testing.T) {
	t.Setenv("CREDENTIAL_SLOT_1_API_KEY", "key-1")
	t.Setenv("CREDENTIAL_SLOT_1_API_SECRET", "secret-1")

	store := New("CREDENTIAL_SLOT_", 3, true, nil, nil)
	c1, err := store.FetchDecryptedClient(context.Background(), "env-slot-1")
	require.NoError(t, err)
	c2, err := store.FetchDecryptedClient(context.Background(), "env-slot-1")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}
