package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// Telegram.send requires a live bot API session, so these tests cover the
// pure message-building seam instead of a real Send call.

func TestBuildOrderEventMessage_Filled(t *testing.T) {
	msg := buildOrderEventMessage(domain.Order{
		Symbol: "BTCUSDT", Direction: domain.DirectionLong, AccountID: "acct-1",
		Status: domain.OrderFilled, FilledQuantity: 0.01, FilledPrice: 50000,
	})
	assert.Contains(t, msg, "FILLED")
	assert.Contains(t, msg, "BTCUSDT")
	assert.Contains(t, msg, "acct-1")
}

func TestBuildOrderEventMessage_Failed(t *testing.T) {
	msg := buildOrderEventMessage(domain.Order{
		Symbol: "ETHUSDT", AccountID: "acct-2", Status: domain.OrderFailed,
		ErrorKind: domain.ErrRateLimited, ErrorDetail: "too many requests",
	})
	assert.Contains(t, msg, "FAILED")
	assert.Contains(t, msg, "RateLimited")
}

func TestBuildSummaryMessage(t *testing.T) {
	msg := buildSummaryMessage(ports.Summary{GroupID: "grp-1", TotalAccounts: 3, Succeeded: 2, Failed: 1})
	assert.Contains(t, msg, "grp-1")
	assert.Contains(t, msg, "2/3")
}
