package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

func TestPublishOrderEvent_FilledAndFailed(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	err := c.PublishOrderEvent(context.Background(), ports.OrderEvent{Order: domain.Order{
		Symbol: "BTCUSDT", Direction: domain.DirectionLong, AccountID: "acct-1",
		Status: domain.OrderFilled, FilledQuantity: 0.01, FilledPrice: 50000, ExchangeOrderID: "ex-1",
	}})
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "FILLED")
	assert.Contains(t, buf.String(), "BTCUSDT")

	buf.Reset()
	err = c.PublishOrderEvent(context.Background(), ports.OrderEvent{Order: domain.Order{
		Symbol: "ETHUSDT", AccountID: "acct-2", Status: domain.OrderFailed,
		ErrorKind: domain.ErrBelowMinNotional, ErrorDetail: "notional too small",
	}})
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "FAILED")
	assert.Contains(t, buf.String(), "BelowMinNotional")
}

func TestPublishSummary_RendersTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	err := c.PublishSummary(context.Background(), ports.Summary{
		GroupID: "grp-1", TotalAccounts: 2, Succeeded: 1, Failed: 1,
		PerAccount: []domain.Order{
			{AccountID: "acct-1", Symbol: "BTCUSDT", Status: domain.OrderFilled, FilledQuantity: 0.01, FilledPrice: 50000},
			{AccountID: "acct-2", Symbol: "BTCUSDT", Status: domain.OrderFailed, ErrorKind: domain.ErrInsufficientBalance},
		},
	})
	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "grp-1")
	assert.Contains(t, out, "acct-1")
	assert.Contains(t, out, "InsufficientBalance")
}

func TestDailyReport_PrintsSummaryLines(t *testing.T) {
	var buf bytes.Buffer
	DailyReport(&buf, domain.DailyStats{TotalOrders: 4, Filled: 3, Failed: 1, WinRate: 0.75, TotalPnL: 120.5})
	out := buf.String()
	assert.Contains(t, out, "DAILY PERFORMANCE REPORT")
	assert.Contains(t, out, "120.50")
}
