package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// Console implements ports.Notifier by printing order events and
// executeOnAll summaries as tables to an io.Writer (grounded on the
// donor's tablewriter-based reporting).
type Console struct {
	out io.Writer
}

// NewConsole builds a notifier writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter builds a notifier writing to w, for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

func (c *Console) PublishOrderEvent(_ context.Context, event ports.OrderEvent) error {
	o := event.Order
	now := time.Now().Format("15:04:05")
	if o.Status == domain.OrderFilled {
		fmt.Fprintf(c.out, "[%s] FILLED  %-10s %-4s acct=%s qty=%.6f @ %.4f (order=%s)\n",
			now, o.Symbol, o.Direction, o.AccountID, o.FilledQuantity, o.FilledPrice, o.ExchangeOrderID)
	} else {
		fmt.Fprintf(c.out, "[%s] FAILED  %-10s %-4s acct=%s kind=%s reason=%q\n",
			now, o.Symbol, o.Direction, o.AccountID, o.ErrorKind, o.ErrorDetail)
	}
	return nil
}

func (c *Console) PublishSummary(_ context.Context, summary ports.Summary) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] group %s — %d/%d accounts filled\n",
		now, summary.GroupID, summary.Succeeded, summary.TotalAccounts)

	table := tablewriter.NewWriter(c.out)
	table.Header("Account", "Symbol", "Status", "Qty", "Price", "Error")

	for _, o := range summary.PerAccount {
		errLabel := ""
		if o.ErrorKind != domain.ErrNone {
			errLabel = string(o.ErrorKind)
		}
		table.Append(
			o.AccountID,
			o.Symbol,
			string(o.Status),
			fmt.Sprintf("%.6f", o.FilledQuantity),
			fmt.Sprintf("%.4f", o.FilledPrice),
			errLabel,
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
	return nil
}

// DailyReport renders the -report CLI flag's output (spec §5 supplemented
// feature), grounded on the donor's GetDailyReport summary line.
func DailyReport(w io.Writer, stats domain.DailyStats) {
	fmt.Fprintf(w, "\n=== DAILY PERFORMANCE REPORT ===\n")
	fmt.Fprintf(w, "  Total Orders: %d  (Filled %d / Failed %d)\n", stats.TotalOrders, stats.Filled, stats.Failed)
	fmt.Fprintf(w, "  Total PnL:    $%.2f\n", stats.TotalPnL)
	fmt.Fprintf(w, "  Win Rate:     %.1f%%\n", stats.WinRate*100)
	fmt.Fprintf(w, "  Best Trade:   $%.2f\n", stats.BestTradePnL)
	fmt.Fprintf(w, "  Worst Trade:  $%.2f\n", stats.WorstTradePnL)
	fmt.Fprintln(w)
}
