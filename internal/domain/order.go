package domain

import "time"

// OrderStatus is the lifecycle of an Order from placement to terminal state.
type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderSubmitted       OrderStatus = "SUBMITTED"
	OrderFilled          OrderStatus = "FILLED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderCancelled       OrderStatus = "CANCELLED"
	OrderFailed          OrderStatus = "FAILED"
)

// Terminal reports whether the order can no longer change state.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderRejected, OrderCancelled, OrderFailed:
		return true
	default:
		return false
	}
}

// ErrorKind classifies why an order attempt failed, per the error taxonomy
// (spec §4.4), separating transport failures from exchange-side rejections.
// The executor records the kind on the Order and does not retry within a
// cycle.
type ErrorKind string

const (
	ErrNone               ErrorKind = ""
	ErrInsufficientBalance ErrorKind = "InsufficientBalance"
	ErrBelowMinNotional   ErrorKind = "BelowMinNotional"
	ErrInvalidSymbol      ErrorKind = "InvalidSymbol"
	ErrInvalidAPIKey      ErrorKind = "InvalidApiKey"
	ErrRateLimited        ErrorKind = "RateLimited"
	ErrExchangeReject     ErrorKind = "ExchangeReject"
	ErrNetworkTimeout     ErrorKind = "NetworkTimeout"
	ErrBalanceTimeout     ErrorKind = "BalanceTimeout"
	ErrSkippedBySizing    ErrorKind = "SkippedBySizing"
	ErrTimeout            ErrorKind = "Timeout"
)

// Retryable reports whether this ErrorKind is a transient transport failure
// (timeouts, rate limiting) rather than a rejection. The executor does not
// call it.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrNetworkTimeout, ErrBalanceTimeout, ErrTimeout, ErrRateLimited:
		return true
	default:
		return false
	}
}

// Order is one exchange order produced by the executor for a single
// (signal, account) pair.
type Order struct {
	ID         string // UUID, generated before submission for idempotency
	GroupID    string // the signal's GroupID, shared across all accounts
	AccountID  string
	Symbol     string
	MarketType MarketType
	Direction  Direction

	Quantity   float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64

	Status      OrderStatus
	ErrorKind   ErrorKind
	ErrorDetail string

	ExchangeOrderID string
	FilledQuantity  float64
	FilledPrice     float64

	// PnL is written by the Position Monitor once the exchange reports the
	// originating position closed; nil while the position is still open.
	PnL *float64

	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// IdempotencyKey is the (groupId, accountId) pair used to dedupe order
// submissions across retries or scheduler overlap (spec §4.4, invariant P3).
func (o Order) IdempotencyKey() string {
	return o.GroupID + "|" + o.AccountID
}
