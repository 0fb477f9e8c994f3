package domain

// RejectKind names why RiskManager.ValidateCycle rejected a signal at the
// cycle level (spec §4.3's ordered-checks table).
type RejectKind string

const (
	RejectNone              RejectKind = ""
	RejectMalformedSignal   RejectKind = "MalformedSignal"
	RejectPortfolioFull     RejectKind = "PortfolioFull"
	RejectDailyLossTripped  RejectKind = "DailyLossTripped"
	RejectVolatilityTooHigh RejectKind = "VolatilityTooHigh"
	RejectCorrelationTooHigh RejectKind = "CorrelationTooHigh"
	RejectIlliquidSymbol    RejectKind = "IlliquidSymbol"
)

// Decision is the result of RiskManager.ValidateCycle: either acceptance or
// a structured, ordered rejection.
type Decision struct {
	Accept bool
	Kind   RejectKind
	Reason string
}

// Accepted builds an accepting Decision.
func Accepted() Decision {
	return Decision{Accept: true}
}

// Reject builds a rejecting Decision with a kind and human-readable reason.
func Reject(kind RejectKind, reason string) Decision {
	return Decision{Accept: false, Kind: kind, Reason: reason}
}
