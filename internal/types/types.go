package types

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Condition is the comparison applied between a fetched price and an
// alert's target price.
type Condition string

const (
	ConditionGTE Condition = ">="
	ConditionLTE Condition = "<="
)

func ParseCondition(s string) (Condition, error) {
	switch Condition(strings.TrimSpace(s)) {
	case ConditionGTE:
		return ConditionGTE, nil
	case ConditionLTE:
		return ConditionLTE, nil
	}
	return "", errors.Errorf("invalid condition: %q", s)
}

// Evaluate reports whether fetched satisfies the condition against target.
func (c Condition) Evaluate(fetched, target decimal.Decimal) bool {
	if c == ConditionLTE {
		return fetched.LessThanOrEqual(target)
	}
	return fetched.GreaterThanOrEqual(target)
}

// ExchangeAny means the first configured source that answers wins.
const ExchangeAny = "any"

// Alert is one persisted watch condition. ID is assigned at creation and
// stable across edits; it is the key for edit/delete.
type Alert struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Condition   Condition       `json:"condition"`
	Exchange    string          `json:"exchange"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	TriggeredAt *time.Time      `json:"triggered_at,omitempty"`
}

// Settings is the user-facing process configuration, persisted alongside
// the alerts.
type Settings struct {
	CheckIntervalSeconds int    `json:"check_interval_seconds"`
	AutoSilenceSeconds   int    `json:"auto_silence_seconds"`
	AssumeQuote          string `json:"assume_quote"`
	Language             string `json:"language"`
	Theme                string `json:"theme"`
}

func DefaultSettings() Settings {
	return Settings{
		CheckIntervalSeconds: 60,
		AutoSilenceSeconds:   60,
		AssumeQuote:          "USDT",
		Language:             "en",
		Theme:                "light",
	}
}

// CheckInterval returns the poll period, never below floor.
func (s Settings) CheckInterval(floor time.Duration) time.Duration {
	d := time.Duration(s.CheckIntervalSeconds) * time.Second
	if d < floor {
		return floor
	}
	return d
}

// AutoSilence returns the alarm tone duration, at least one second.
func (s Settings) AutoSilence() time.Duration {
	if s.AutoSilenceSeconds < 1 {
		return time.Second
	}
	return time.Duration(s.AutoSilenceSeconds) * time.Second
}

// Document is the shape of the single persisted JSON file.
type Document struct {
	Settings Settings `json:"settings"`
	Alerts   []Alert  `json:"alerts"`
}

// NormalizeSymbol upper-cases a user-entered trading pair, strips pair
// separators and appends the assumed quote currency when only a base was
// given (BTC -> BTCUSDT). Returns "" for blank input.
func NormalizeSymbol(raw, assumeQuote string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("/", "", "-", "").Replace(s)
	if s == "" {
		return ""
	}
	if len(s) <= 5 && !strings.HasSuffix(s, assumeQuote) {
		s += assumeQuote
	}
	return s
}

// BaseOf strips the quote suffix from a normalized symbol (BTCUSDT -> BTC).
func BaseOf(symbol, quote string) string {
	if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
		return symbol[:len(symbol)-len(quote)]
	}
	return symbol
}
