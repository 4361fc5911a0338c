package core

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type (
	// Funnel is a named budget category with a per-period spending
	// ceiling, owned by exactly one user.
	Funnel struct {
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Limit decimal.Decimal `json:"limit"`
		Color string          `json:"color"`
		Emoji string          `json:"emoji"`
		Owner string          `json:"-"`
	}

	// Spending is a single recorded expense inside a funnel. Timestamp
	// is epoch milliseconds.
	Spending struct {
		ID        string          `json:"id"`
		Amount    decimal.Decimal `json:"amount"`
		Timestamp int64           `json:"timestamp"`
		FunnelID  string          `json:"funnel_id"`
	}

	// FunnelView is a Funnel with its derived figures for the current
	// period. Remaining and Daily are computed on read, never stored.
	FunnelView struct {
		Funnel
		Remaining decimal.Decimal `json:"remaining"`
		Daily     decimal.Decimal `json:"daily"`
	}
)

var (
	ErrEmptyName    = errors.New("empty funnel name")
	ErrInvalidLimit = errors.New("funnel limit must be positive")
	ErrInvalidEmoji = errors.New("emoji must be a single character")
	ErrNoFunnel     = errors.New("spending must reference a funnel")
)

func (f Funnel) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if len(f.Name) > 100 {
		return errors.New("funnel name too long (max 100 characters)")
	}
	if !f.Limit.IsPositive() {
		return ErrInvalidLimit
	}
	if f.Emoji != "" && utf8.RuneCountInString(f.Emoji) != 1 {
		return ErrInvalidEmoji
	}
	return nil
}

func (s Spending) Validate() error {
	if s.FunnelID == "" {
		return ErrNoFunnel
	}
	if s.Timestamp < 0 {
		return errors.New("negative timestamp")
	}
	return nil
}

// Derive computes the read-time figures for a funnel given the sum of
// its spendings inside the current period:
//
//	remaining = limit - spent
//	daily     = remaining - limit * remainingDays / lengthDays
//
// With no spendings remaining equals the full limit; with a zero limit
// daily collapses to remaining.
func Derive(f Funnel, spentInPeriod decimal.Decimal, p Period) FunnelView {
	remaining := f.Limit.Sub(spentInPeriod)
	daily := remaining.Sub(f.Limit.
		Mul(decimal.NewFromInt(int64(p.RemainingDays))).
		Div(decimal.NewFromInt(int64(p.LengthDays))))
	return FunnelView{Funnel: f, Remaining: remaining, Daily: daily}
}
