// Package core holds the domain model: transactions, categories, money
// and calendar dates, plus the view and summary shapes the reporting
// engine produces.
//
// Money is stored as integer cents so sums stay exact at two decimal
// places; amounts never pass through floating point.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// at most two fraction digits. Anything beyond two decimal places is an
// error rather than being rounded: amounts are client input and are
// never silently corrected.
//
// Examples:
//
//	ParseAmount("12.34")  -> {1234}, nil
//	ParseAmount("12,34")  -> {1234}, nil
//	ParseAmount("12")     -> {1200}, nil
//	ParseAmount("12.345") -> error
//	ParseAmount("0")      -> error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 2 {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// Prevent overflow when scaling to cents
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// Decimal renders the amount as a plain two-decimal string ("1500.00",
// "-123.45"). This is the wire representation of every monetary value.
func (m Money) Decimal() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}
