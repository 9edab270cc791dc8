package models

import (
	"fmt"
	"regexp"
	"strings"
)

// symbolPattern accepts upstream-style tickers: letters, digits, index carets,
// regional suffixes, futures/FX separators. Max 20 characters.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.^=-]{0,19}$`)

// NormalizeSymbol trims and uppercases a raw symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateSymbol normalizes a single raw symbol and rejects malformed input.
func ValidateSymbol(raw string) (string, error) {
	symbol := NormalizeSymbol(raw)
	if symbol == "" {
		return "", NewInputError("symbol is required")
	}
	if len(symbol) > 20 {
		return "", NewInputError("symbol length cannot exceed 20")
	}
	if !symbolPattern.MatchString(symbol) {
		return "", NewInputError(fmt.Sprintf("invalid symbol format: %s", symbol))
	}
	return symbol, nil
}

var symbolSplitter = regexp.MustCompile(`[\s,]+`)

// ParseSymbolList splits a comma/whitespace separated symbols parameter,
// normalizes and de-duplicates preserving order, and enforces the per-request
// cap.
func ParseSymbolList(raw string, maxSymbols int) ([]string, error) {
	parts := symbolSplitter.Split(raw, -1)

	seen := make(map[string]struct{}, len(parts))
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		symbol := NormalizeSymbol(part)
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		return nil, NewInputError("please provide at least one symbol")
	}
	if len(symbols) > maxSymbols {
		return nil, NewInputError(fmt.Sprintf("at most %d symbols are allowed per request", maxSymbols))
	}

	invalid := make([]string, 0)
	for _, symbol := range symbols {
		if !symbolPattern.MatchString(symbol) {
			invalid = append(invalid, symbol)
		}
	}
	if len(invalid) > 0 {
		return nil, NewInputError(fmt.Sprintf("invalid symbol format: %s", strings.Join(invalid, ", ")))
	}

	return symbols, nil
}
