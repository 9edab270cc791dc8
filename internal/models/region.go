package models

import (
	"regexp"
	"strings"
)

type suffixRegion struct {
	suffix string
	region string
}

// Ticker-suffix to region mapping, checked in order.
var suffixRegions = []suffixRegion{
	{".HK", "Hong Kong"},
	{".SS", "China"},
	{".SZ", "China"},
	{".BJ", "China"},
	{".T", "Japan"},
	{".KS", "South Korea"},
	{".KQ", "South Korea"},
	{".TO", "Canada"},
	{".V", "Canada"},
	{".L", "United Kingdom"},
	{".PA", "France"},
	{".DE", "Germany"},
	{".F", "Germany"},
	{".SW", "Switzerland"},
	{".MI", "Italy"},
	{".AX", "Australia"},
	{".SA", "Brazil"},
	{".TW", "Taiwan"},
	{".NS", "India"},
	{".BO", "India"},
	{".SI", "Singapore"},
	{".JK", "Indonesia"},
	{".KL", "Malaysia"},
}

type exchangeRegion struct {
	keyword string
	region  string
}

var exchangeRegions = []exchangeRegion{
	{"hong kong", "Hong Kong"},
	{"shanghai", "China"},
	{"shenzhen", "China"},
	{"beijing", "China"},
	{"nasdaq", "US"},
	{"nyse", "US"},
	{"amex", "US"},
	{"tokyo", "Japan"},
	{"toronto", "Canada"},
	{"london", "United Kingdom"},
	{"frankfurt", "Germany"},
	{"sao", "Brazil"},
	{"b3", "Brazil"},
}

var plainTickerPattern = regexp.MustCompile(`^[A-Z0-9^.-]+$`)

// InferRegionFromSymbol maps a ticker's regional suffix to a market region.
// Plain suffix-less tickers default to US.
func InferRegionFromSymbol(symbol string) string {
	normalized := strings.ToUpper(symbol)
	for _, entry := range suffixRegions {
		if strings.HasSuffix(normalized, entry.suffix) {
			return entry.region
		}
	}
	if plainTickerPattern.MatchString(normalized) {
		return "US"
	}
	return "Unknown"
}

// InferRegionFromExchange maps an upstream exchange name to a region, falling
// back to suffix inference when no keyword matches.
func InferRegionFromExchange(exchangeName, symbol string) string {
	normalized := strings.ToLower(exchangeName)
	for _, entry := range exchangeRegions {
		if strings.Contains(normalized, entry.keyword) {
			return entry.region
		}
	}
	return InferRegionFromSymbol(symbol)
}
