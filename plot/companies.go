package plot

import (
	"sort"
	"strings"
)

// DefaultCompanies names the tickers of the bundled dataset.
var DefaultCompanies = map[string]string{
	"AAPL":  "Apple Inc.",
	"AMZN":  "Amazon.com Inc.",
	"AMD":   "Advanced Micro Devices Inc.",
	"BA":    "Boeing Co.",
	"BAC":   "Bank of America Corp.",
	"CMCSA": "Comcast Corp.",
	"COST":  "Costco Wholesale Corp.",
	"CSCO":  "Cisco Systems Inc.",
	"CVX":   "Chevron Corp.",
	"DIS":   "Walt Disney Co.",
	"F":     "Ford Motor Co.",
	"GOOGL": "Alphabet Inc. Class A",
	"HD":    "Home Depot Inc.",
	"IBM":   "International Business Machines Corp.",
	"INTC":  "Intel Corp.",
	"JNJ":   "Johnson & Johnson",
	"JPM":   "JPMorgan Chase & Co.",
	"KO":    "Coca-Cola Co.",
	"KR":    "Kroger Co.",
	"MA":    "Mastercard Inc.",
	"MCD":   "McDonald's Corp.",
	"META":  "Meta Platforms Inc.",
	"MRK":   "Merck & Co Inc.",
	"MSFT":  "Microsoft Corp.",
	"NFLX":  "Netflix Inc.",
	"NKE":   "Nike Inc.",
	"ORCL":  "Oracle Corp.",
	"PEP":   "PepsiCo Inc.",
	"PFE":   "Pfizer Inc.",
	"PG":    "Procter & Gamble Co.",
	"PYPL":  "PayPal Holdings Inc.",
	"SBUX":  "Starbucks Corp.",
	"SPY":   "SPDR S&P 500 ETF Trust",
	"T":     "AT&T Inc.",
	"TSLA":  "Tesla Inc.",
	"UNH":   "UnitedHealth Group Inc.",
	"UPS":   "United Parcel Service Inc.",
	"V":     "Visa Inc.",
	"WMT":   "Walmart Inc.",
	"XOM":   "Exxon Mobil Corp.",
}

// Company is a ticker suggestion.
type Company struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

const maxSuggestions = 8

// suggest returns the companies whose symbol starts with query or whose name contains it,
// symbols first, at most maxSuggestions. An empty query lists every ticker.
func suggest(tickers []string, companies map[string]string, query string) []Company {
	query = strings.ToUpper(strings.TrimSpace(query))

	symbolMatches := make([]Company, 0)
	nameMatches := make([]Company, 0)
	for _, ticker := range tickers {
		name, ok := companies[ticker]
		if !ok {
			name = "Unknown Stock"
		}
		company := Company{Symbol: ticker, Name: name}

		switch {
		case query == "" || strings.HasPrefix(ticker, query):
			symbolMatches = append(symbolMatches, company)
		case strings.Contains(strings.ToUpper(name), query):
			nameMatches = append(nameMatches, company)
		}
	}

	sort.SliceStable(symbolMatches, func(i, j int) bool {
		return symbolMatches[i].Symbol < symbolMatches[j].Symbol
	})
	result := append(symbolMatches, nameMatches...)
	if query != "" && len(result) > maxSuggestions {
		result = result[:maxSuggestions]
	}
	return result
}
