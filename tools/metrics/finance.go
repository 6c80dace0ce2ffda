package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/itqwq/stockviz/model"
)

// TradingDays is the number of trading days in a year.
const TradingDays = 252

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrZeroVariance     = errors.New("zero variance")
	ErrInvalidPrice     = errors.New("invalid price")
)

// Returns computes the simple daily returns of a price series.
func Returns(prices []float64) ([]float64, error) {
	if len(prices) < 2 {
		return []float64{}, nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			return nil, fmt.Errorf("%w: %g at %d", ErrInvalidPrice, prices[i-1], i-1)
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	return returns, nil
}

// TotalReturn is the return between the first and the last price.
func TotalReturn(prices []float64) (float64, error) {
	if len(prices) == 0 {
		return 0, ErrInsufficientData
	}
	if prices[0] <= 0 {
		return 0, fmt.Errorf("%w: %g", ErrInvalidPrice, prices[0])
	}
	return prices[len(prices)-1]/prices[0] - 1, nil
}

func aligned(a, b []float64) ([]float64, []float64) {
	n := min(len(a), len(b))
	return a[:n], b[:n]
}

// Beta is the covariance of the stock and market returns over the variance of the market
// returns. Both series are cut to their common length.
func Beta(stock, market []float64) (float64, error) {
	stock, market = aligned(stock, market)
	if len(stock) < 2 {
		return 0, fmt.Errorf("%w: %d aligned returns", ErrInsufficientData, len(stock))
	}

	variance := stat.Variance(market, nil)
	if variance == 0 || math.IsNaN(variance) {
		return 0, ErrZeroVariance
	}
	return stat.Covariance(stock, market, nil) / variance, nil
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Performance computes alpha, beta, Sharpe and Treynor ratios of stock against market over the
// period covered by the closes. riskFree is the annual risk free rate. Degenerate inputs fall
// back to beta 1 and ratios 0.
func Performance(stockCloses, marketCloses []float64, riskFree float64) (model.Metrics, error) {
	stockReturn, err := TotalReturn(stockCloses)
	if err != nil {
		return model.Metrics{}, err
	}
	marketReturn, err := TotalReturn(marketCloses)
	if err != nil {
		return model.Metrics{}, err
	}

	stockDaily, err := Returns(stockCloses)
	if err != nil {
		return model.Metrics{}, err
	}
	marketDaily, err := Returns(marketCloses)
	if err != nil {
		return model.Metrics{}, err
	}

	periodRiskFree := riskFree * float64(max(len(stockCloses), 1)) / TradingDays
	excess := stockReturn - periodRiskFree

	beta, err := Beta(stockDaily, marketDaily)
	if err != nil {
		beta = 1
	}

	alpha := stockReturn - (periodRiskFree + beta*(marketReturn-periodRiskFree))

	var sharpe float64
	if min(len(stockDaily), len(marketDaily)) > 1 {
		_, volatility := stat.PopMeanStdDev(stockDaily, nil)
		if annualized := volatility * math.Sqrt(TradingDays); annualized != 0 {
			sharpe = excess / annualized
		}
	} else if periodRiskFree != 0 {
		sharpe = excess / periodRiskFree
	}

	var treynor float64
	if beta != 0 {
		treynor = excess / beta
	}

	return model.Metrics{
		Alpha:        finite(alpha),
		Beta:         finite(beta),
		SharpeRatio:  finite(sharpe),
		TreynorRatio: finite(treynor),
	}, nil
}

// Rank is the 1 based position of key when values are sorted in descending order, 0 when key
// is missing. Ties are broken by key.
func Rank(values map[string]float64, key string) int {
	if _, ok := values[key]; !ok {
		return 0
	}

	keys := lo.Keys(values)
	sort.Slice(keys, func(i, j int) bool {
		if values[keys[i]] != values[keys[j]] {
			return values[keys[i]] > values[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return lo.IndexOf(keys, key) + 1
}

// Correlation finds the tickers whose daily returns are the most and the least correlated
// with the returns of target.
func Correlation(target string, returns map[string][]float64) model.Correlation {
	result := model.Correlation{
		MostCorrelatedStock:  model.NoTicker,
		LeastCorrelatedStock: model.NoTicker,
	}

	base, ok := returns[target]
	if !ok {
		return result
	}

	tickers := lo.Keys(returns)
	sort.Strings(tickers)

	found := false
	for _, ticker := range tickers {
		if ticker == target {
			continue
		}

		x, y := aligned(base, returns[ticker])
		if len(x) < 2 {
			continue
		}
		correlation := stat.Correlation(x, y, nil)
		if math.IsNaN(correlation) || math.IsInf(correlation, 0) {
			continue
		}

		if !found || correlation > result.MostCorrelatedStockCorrelation {
			result.MostCorrelatedStock = ticker
			result.MostCorrelatedStockCorrelation = correlation
		}
		if !found || correlation < result.LeastCorrelatedStockCorrelation {
			result.LeastCorrelatedStock = ticker
			result.LeastCorrelatedStockCorrelation = correlation
		}
		found = true
	}

	return result
}
