package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Request asks the calculation service for one ticker over a date range.
type Request struct {
	StockTicker string `json:"stock_ticker" validate:"required,ticker"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// Key identifies the request in caches.
func (r Request) Key() string {
	return fmt.Sprintf("%s--%s--%s", r.StockTicker, r.StartDate, r.EndDate)
}

// Window parses the dates of the request.
func (r Request) Window() (Window, error) {
	return ParseWindow(r.StartDate, r.EndDate)
}

// Metrics are the risk adjusted return figures of one ticker.
type Metrics struct {
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	TreynorRatio float64 `json:"treynor_ratio"`
}

// Performance holds the metrics of a ticker, their rank in the universe and the market values.
type Performance struct {
	Alpha              float64 `json:"alpha"`
	AlphaRank          int     `json:"alpha_rank"`
	MarketAlpha        float64 `json:"market_alpha"`
	Beta               float64 `json:"beta"`
	BetaRank           int     `json:"beta_rank"`
	MarketBeta         float64 `json:"market_beta"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	SharpeRatioRank    int     `json:"sharpe_ratio_rank"`
	MarketSharpeRatio  float64 `json:"market_sharpe_ratio"`
	TreynorRatio       float64 `json:"treynor_ratio"`
	TreynorRatioRank   int     `json:"treynor_ratio_rank"`
	MarketTreynorRatio float64 `json:"market_treynor_ratio"`
}

// NoTicker names a missing correlation candidate.
const NoTicker = "None"

// Correlation names the most and least correlated tickers of the universe.
type Correlation struct {
	MostCorrelatedStock             string  `json:"most_correlated_stock"`
	MostCorrelatedStockCorrelation  float64 `json:"most_correlated_stock_correlation"`
	LeastCorrelatedStock            string  `json:"least_correlated_stock"`
	LeastCorrelatedStockCorrelation float64 `json:"least_correlated_stock_correlation"`
}

// Keyword carries the average sentiment of a word and how often it co-occurs with the other
// keywords. On the wire the co-occurrence counts are flattened next to the two fixed fields.
type Keyword struct {
	SentimentScore float64
	Count          int
	CoOccurrence   map[string]int
}

// MarshalJSON writes the keyword in the field names of the calculation service.
func (k Keyword) MarshalJSON() ([]byte, error) {
	fields := make(map[string]interface{}, len(k.CoOccurrence)+2)
	for word, count := range k.CoOccurrence {
		fields[word] = count
	}
	fields["sentiment_score"] = k.SentimentScore
	fields["count"] = k.Count
	return json.Marshal(fields)
}

// UnmarshalJSON reads a keyword written by MarshalJSON.
func (k *Keyword) UnmarshalJSON(data []byte) error {
	var fields map[string]float64
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	k.CoOccurrence = make(map[string]int)
	for key, value := range fields {
		switch key {
		case "sentiment_score":
			k.SentimentScore = value
		case "count":
			k.Count = int(value)
		default:
			k.CoOccurrence[key] = int(value)
		}
	}
	return nil
}

// Sentiment holds the keywords of the tweets about a ticker.
type Sentiment struct {
	Keywords map[string]Keyword `json:"keywords"`
}

// Links flattens the co-occurrence counts into word links, each pair once, sorted.
func (s Sentiment) Links() []Link {
	links := make([]Link, 0)
	for word, keyword := range s.Keywords {
		for other, count := range keyword.CoOccurrence {
			if count <= 0 || word >= other {
				continue
			}
			links = append(links, Link{Source: word, Target: other, Weight: float64(count)})
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		return links[i].Target < links[j].Target
	})
	return links
}

// Words returns the keywords as word records, sorted by descending count.
func (s Sentiment) Words() []Word {
	words := make([]Word, 0, len(s.Keywords))
	for word, keyword := range s.Keywords {
		words = append(words, Word{
			Word:         word,
			Counts:       keyword.Count,
			TotalScore:   keyword.SentimentScore * float64(keyword.Count),
			AverageScore: keyword.SentimentScore,
		})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Counts != words[j].Counts {
			return words[i].Counts > words[j].Counts
		}
		return words[i].Word < words[j].Word
	})
	return words
}

// Report is the calculation service response.
type Report struct {
	Performance Performance `json:"performance"`
	Correlation Correlation `json:"correlation"`
	Sentiment   Sentiment   `json:"sentiment"`
}

// StoredReport is a cached report row.
type StoredReport struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Ticker    string    `json:"ticker" gorm:"index"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStoredReport serializes report under the key of request.
func NewStoredReport(request Request, report Report) (*StoredReport, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	return &StoredReport{
		Key:       request.Key(),
		Ticker:    request.StockTicker,
		StartDate: request.StartDate,
		EndDate:   request.EndDate,
		Payload:   string(payload),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Report decodes the stored report.
func (s StoredReport) Report() (Report, error) {
	var report Report
	err := json.Unmarshal([]byte(s.Payload), &report)
	return report, err
}
