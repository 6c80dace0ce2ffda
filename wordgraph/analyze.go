package wordgraph

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/StudioSol/set"
	"github.com/samber/lo"

	"github.com/itqwq/stockviz/feed"
	"github.com/itqwq/stockviz/model"
)

// DefaultAliases maps cleaned tokens to the label shown for them. Tokens mapping to the same
// label are merged.
var DefaultAliases = map[string]string{
	"ai":       "AI",
	"ad":       "Ads",
	"ads":      "Ads",
	"app":      "App",
	"aws":      "AWS",
	"btc":      "Bitcoin",
	"ceo":      "CEO",
	"djia":     "Dow Jones",
	"dia":      "Dow Jones",
	"fb":       "Facebook",
	"facebook": "Facebook",
	"gld":      "Gold",
	"gold":     "Gold",
	"slv":      "Silver",
	"silver":   "Silver",
	"ios":      "iOS",
	"iphone":   "iPhone",
	"spy":      "SPY (Fund)",
	"spx":      "SPX (Market)",
	"qqq":      "QQQ (Stock)",
	"vix":      "VIX (Stock)",
	"us":       "US",
	"usd":      "USD",
	"china":    "China",
	"amazon":   "Amazon",
	"google":   "Google",
	"goog":     "GOOG",
	"netflix":  "Netflix",
	"nasdaq":   "Nasdaq",
	"nvidia":   "Nvidia",
}

// Options tune the keyword analysis.
type Options struct {
	Aliases map[string]string
	// MinCountRatio is the share of tweets a word must appear in to be kept.
	MinCountRatio float64
	TopN          int
}

// Option customizes Options.
type Option func(*Options)

// WithAliases maps spelling variants to one word.
func WithAliases(aliases map[string]string) Option {
	return func(o *Options) {
		o.Aliases = aliases
	}
}

// WithMinCountRatio drops words found in fewer than this share of the tweets.
func WithMinCountRatio(ratio float64) Option {
	return func(o *Options) {
		o.MinCountRatio = ratio
	}
}

// WithTopN keeps the n most frequent words.
func WithTopN(n int) Option {
	return func(o *Options) {
		o.TopN = n
	}
}

// Result is the word graph of a set of tweets.
type Result struct {
	Words     []model.Word
	Matrix    Matrix
	Sentiment model.Sentiment
}

// Links returns the co-occurrence links of the kept words.
func (r Result) Links() []model.Link {
	return r.Matrix.Links()
}

type tally struct {
	counts int
	total  float64
}

// Analyze counts in how many tweets each word appears and the sentiment they carry, keeps the
// TopN most frequent words above the minimum count and counts how often those co-occur.
func Analyze(tweets []model.Tweet, options ...Option) Result {
	opts := Options{
		Aliases:       DefaultAliases,
		MinCountRatio: 0.01,
		TopN:          10,
	}
	for _, option := range options {
		option(&opts)
	}

	result := Result{
		Words:     make([]model.Word, 0),
		Matrix:    make(Matrix),
		Sentiment: model.Sentiment{Keywords: make(map[string]model.Keyword)},
	}
	if len(tweets) == 0 {
		return result
	}

	tweetWords := make([]*set.LinkedHashSetString, 0, len(tweets))
	tallies := make(map[string]*tally)
	for _, tweet := range tweets {
		words := set.NewLinkedHashSetString()
		for _, word := range tweet.Words {
			word = strings.TrimSpace(word)
			if word == "" {
				continue
			}
			if alias, ok := opts.Aliases[strings.ToLower(word)]; ok {
				word = alias
			}
			words.Add(word)
		}
		tweetWords = append(tweetWords, words)

		for word := range words.Iter() {
			t, ok := tallies[word]
			if !ok {
				t = &tally{}
				tallies[word] = t
			}
			t.counts++
			t.total += tweet.Score
		}
	}

	minCount := max(1, int(float64(len(tweets))*opts.MinCountRatio))
	candidates := make([]model.Word, 0, len(tallies))
	for word, t := range tallies {
		if t.counts < minCount {
			continue
		}
		candidates = append(candidates, model.Word{
			Word:         word,
			Counts:       t.counts,
			TotalScore:   t.total,
			AverageScore: t.total / float64(t.counts),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Counts != candidates[j].Counts {
			return candidates[i].Counts > candidates[j].Counts
		}
		return candidates[i].Word < candidates[j].Word
	})
	if opts.TopN > 0 && len(candidates) > opts.TopN {
		candidates = candidates[:opts.TopN]
	}
	result.Words = candidates

	selected := lo.SliceToMap(candidates, func(w model.Word) (string, bool) { return w.Word, true })
	for _, words := range tweetWords {
		present := make([]string, 0)
		for word := range words.Iter() {
			if selected[word] {
				present = append(present, word)
			}
		}
		for i, source := range present {
			for _, target := range present[i+1:] {
				result.Matrix.Set(source, target, result.Matrix.Weight(source, target)+1)
				result.Matrix.Set(target, source, result.Matrix.Weight(target, source)+1)
			}
		}
	}

	for _, word := range candidates {
		keyword := model.Keyword{
			SentimentScore: word.AverageScore,
			Count:          word.Counts,
			CoOccurrence:   make(map[string]int),
		}
		for other, weight := range result.Matrix[word.Word] {
			keyword.CoOccurrence[other] = int(weight)
		}
		result.Sentiment.Keywords[word.Word] = keyword
	}

	return result
}

// ReadTweets parses a Date,Tweet,Ticker,Score CSV whose Tweet column holds space separated,
// already cleaned words.
func ReadTweets(r io.Reader) ([]model.Tweet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	lines, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidHeader)
	}

	index, err := headerIndex(lines[0], "date", "tweet", "score")
	if err != nil {
		return nil, err
	}

	tweets := make([]model.Tweet, 0, len(lines)-1)
	for n, line := range lines[1:] {
		if len(line) < len(lines[0]) {
			continue
		}
		date, err := feed.ParseDate(line[index["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}
		score, err := parseNumber(line[index["score"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}

		tweet := model.Tweet{
			Time:  date,
			Words: strings.Fields(line[index["tweet"]]),
			Score: score,
		}
		if i, ok := index["ticker"]; ok {
			tweet.Ticker = strings.TrimSpace(line[i])
		}
		tweets = append(tweets, tweet)
	}

	return tweets, nil
}

// Filter keeps the tweets of ticker posted inside window. Tweets without a ticker match any
// ticker and an empty ticker matches all tweets.
func Filter(tweets []model.Tweet, ticker string, window model.Window) []model.Tweet {
	return lo.Filter(tweets, func(tweet model.Tweet, _ int) bool {
		return (ticker == "" || tweet.Ticker == "" || tweet.Ticker == ticker) && window.Contains(tweet.Time)
	})
}
