package wordgraph

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/itqwq/stockviz/model"
)

var (
	ErrInvalidHeader = errors.New("invalid header")
	ErrInvalidValue  = errors.New("invalid value")
)

func headerIndex(headers []string, required ...string) (map[string]int, error) {
	index := make(map[string]int, len(headers))
	for i, header := range headers {
		index[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidHeader, name)
		}
	}
	return index, nil
}

func parseNumber(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	number, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrInvalidValue, value)
	}
	return number, nil
}

// validateWord rejects negative counts.
func validateWord(word model.Word) error {
	if word.Counts < 0 {
		return fmt.Errorf("%w: negative counts %d for %q", ErrInvalidValue, word.Counts, word.Word)
	}
	return nil
}

// ReadWords parses a word,counts,total_score,average_score CSV.
func ReadWords(r io.Reader) ([]model.Word, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	lines, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidHeader)
	}

	index, err := headerIndex(lines[0], "word", "counts")
	if err != nil {
		return nil, err
	}

	value := func(line []string, column string) (float64, error) {
		i, ok := index[column]
		if !ok || i >= len(line) {
			return 0, nil
		}
		return parseNumber(line[i])
	}

	words := make([]model.Word, 0, len(lines)-1)
	for n, line := range lines[1:] {
		if len(line) <= index["word"] || strings.TrimSpace(line[index["word"]]) == "" {
			continue
		}

		counts, err := value(line, "counts")
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}
		total, err := value(line, "total_score")
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}
		average, err := value(line, "average_score")
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}
		if _, ok := index["average_score"]; !ok && counts > 0 {
			average = total / counts
		}

		word := model.Word{
			Word:         strings.TrimSpace(line[index["word"]]),
			Counts:       int(counts),
			TotalScore:   total,
			AverageScore: average,
		}
		if err := validateWord(word); err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}
		words = append(words, word)
	}

	return words, nil
}

// ReadWordsJSON parses a JSON array of word records.
func ReadWordsJSON(r io.Reader) ([]model.Word, error) {
	words := make([]model.Word, 0)
	if err := json.NewDecoder(r).Decode(&words); err != nil {
		return nil, err
	}
	for i, word := range words {
		if err := validateWord(word); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return words, nil
}
