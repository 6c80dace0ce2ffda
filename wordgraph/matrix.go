package wordgraph

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/itqwq/stockviz/model"
)

// Matrix is a word adjacency matrix, row word to column word to weight.
type Matrix map[string]map[string]float64

// Set stores the weight from source to target.
func (m Matrix) Set(source, target string, weight float64) {
	row, ok := m[source]
	if !ok {
		row = make(map[string]float64)
		m[source] = row
	}
	row[target] = weight
}

// Weight returns the weight from source to target, 0 when absent.
func (m Matrix) Weight(source, target string) float64 {
	return m[source][target]
}

// Links flattens the positive cells into links, ordered by source then target.
func (m Matrix) Links() []model.Link {
	links := make([]model.Link, 0)
	sources := lo.Keys(m)
	sort.Strings(sources)
	for _, source := range sources {
		targets := lo.Keys(m[source])
		sort.Strings(targets)
		for _, target := range targets {
			if weight := m[source][target]; weight > 0 {
				links = append(links, model.Link{Source: source, Target: target, Weight: weight})
			}
		}
	}
	return links
}

// ReadMatrix parses an adjacency CSV whose first column holds the row word and whose remaining
// header cells name the column words.
func ReadMatrix(r io.Reader) (Matrix, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	lines, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 || len(lines[0]) < 2 {
		return nil, fmt.Errorf("%w: adjacency matrix needs a label column and at least one word", ErrInvalidHeader)
	}

	targets := lines[0][1:]
	matrix := make(Matrix)
	for n, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		source := strings.TrimSpace(line[0])
		if source == "" {
			continue
		}
		for i, target := range targets {
			if i+1 >= len(line) {
				break
			}
			weight, err := parseNumber(line[i+1])
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", n+2, target, err)
			}
			matrix.Set(source, strings.TrimSpace(target), weight)
		}
	}

	return matrix, nil
}

// ReadMatrixJSON parses {"word": {"other": weight}}.
func ReadMatrixJSON(r io.Reader) (Matrix, error) {
	matrix := make(Matrix)
	if err := json.NewDecoder(r).Decode(&matrix); err != nil {
		return nil, err
	}
	return matrix, nil
}
