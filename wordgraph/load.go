package wordgraph

import (
	"bytes"
	"io"
	"os"
	"path"
	"strings"

	"github.com/itqwq/stockviz/model"
)

// Format is the encoding of a dataset.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// FormatOf guesses the format of a dataset from its file name or URL. CSV is the default.
func FormatOf(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if strings.EqualFold(path.Ext(name), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// ReadGraph parses a word dataset and its adjacency matrix.
func ReadGraph(words, matrix io.Reader, wordsFormat, matrixFormat Format) ([]model.Word, []model.Link, error) {
	var (
		nodes []model.Word
		err   error
	)
	if wordsFormat == FormatJSON {
		nodes, err = ReadWordsJSON(words)
	} else {
		nodes, err = ReadWords(words)
	}
	if err != nil {
		return nil, nil, err
	}

	var adjacency Matrix
	if matrixFormat == FormatJSON {
		adjacency, err = ReadMatrixJSON(matrix)
	} else {
		adjacency, err = ReadMatrix(matrix)
	}
	if err != nil {
		return nil, nil, err
	}

	return nodes, adjacency.Links(), nil
}

// ParseGraph is ReadGraph over datasets already in memory, named by their source.
func ParseGraph(wordsName string, words []byte, matrixName string, matrix []byte) ([]model.Word, []model.Link, error) {
	return ReadGraph(bytes.NewReader(words), bytes.NewReader(matrix), FormatOf(wordsName), FormatOf(matrixName))
}

// LoadGraph reads a word dataset and its adjacency matrix from files.
func LoadGraph(wordsFile, matrixFile string) ([]model.Word, []model.Link, error) {
	words, err := os.ReadFile(wordsFile)
	if err != nil {
		return nil, nil, err
	}
	matrix, err := os.ReadFile(matrixFile)
	if err != nil {
		return nil, nil, err
	}
	return ParseGraph(wordsFile, words, matrixFile, matrix)
}
