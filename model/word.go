package model

import "time"

// Word is one row of the word-frequency dataset.
type Word struct {
	Word         string  `json:"word"`
	Counts       int     `json:"counts"`
	TotalScore   float64 `json:"total_score"`
	AverageScore float64 `json:"average_score"`
}

// Link is a co-occurrence between two words, identified by their text.
type Link struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Tweet is one cleaned message used to build word statistics.
type Tweet struct {
	Time   time.Time
	Ticker string
	Words  []string
	Score  float64
}
