package bubble

import (
	"math"
	"strconv"
)

const (
	ColorLegendTitle = "Word Mean Sentiment Score"
	SizeLegendTitle  = "Word Frequency"
	LinkLegendTitle  = "Co-occurrence"
	NegativeLabel    = "(Negative)"
	PositiveLabel    = "(Positive)"
)

// GradientStop is one stop of the color legend.
type GradientStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// SizeStop is one circle of the size legend.
type SizeStop struct {
	Counts float64 `json:"counts"`
	Radius float64 `json:"radius"`
	Label  string  `json:"label"`
}

// LinkStop is one line of the link legend.
type LinkStop struct {
	Weight    float64 `json:"weight"`
	Thickness float64 `json:"thickness"`
	Color     string  `json:"color"`
	Label     string  `json:"label"`
}

// Legend describes the three legends of the bubble chart. Every value comes from the same
// scales used to draw nodes and links.
type Legend struct {
	ColorTitle    string         `json:"color_title"`
	NegativeLabel string         `json:"negative_label"`
	PositiveLabel string         `json:"positive_label"`
	Gradient      []GradientStop `json:"gradient"`

	SizeTitle string     `json:"size_title"`
	Sizes     []SizeStop `json:"sizes"`

	LinkTitle string     `json:"link_title"`
	Links     []LinkStop `json:"links"`
}

// Legend builds the legends from the same scales used for drawing.
func (s Scales) Legend(sizeFactor float64) Legend {
	legend := Legend{
		ColorTitle:    ColorLegendTitle,
		NegativeLabel: NegativeLabel,
		PositiveLabel: PositiveLabel,
		SizeTitle:     SizeLegendTitle,
		LinkTitle:     LinkLegendTitle,
	}

	for i := 0; i <= 10; i++ {
		offset := float64(i) / 10
		legend.Gradient = append(legend.Gradient, GradientStop{Offset: offset, Color: Viridis(offset)})
	}

	minCount, maxCount := s.Radius.Domain[0], s.Radius.Domain[1]
	for _, counts := range []float64{minCount, math.Round((minCount + maxCount) / 2), maxCount} {
		legend.Sizes = append(legend.Sizes, SizeStop{
			Counts: counts,
			Radius: s.Radius.Scale(counts) * sizeFactor,
			Label:  strconv.FormatFloat(counts, 'f', 0, 64),
		})
	}

	minWeight, maxWeight := s.Thickness.Domain[0], s.Thickness.Domain[1]
	if maxWeight <= 0 {
		return legend
	}
	for _, weight := range []float64{minWeight, math.Round((minWeight + maxWeight) / 2), maxWeight} {
		legend.Links = append(legend.Links, LinkStop{
			Weight:    weight,
			Thickness: s.Thickness.Scale(weight),
			Color:     s.LinkColor.Color(weight),
			Label:     strconv.FormatFloat(weight, 'f', 0, 64),
		})
	}

	return legend
}
