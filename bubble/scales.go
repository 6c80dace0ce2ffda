package bubble

import (
	"math"

	"github.com/samber/lo"

	"github.com/itqwq/stockviz/model"
)

// Scales are the per-dataset mappings from word and link attributes to visual attributes.
// They depend only on the min and max of their inputs.
type Scales struct {
	Radius    Continuous `json:"radius"`
	Score     Continuous `json:"score"`
	Thickness Continuous `json:"thickness"`
	LinkColor ColorRamp  `json:"link_color"`
	Threshold float64    `json:"threshold"`
}

// Threshold is the minimum weight a link needs to be kept.
func Threshold(links []model.Link, ratio float64) float64 {
	if len(links) == 0 {
		return 0
	}
	maxWeight := lo.MaxBy(links, func(a, b model.Link) bool { return a.Weight > b.Weight }).Weight
	return math.Round(maxWeight * ratio)
}

// DeriveScales computes the scales of a dataset. links must already be resolved against words.
func DeriveScales(words []model.Word, links []model.Link, config Config) Scales {
	counts := lo.Map(words, func(w model.Word, _ int) float64 { return float64(w.Counts) })
	scores := lo.Map(words, func(w model.Word, _ int) float64 { return w.AverageScore })
	weights := lo.Map(links, func(l model.Link, _ int) float64 { return l.Weight })
	minCount, maxCount := model.Series[float64](counts).Extent()
	minScore, maxScore := model.Series[float64](scores).Extent()

	threshold := Threshold(links, config.ThresholdRatio)
	maxWeight := model.Series[float64](weights).Max()
	maxWeight = math.Max(maxWeight, threshold)

	return Scales{
		Radius:    Sqrt([2]float64{minCount, maxCount}, config.RadiusRange),
		Score:     Linear([2]float64{minScore, maxScore}, [2]float64{0, 1}),
		Thickness: Sqrt([2]float64{threshold, maxWeight}, config.ThicknessRange),
		LinkColor: ColorRamp{
			Domain: [2]float64{threshold, maxWeight},
			Low:    config.LinkColorLow,
			High:   config.LinkColorHigh,
		},
		Threshold: threshold,
	}
}

// ColorValue is the normalized sentiment of a word in [0,1].
func (s Scales) ColorValue(averageScore float64) float64 {
	return clamp(s.Score.Scale(averageScore), 0, 1)
}

// NodeColor returns the Viridis color of an average sentiment score.
func (s Scales) NodeColor(averageScore float64) string {
	return Viridis(s.ColorValue(averageScore))
}
