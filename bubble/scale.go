package bubble

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ScaleKind names the interpolation of a Continuous scale.
type ScaleKind string

const (
	ScaleLinear ScaleKind = "linear"
	ScaleSqrt   ScaleKind = "sqrt"
)

// Continuous maps a numeric domain onto a numeric range. A domain whose ends are equal maps
// every value to the middle of the range.
type Continuous struct {
	Kind   ScaleKind  `json:"kind"`
	Domain [2]float64 `json:"domain"`
	Range  [2]float64 `json:"range"`
}

// Linear maps domain onto rng proportionally.
func Linear(domain, rng [2]float64) Continuous {
	return Continuous{Kind: ScaleLinear, Domain: domain, Range: rng}
}

// Sqrt maps domain onto rng by square root, so areas grow linearly.
func Sqrt(domain, rng [2]float64) Continuous {
	return Continuous{Kind: ScaleSqrt, Domain: domain, Range: rng}
}

func (s Continuous) transform(v float64) float64 {
	if s.Kind == ScaleSqrt {
		if v < 0 {
			return -math.Sqrt(-v)
		}
		return math.Sqrt(v)
	}
	return v
}

// Normalize returns the position of v in the domain, 0 at the first end and 1 at the other.
func (s Continuous) Normalize(v float64) float64 {
	d0, d1 := s.transform(s.Domain[0]), s.transform(s.Domain[1])
	if d1 == d0 {
		return 0.5
	}
	return (s.transform(v) - d0) / (d1 - d0)
}

// Scale maps v into the range.
func (s Continuous) Scale(v float64) float64 {
	return s.Range[0] + s.Normalize(v)*(s.Range[1]-s.Range[0])
}

// Color is an RGB color.
type Color struct {
	R, G, B uint8
}

// ParseHex parses a #rrggbb color.
func ParseHex(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(value) == 3 {
		value = string([]byte{value[0], value[0], value[1], value[1], value[2], value[2]})
	}
	if len(value) != 6 {
		return Color{}, fmt.Errorf("invalid color %q", value)
	}
	rgb, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", value, err)
	}
	return Color{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb)}, nil
}

// MustParseHex is ParseHex for constants; it panics on a malformed color.
func MustParseHex(value string) Color {
	color, err := ParseHex(value)
	if err != nil {
		panic(err)
	}
	return color
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// Interpolate mixes a and b, t=0 giving a and t=1 giving b. t is clamped to [0,1].
func Interpolate(a, b Color, t float64) Color {
	t = clamp(t, 0, 1)
	return Color{R: lerp(a.R, b.R, t), G: lerp(a.G, b.G, t), B: lerp(a.B, b.B, t)}
}

// ColorRamp is a linear color scale between two colors.
type ColorRamp struct {
	Domain [2]float64 `json:"domain"`
	Low    string     `json:"low"`
	High   string     `json:"high"`
}

// Color interpolates between Low and High for v.
func (r ColorRamp) Color(v float64) string {
	t := Linear(r.Domain, [2]float64{0, 1}).Scale(v)
	return Interpolate(MustParseHex(r.Low), MustParseHex(r.High), t).Hex()
}

// viridis sampled at 0, 0.1, ..., 1.
var viridis = []Color{
	MustParseHex("#440154"),
	MustParseHex("#482475"),
	MustParseHex("#414487"),
	MustParseHex("#355f8d"),
	MustParseHex("#2a788e"),
	MustParseHex("#21918c"),
	MustParseHex("#22a884"),
	MustParseHex("#44bf70"),
	MustParseHex("#7ad151"),
	MustParseHex("#bddf26"),
	MustParseHex("#fde725"),
}

// Viridis returns the viridis color for t in [0,1]; t outside is clamped.
func Viridis(t float64) string {
	t = clamp(t, 0, 1)
	position := t * float64(len(viridis)-1)
	i := int(math.Floor(position))
	if i >= len(viridis)-1 {
		return viridis[len(viridis)-1].Hex()
	}
	return Interpolate(viridis[i], viridis[i+1], position-float64(i)).Hex()
}

func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	return math.Max(min, math.Min(max, v))
}
