package bubble

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned for canvas sizes, ranges or forces a layout cannot use.
var ErrInvalidConfig = errors.New("invalid layout config")

// Margin is the space kept free on each side of the canvas.
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Config holds the canvas and the tuning constants of the layout.
type Config struct {
	Width  float64
	Height float64
	Margin Margin

	RadiusRange    [2]float64
	ChargeExponent float64
	ChargeCap      float64

	ThresholdRatio float64
	ThicknessRange [2]float64
	LinkColorLow   string
	LinkColorHigh  string
	FixedColor     string

	BaseDistance   float64
	DistanceCap    float64
	CollidePadding float64
	StrengthX      float64
	StrengthY      float64

	AlphaTarget     float64
	DragAlphaTarget float64
	AlphaDecay      float64
	VelocityDecay   float64

	InitialRadiusRatio float64
	SizeLegendFactor   float64

	// Seed drives the jitter used to separate coincident nodes.
	Seed int64
}

// Option customizes the Config of a layout.
type Option func(*Config)

// DefaultConfig returns the settings of the word bubble page.
func DefaultConfig() Config {
	return Config{
		Width:              1000,
		Height:             800,
		Margin:             Margin{Top: 20, Right: 50, Bottom: 20, Left: 20},
		RadiusRange:        [2]float64{10, 60},
		ChargeExponent:     1.15,
		ChargeCap:          300,
		ThresholdRatio:     0.005,
		ThicknessRange:     [2]float64{0.5, 6},
		LinkColorLow:       "#a2d5c6",
		LinkColorHigh:      "#316879",
		FixedColor:         "#ffa500",
		BaseDistance:       100,
		DistanceCap:        100,
		CollidePadding:     15,
		StrengthX:          0.08,
		StrengthY:          0.18,
		AlphaTarget:        0.01,
		DragAlphaTarget:    0.3,
		AlphaDecay:         0.002,
		VelocityDecay:      0.4,
		InitialRadiusRatio: 0.4,
		SizeLegendFactor:   1.0 / 3,
		Seed:               1,
	}
}

// WithSize sets the canvas width and height.
func WithSize(width, height float64) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithMargin sets the canvas margins.
func WithMargin(margin Margin) Option {
	return func(c *Config) {
		c.Margin = margin
	}
}

// WithRadiusRange sets the smallest and largest bubble radius.
func WithRadiusRange(min, max float64) Option {
	return func(c *Config) {
		c.RadiusRange = [2]float64{min, max}
	}
}

// WithThresholdRatio sets the share of the heaviest link below which links are hidden.
func WithThresholdRatio(ratio float64) Option {
	return func(c *Config) {
		c.ThresholdRatio = ratio
	}
}

// WithCollidePadding sets the extra distance kept between bubbles.
func WithCollidePadding(padding float64) Option {
	return func(c *Config) {
		c.CollidePadding = padding
	}
}

// WithAlphaTarget sets the resting alpha of the simulation.
func WithAlphaTarget(target float64) Option {
	return func(c *Config) {
		c.AlphaTarget = target
	}
}

// WithSeed sets the seed of the jitter that separates coincident nodes.
func WithSeed(seed int64) Option {
	return func(c *Config) {
		c.Seed = seed
	}
}

// Validate checks that the config describes a drawable canvas.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: canvas %gx%g", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Margin.Left+c.Margin.Right >= c.Width || c.Margin.Top+c.Margin.Bottom >= c.Height {
		return fmt.Errorf("%w: margins larger than canvas", ErrInvalidConfig)
	}
	if c.RadiusRange[0] < 0 || c.RadiusRange[1] < c.RadiusRange[0] {
		return fmt.Errorf("%w: radius range %v", ErrInvalidConfig, c.RadiusRange)
	}
	if c.AlphaTarget <= 0 {
		return fmt.Errorf("%w: alpha target must be positive", ErrInvalidConfig)
	}
	for _, color := range []string{c.LinkColorLow, c.LinkColorHigh, c.FixedColor} {
		if _, err := ParseHex(color); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Charge is the repulsion magnitude of a node of the given radius.
func (c Config) Charge(radius float64) float64 {
	return math.Min(math.Pow(radius, c.ChargeExponent), c.ChargeCap)
}

// LinkDistance is the rest length of a spring between nodes of radius rs and rt.
func (c Config) LinkDistance(rs, rt float64) float64 {
	return c.BaseDistance + math.Min(rs+rt, c.DistanceCap)
}
