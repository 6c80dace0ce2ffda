package bubble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/tools/log"
)

// ErrUnknownNode is returned by drag operations on a word that is not in the layout.
var ErrUnknownNode = errors.New("unknown node")

// Node is a word with its derived attributes and its simulation state.
type Node struct {
	model.Word

	Index      int
	Radius     float64
	Charge     float64
	ColorValue float64

	X, Y   float64
	VX, VY float64
	// FX and FY hold the node in place while set.
	FX, FY *float64
	Fixed  bool
}

// Edge is a kept link resolved to node indexes.
type Edge struct {
	Source    int
	Target    int
	Weight    float64
	Thickness float64
	Color     string

	distance float64
	strength float64
	bias     float64
}

// Layout is a force directed bubble layout of one dataset. All methods are safe for
// concurrent use.
type Layout struct {
	mu sync.Mutex

	config Config
	scales Scales
	nodes  []*Node
	index  map[string]int
	edges  []Edge

	alpha       float64
	alphaTarget float64
	ticks       int
	random      *rand.Rand
}

// New derives scales and the initial placement of words and links. Links pointing to unknown
// words or below the weight threshold are dropped.
func New(words []model.Word, links []model.Link, options ...Option) (*Layout, error) {
	config := DefaultConfig()
	for _, option := range options {
		option(&config)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	layout := &Layout{
		config:      config,
		index:       make(map[string]int, len(words)),
		alpha:       1,
		alphaTarget: config.AlphaTarget,
		random:      rand.New(rand.NewSource(config.Seed)),
	}

	unique := make([]model.Word, 0, len(words))
	for _, word := range words {
		if _, ok := layout.index[word.Word]; ok {
			log.WithField("word", word.Word).Warn("bubble: duplicated word ignored")
			continue
		}
		layout.index[word.Word] = len(unique)
		unique = append(unique, word)
	}

	resolved := layout.resolve(links)
	layout.scales = DeriveScales(unique, resolved, config)

	for i, word := range unique {
		radius := layout.scales.Radius.Scale(float64(word.Counts))
		layout.nodes = append(layout.nodes, &Node{
			Word:       word,
			Index:      i,
			Radius:     radius,
			Charge:     config.Charge(radius),
			ColorValue: layout.scales.ColorValue(word.AverageScore),
		})
	}
	layout.place()

	for _, link := range resolved {
		if link.Weight < layout.scales.Threshold {
			continue
		}
		layout.edges = append(layout.edges, Edge{
			Source:    layout.index[link.Source],
			Target:    layout.index[link.Target],
			Weight:    link.Weight,
			Thickness: layout.scales.Thickness.Scale(link.Weight),
			Color:     layout.scales.LinkColor.Color(link.Weight),
		})
	}
	layout.initializeLinks()

	return layout, nil
}

func (l *Layout) resolve(links []model.Link) []model.Link {
	resolved := make([]model.Link, 0, len(links))
	for _, link := range links {
		_, okSource := l.index[link.Source]
		_, okTarget := l.index[link.Target]
		if !okSource || !okTarget {
			log.WithFields(log.Fields{
				"source": link.Source,
				"target": link.Target,
			}).Warn("bubble: link references unknown word, dropped")
			continue
		}
		if link.Source == link.Target {
			continue
		}
		resolved = append(resolved, link)
	}
	return resolved
}

// place puts node i of n on a circle around the canvas center.
func (l *Layout) place() {
	cx, cy := l.config.Width/2, l.config.Height/2
	radius := l.config.InitialRadiusRatio * l.config.Width
	n := float64(len(l.nodes))
	for i, node := range l.nodes {
		angle := 2 * math.Pi * float64(i) / n
		node.X = cx + radius*math.Cos(angle)
		node.Y = cy + radius*math.Sin(angle)
		l.clampNode(node)
	}
}

func (l *Layout) initializeLinks() {
	degree := make([]int, len(l.nodes))
	for _, edge := range l.edges {
		degree[edge.Source]++
		degree[edge.Target]++
	}
	for i := range l.edges {
		edge := &l.edges[i]
		source, target := l.nodes[edge.Source], l.nodes[edge.Target]
		edge.distance = l.config.LinkDistance(source.Radius, target.Radius)
		edge.strength = 1 / float64(min(degree[edge.Source], degree[edge.Target]))
		edge.bias = float64(degree[edge.Source]) / float64(degree[edge.Source]+degree[edge.Target])
	}
}

func (l *Layout) clampNode(node *Node) {
	margin := l.config.Margin
	node.X = clamp(node.X, margin.Left+node.Radius, l.config.Width-margin.Right-node.Radius)
	node.Y = clamp(node.Y, margin.Top+node.Radius, l.config.Height-margin.Bottom-node.Radius)
}

// Config returns the settings the layout was built with.
func (l *Layout) Config() Config {
	return l.config
}

// Scales returns the scales derived from the dataset.
func (l *Layout) Scales() Scales {
	return l.scales
}

// Legend returns the legends drawn next to the bubbles.
func (l *Layout) Legend() Legend {
	return l.scales.Legend(l.config.SizeLegendFactor)
}

// Alpha returns the current simulation temperature.
func (l *Layout) Alpha() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alpha
}

// Nodes returns a copy of the node states.
func (l *Layout) Nodes() []Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	nodes := make([]Node, len(l.nodes))
	for i, node := range l.nodes {
		nodes[i] = *node
	}
	return nodes
}

// Edges returns the links kept after the threshold.
func (l *Layout) Edges() []Edge {
	return append([]Edge(nil), l.edges...)
}

// Node returns a copy of the node of word.
func (l *Layout) Node(word string) (Node, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	node, err := l.node(word)
	if err != nil {
		return Node{}, err
	}
	return *node, nil
}

func (l *Layout) node(word string) (*Node, error) {
	i, ok := l.index[word]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, word)
	}
	return l.nodes[i], nil
}

// Tick advances the simulation one step.
func (l *Layout) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tick()
}

// Settle runs n steps.
func (l *Layout) Settle(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < n; i++ {
		l.tick()
	}
}

// Step advances one tick and returns the resulting frame.
func (l *Layout) Step() Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tick()
	return l.frame()
}

// Run ticks the layout every interval until ctx is done, passing each frame to onFrame.
func (l *Layout) Run(ctx context.Context, interval time.Duration, onFrame func(Frame)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			frame := l.Step()
			if onFrame != nil {
				onFrame(frame)
			}
		}
	}
}

// DragStart heats the simulation and holds the node where it is.
func (l *Layout) DragStart(word string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	node, err := l.node(word)
	if err != nil {
		return err
	}
	l.alphaTarget = l.config.DragAlphaTarget
	node.FX, node.FY = float64Ptr(node.X), float64Ptr(node.Y)
	return nil
}

// Drag moves a dragged node to x, y.
func (l *Layout) Drag(word string, x, y float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	node, err := l.node(word)
	if err != nil {
		return err
	}
	node.FX, node.FY = float64Ptr(x), float64Ptr(y)
	return nil
}

// DragEnd cools the simulation and toggles the pin: a free node stays at the drop location,
// a pinned node is released.
func (l *Layout) DragEnd(word string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	node, err := l.node(word)
	if err != nil {
		return err
	}
	l.alphaTarget = l.config.AlphaTarget

	if node.Fixed {
		node.Fixed = false
		node.FX, node.FY = nil, nil
		return nil
	}

	node.Fixed = true
	if node.FX == nil || node.FY == nil {
		node.FX, node.FY = float64Ptr(node.X), float64Ptr(node.Y)
	}
	return nil
}

func (l *Layout) color(node *Node) string {
	if node.Fixed {
		return l.config.FixedColor
	}
	return Viridis(node.ColorValue)
}

func float64Ptr(v float64) *float64 {
	return &v
}
