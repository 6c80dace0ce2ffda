package bubble

// NodeState is the drawable state of a node.
type NodeState struct {
	Word         string  `json:"word"`
	Counts       int     `json:"counts"`
	AverageScore float64 `json:"average_score"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Radius       float64 `json:"radius"`
	Color        string  `json:"color"`
	Fixed        bool    `json:"fixed"`
}

// EdgeState is the drawable state of a link.
type EdgeState struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Weight    float64 `json:"weight"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	X2        float64 `json:"x2"`
	Y2        float64 `json:"y2"`
	Thickness float64 `json:"thickness"`
	Color     string  `json:"color"`
}

// Frame is a snapshot of the layout handed to renderers.
type Frame struct {
	Tick   int         `json:"tick"`
	Alpha  float64     `json:"alpha"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Nodes  []NodeState `json:"nodes"`
	Links  []EdgeState `json:"links"`
	Scales Scales      `json:"scales"`
	Legend Legend      `json:"legend"`
}

// Frame snapshots the current positions for a renderer.
func (l *Layout) Frame() Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frame()
}

func (l *Layout) frame() Frame {
	frame := Frame{
		Tick:   l.ticks,
		Alpha:  l.alpha,
		Width:  l.config.Width,
		Height: l.config.Height,
		Nodes:  make([]NodeState, 0, len(l.nodes)),
		Links:  make([]EdgeState, 0, len(l.edges)),
		Scales: l.scales,
		Legend: l.scales.Legend(l.config.SizeLegendFactor),
	}

	for _, node := range l.nodes {
		frame.Nodes = append(frame.Nodes, NodeState{
			Word:         node.Word.Word,
			Counts:       node.Counts,
			AverageScore: node.AverageScore,
			X:            node.X,
			Y:            node.Y,
			Radius:       node.Radius,
			Color:        l.color(node),
			Fixed:        node.Fixed,
		})
	}

	for _, edge := range l.edges {
		source, target := l.nodes[edge.Source], l.nodes[edge.Target]
		frame.Links = append(frame.Links, EdgeState{
			Source:    source.Word.Word,
			Target:    target.Word.Word,
			Weight:    edge.Weight,
			X1:        source.X,
			Y1:        source.Y,
			X2:        target.X,
			Y2:        target.Y,
			Thickness: edge.Thickness,
			Color:     edge.Color,
		})
	}

	return frame
}
