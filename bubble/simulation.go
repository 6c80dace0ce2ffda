package bubble

import "math"

const distanceMin2 = 1

func (l *Layout) jiggle() float64 {
	return (l.random.Float64() - 0.5) * 1e-6
}

func (l *Layout) tick() {
	l.ticks++
	if len(l.nodes) == 0 {
		return
	}

	l.alpha += (l.alphaTarget - l.alpha) * l.config.AlphaDecay

	l.applyLinks()
	l.applyCharge()
	l.applyCenter()
	l.applyPull()
	l.applyCollide()

	decay := 1 - l.config.VelocityDecay
	for _, node := range l.nodes {
		if node.FX != nil && node.FY != nil {
			node.X, node.Y = *node.FX, *node.FY
			node.VX, node.VY = 0, 0
		} else {
			node.VX *= decay
			node.VY *= decay
			node.X += node.VX
			node.Y += node.VY
		}
		l.clampNode(node)
	}
}

// applyLinks pulls linked nodes toward their rest distance, moving the less connected end more.
func (l *Layout) applyLinks() {
	for _, edge := range l.edges {
		source, target := l.nodes[edge.Source], l.nodes[edge.Target]

		x := target.X + target.VX - source.X - source.VX
		if x == 0 {
			x = l.jiggle()
		}
		y := target.Y + target.VY - source.Y - source.VY
		if y == 0 {
			y = l.jiggle()
		}

		distance := math.Sqrt(x*x + y*y)
		k := (distance - edge.distance) / distance * l.alpha * edge.strength
		x, y = x*k, y*k

		target.VX -= x * edge.bias
		target.VY -= y * edge.bias
		source.VX += x * (1 - edge.bias)
		source.VY += y * (1 - edge.bias)
	}
}

// applyCharge repels every pair of nodes with the other node's charge.
func (l *Layout) applyCharge() {
	for _, node := range l.nodes {
		for _, other := range l.nodes {
			if node == other {
				continue
			}

			x := other.X - node.X
			y := other.Y - node.Y
			if x == 0 {
				x = l.jiggle()
			}
			if y == 0 {
				y = l.jiggle()
			}

			d2 := x*x + y*y
			if d2 < distanceMin2 {
				d2 = math.Sqrt(distanceMin2 * d2)
			}

			w := -other.Charge * l.alpha / d2
			node.VX += x * w
			node.VY += y * w
		}
	}
}

// applyCenter translates all nodes so that their mean sits at the canvas center.
func (l *Layout) applyCenter() {
	var sx, sy float64
	for _, node := range l.nodes {
		sx += node.X
		sy += node.Y
	}
	n := float64(len(l.nodes))
	sx = sx/n - l.config.Width/2
	sy = sy/n - l.config.Height/2
	for _, node := range l.nodes {
		node.X -= sx
		node.Y -= sy
	}
}

func (l *Layout) applyPull() {
	cx, cy := l.config.Width/2, l.config.Height/2
	for _, node := range l.nodes {
		node.VX += (cx - node.X) * l.config.StrengthX * l.alpha
		node.VY += (cy - node.Y) * l.config.StrengthY * l.alpha
	}
}

// applyCollide separates overlapping nodes, splitting the correction by area.
func (l *Layout) applyCollide() {
	padding := l.config.CollidePadding
	for i, node := range l.nodes {
		ri := node.Radius + padding
		ri2 := ri * ri
		xi := node.X + node.VX
		yi := node.Y + node.VY

		for _, other := range l.nodes[i+1:] {
			rj := other.Radius + padding
			r := ri + rj

			x := xi - other.X - other.VX
			y := yi - other.Y - other.VY
			d2 := x*x + y*y
			if d2 >= r*r {
				continue
			}

			if x == 0 {
				x = l.jiggle()
				d2 += x * x
			}
			if y == 0 {
				y = l.jiggle()
				d2 += y * y
			}

			d := math.Sqrt(d2)
			k := (r - d) / d
			x, y = x*k, y*k

			share := rj * rj / (ri2 + rj*rj)
			node.VX += x * share
			node.VY += y * share
			other.VX -= x * (1 - share)
			other.VY -= y * (1 - share)
		}
	}
}
