package bubble

import (
	"bufio"
	"fmt"
	"html"
	"io"
)

// SVGRenderer writes frames as standalone SVG documents.
type SVGRenderer struct {
	w io.Writer
}

// NewSVGRenderer writes frames as SVG documents to w.
func NewSVGRenderer(w io.Writer) *SVGRenderer {
	return &SVGRenderer{w: w}
}

// Draw writes one frame with its links, bubbles and labels.
func (r *SVGRenderer) Draw(frame Frame) error {
	w := bufio.NewWriter(r.w)
	legendWidth := 220.0

	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n",
		frame.Width+legendWidth, frame.Height, frame.Width+legendWidth, frame.Height)
	fmt.Fprintln(w, `<defs><linearGradient id="sentiment" x1="0" x2="1">`)
	for _, stop := range frame.Legend.Gradient {
		fmt.Fprintf(w, `<stop offset="%g%%" stop-color="%s"/>`+"\n", stop.Offset*100, stop.Color)
	}
	fmt.Fprintln(w, `</linearGradient></defs>`)

	fmt.Fprintln(w, `<g class="links">`)
	for _, link := range frame.Links {
		fmt.Fprintf(w, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.2f"/>`+"\n",
			link.X1, link.Y1, link.X2, link.Y2, link.Color, link.Thickness)
	}
	fmt.Fprintln(w, `</g>`)

	fmt.Fprintln(w, `<g class="nodes">`)
	for _, node := range frame.Nodes {
		fmt.Fprintf(w, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"><title>%s: %d</title></circle>`+"\n",
			node.X, node.Y, node.Radius, node.Color, html.EscapeString(node.Word), node.Counts)
		fmt.Fprintf(w, `<text x="%.2f" y="%.2f" text-anchor="middle" dy=".35em" font-size="12">%s</text>`+"\n",
			node.X, node.Y, html.EscapeString(node.Word))
	}
	fmt.Fprintln(w, `</g>`)

	r.drawLegend(w, frame, frame.Width+10)
	fmt.Fprintln(w, `</svg>`)

	return w.Flush()
}

func (r *SVGRenderer) drawLegend(w io.Writer, frame Frame, x float64) {
	legend := frame.Legend
	fmt.Fprintf(w, `<g class="legend" transform="translate(%g,20)">`+"\n", x)

	fmt.Fprintf(w, `<text y="0" font-size="12">%s</text>`+"\n", legend.ColorTitle)
	fmt.Fprintln(w, `<rect y="10" width="200" height="12" fill="url(#sentiment)"/>`)
	fmt.Fprintf(w, `<text y="36" font-size="10">%s</text>`+"\n", legend.NegativeLabel)
	fmt.Fprintf(w, `<text x="200" y="36" font-size="10" text-anchor="end">%s</text>`+"\n", legend.PositiveLabel)

	y := 70.0
	fmt.Fprintf(w, `<text y="%g" font-size="12">%s</text>`+"\n", y, legend.SizeTitle)
	cx := 0.0
	for _, size := range legend.Sizes {
		cx += size.Radius
		fmt.Fprintf(w, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="none" stroke="#555"/>`+"\n", cx, y+30, size.Radius)
		fmt.Fprintf(w, `<text x="%.2f" y="%.2f" font-size="10" text-anchor="middle">%s</text>`+"\n", cx, y+55, size.Label)
		cx += size.Radius + 20
	}

	if len(legend.Links) > 0 {
		y += 90
		fmt.Fprintf(w, `<text y="%g" font-size="12">%s</text>`+"\n", y, legend.LinkTitle)
		for i, link := range legend.Links {
			ly := y + 20 + float64(i)*20
			fmt.Fprintf(w, `<line x1="0" y1="%g" x2="60" y2="%g" stroke="%s" stroke-width="%.2f"/>`+"\n",
				ly, ly, link.Color, link.Thickness)
			fmt.Fprintf(w, `<text x="70" y="%g" font-size="10" dy=".35em">%s</text>`+"\n", ly, link.Label)
		}
	}

	fmt.Fprintln(w, `</g>`)
}
