// Package layout handles the page geometry of transcribed elements: polygon
// parsing, bounding boxes, centroids and reading order.
package layout

import (
	"fmt"
	"math"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/horae/core/errors"
)

// Point is a pixel coordinate on a page image.
type Point struct {
	X float64
	Y float64
}

// Polygon is a closed outline; the last point need not repeat the first.
type Polygon []Point

// polygonGrammar accepts JSON arrays "[[x, y], ...]" as well as the tuple
// literals "((x, y), ...)" found in SQLite exports. Every bracket must be
// closed by its own kind.
//
//nolint:govet // participle grammar tags are not standard struct tags
type polygonGrammar struct {
	List  *pointList `  "[" @@ "]"`
	Tuple *pointList `| "(" @@ ")"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type pointList struct {
	Points []*pointGrammar `@@ ( "," @@ )* ","?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type pointGrammar struct {
	List  *pairGrammar `  "[" @@ "]"`
	Tuple *pairGrammar `| "(" @@ ")"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type pairGrammar struct {
	X float64 `@Number ","`
	Y float64 `@Number ","?`
}

func (g *polygonGrammar) points() []*pointGrammar {
	switch {
	case g.List != nil:
		return g.List.Points
	case g.Tuple != nil:
		return g.Tuple.Points
	}
	return nil
}

func (g *pointGrammar) pair() *pairGrammar {
	if g.List != nil {
		return g.List
	}
	return g.Tuple
}

// polygonLexer defines the tokens of a polygon literal.
var polygonLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
	{Name: "Punct", Pattern: `[,\[\]()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// polygonParser is the participle parser for polygon literals.
var polygonParser = participle.MustBuild[polygonGrammar](
	participle.Lexer(polygonLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// ParsePolygon parses a polygon literal. At least three points are required.
func ParsePolygon(s string) (Polygon, error) {
	parsed, err := polygonParser.ParseString("", s)
	if err != nil {
		return nil, &errors.ParseError{Format: "polygon", Message: err.Error(), Err: err}
	}
	pts := parsed.points()
	poly := make(Polygon, 0, len(pts))
	for _, p := range pts {
		if xy := p.pair(); xy != nil {
			poly = append(poly, Point{X: xy.X, Y: xy.Y})
		}
	}
	// drop the closing point when the ring is explicitly closed
	if n := len(poly); n > 1 && poly[0] == poly[n-1] {
		poly = poly[:n-1]
	}
	if len(poly) < 3 {
		return nil, &errors.ParseError{Format: "polygon", Message: fmt.Sprintf("need at least 3 points, got %d", len(poly))}
	}
	return poly, nil
}

// BBox is an axis-aligned box.
type BBox struct {
	X, Y, W, H float64
}

// Bounds returns the smallest box containing the polygon.
func (p Polygon) Bounds() BBox {
	if len(p) == 0 {
		return BBox{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range p {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	return BBox{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// XYWH formats the box as an IIIF region ("x,y,w,h", integer pixels).
func (b BBox) XYWH() string {
	return fmt.Sprintf("%d,%d,%d,%d", int(math.Round(b.X)), int(math.Round(b.Y)), int(math.Round(b.W)), int(math.Round(b.H)))
}

// overlaps reports whether two boxes share at least one point.
func (b BBox) overlaps(o BBox) bool {
	return b.X <= o.X+o.W && o.X <= b.X+b.W && b.Y <= o.Y+o.H && o.Y <= b.Y+b.H
}

// Area returns the unsigned area enclosed by the polygon.
func (p Polygon) Area() float64 {
	return math.Abs(p.signedArea())
}

func (p Polygon) signedArea() float64 {
	a := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return a / 2
}

// Centroid returns the area centroid of the polygon. Degenerate polygons
// with no area fall back to the mean of their vertices.
func (p Polygon) Centroid() Point {
	if len(p) == 0 {
		return Point{}
	}
	a := p.signedArea()
	if math.Abs(a) < 1e-9 {
		var c Point
		for _, pt := range p {
			c.X += pt.X
			c.Y += pt.Y
		}
		return Point{X: c.X / float64(len(p)), Y: c.Y / float64(len(p))}
	}
	var cx, cy float64
	for i := range p {
		j := (i + 1) % len(p)
		cross := p[i].X*p[j].Y - p[j].X*p[i].Y
		cx += (p[i].X + p[j].X) * cross
		cy += (p[i].Y + p[j].Y) * cross
	}
	return Point{X: cx / (6 * a), Y: cy / (6 * a)}
}

// Contains reports whether pt lies inside the polygon or on its boundary.
func (p Polygon) Contains(pt Point) bool {
	inside := false
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		if onSegment(a, b, pt) {
			return true
		}
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Intersects reports whether the two polygons share at least one point:
// their edges cross or touch, or one lies inside the other.
func (p Polygon) Intersects(q Polygon) bool {
	if len(p) == 0 || len(q) == 0 {
		return false
	}
	if !p.Bounds().overlaps(q.Bounds()) {
		return false
	}
	for i := range p {
		a1, a2 := p[i], p[(i+1)%len(p)]
		for j := range q {
			if segmentsIntersect(a1, a2, q[j], q[(j+1)%len(q)]) {
				return true
			}
		}
	}
	return p.Contains(q[0]) || q.Contains(p[0])
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func onSegment(a, b, pt Point) bool {
	if cross(a, b, pt) != 0 {
		return false
	}
	return math.Min(a.X, b.X) <= pt.X && pt.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= pt.Y && pt.Y <= math.Max(a.Y, b.Y)
}

func segmentsIntersect(p1, p2, q1, q2 Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return onSegment(q1, q2, p1) || onSegment(q1, q2, p2) || onSegment(p1, p2, q1) || onSegment(p1, p2, q2)
}
