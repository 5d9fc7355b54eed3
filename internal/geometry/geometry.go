package geometry

// Point and Rect use top-down page coordinates: Y grows towards the bottom of the page.
type Point struct{ X, Y float64 }

type Rect struct{ X0, Y0, X1, Y1 float64 }

var Empty = Rect{}

func (r Rect) IsEmpty() bool    { return r.X0 >= r.X1 || r.Y0 >= r.Y1 }
func (r Rect) Width() float64   { return r.X1 - r.X0 }
func (r Rect) Height() float64  { return r.Y1 - r.Y0 }
func (r Rect) CenterX() float64 { return (r.X0 + r.X1) / 2 }
func (r Rect) CenterY() float64 { return (r.Y0 + r.Y1) / 2 }

func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return Rect{min(r.X0, other.X0), min(r.Y0, other.Y0), max(r.X1, other.X1), max(r.Y1, other.Y1)}
}

func (r Rect) Intersect(other Rect) Rect {
	result := Rect{max(r.X0, other.X0), max(r.Y0, other.Y0), min(r.X1, other.X1), min(r.Y1, other.Y1)}
	if result.IsEmpty() {
		return Empty
	}
	return result
}

func (r Rect) IntersectArea(other Rect) float64 { return r.Intersect(other).Area() }

// Expand grows r by d on every side.
func (r Rect) Expand(d float64) Rect { return Rect{r.X0 - d, r.Y0 - d, r.X1 + d, r.Y1 + d} }

// ContainsPoint reports whether (x, y) lies inside r, borders included.
func (r Rect) ContainsPoint(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// OverlapsX reports whether the horizontal extents of r and other share any width.
// Touching edges do not count as overlap.
func (r Rect) OverlapsX(other Rect) bool { return OverlapsSpan(r.X0, r.X1, other.X0, other.X1) }

// OverlapsSpan reports whether [a0,a1) and [b0,b1) intersect.
func OverlapsSpan(a0, a1, b0, b1 float64) bool { return a0 < b1 && b0 < a1 }

func Abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
