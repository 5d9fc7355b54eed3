package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlapsX(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"side by side", Rect{0, 0, 100, 10}, Rect{150, 0, 250, 10}, false},
		{"touching", Rect{0, 0, 100, 10}, Rect{100, 0, 200, 10}, false},
		{"stacked", Rect{0, 0, 100, 10}, Rect{50, 20, 150, 30}, true},
		{"contained", Rect{0, 0, 300, 10}, Rect{50, 20, 100, 30}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.OverlapsX(tc.b))
			assert.Equal(t, tc.want, tc.b.OverlapsX(tc.a))
		})
	}
}

func TestUnionAndIntersect(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	b := Rect{5, 5, 20, 20}

	assert.Equal(t, Rect{0, 0, 20, 20}, a.Union(b))
	assert.Equal(t, Rect{5, 5, 10, 10}, a.Intersect(b))
	assert.Equal(t, 25.0, a.IntersectArea(b))
	assert.Equal(t, a, Empty.Union(a))
	assert.True(t, a.Intersect(Rect{50, 50, 60, 60}).IsEmpty())
}

func TestContainsPoint(t *testing.T) {
	r := Rect{10, 10, 20, 20}
	assert.True(t, r.ContainsPoint(10, 15))
	assert.False(t, r.ContainsPoint(21, 15))
	assert.True(t, r.Expand(2).ContainsPoint(21, 15))
}
