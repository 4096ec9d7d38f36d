package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKmKnownDistances(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{name: "same point", a: Point{12.9716, 77.5946}, b: Point{12.9716, 77.5946}, want: 0, tol: 0},
		{name: "one degree latitude", a: Point{0, 0}, b: Point{1, 0}, want: 111.19, tol: 0.01},
		{name: "bengaluru to mysuru", a: Point{12.9716, 77.5946}, b: Point{12.2958, 76.6394}, want: 128.02, tol: 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HaversineKm(tt.a, tt.b), tt.tol)
		})
	}
}

func TestHaversineKmIsSymmetricAndRounded(t *testing.T) {
	a := Point{28.6139, 77.2090}
	b := Point{28.6353, 77.2250}
	d := HaversineKm(a, b)
	assert.Equal(t, d, HaversineKm(b, a))
	assert.InDelta(t, d*100, float64(int64(d*100+0.5)), 1e-6)
}

func TestWithinRadius(t *testing.T) {
	center := Point{12.9716, 77.5946}
	near := Point{12.9800, 77.6000}
	far := Point{13.2000, 77.7000}

	assert.True(t, WithinRadius(center, near, 5))
	assert.False(t, WithinRadius(center, far, 5))
	assert.True(t, WithinRadius(center, far, 50))
	assert.True(t, WithinRadius(center, near, 0), "non-positive radius falls back to default")
}

func TestPointFrom(t *testing.T) {
	lat, lng := 10.0, 20.0
	p, ok := PointFrom(&lat, &lng)
	assert.True(t, ok)
	assert.Equal(t, Point{Lat: 10, Lng: 20}, p)

	_, ok = PointFrom(&lat, nil)
	assert.False(t, ok)
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
}
