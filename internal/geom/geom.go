// Package geom provides the continuous 2-D primitives the simulator and
// collision resolver are built on: points, vectors, and axis-aligned
// road/office rectangles.
package geom

import "math"

// Point is a location in the plane.
type Point struct {
	X, Y float64
}

// Vector is a displacement in the plane.
type Vector struct {
	X, Y float64
}

// Add returns the point reached by displacing p by v.
func (p Point) Add(v Vector) Point {
	return Point{X: p.X + v.X, Y: p.Y + v.Y}
}

// Sub returns the displacement from q to p.
func (p Point) Sub(q Point) Vector {
	return Vector{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns v scaled by s.
func (v Vector) Scale(s float64) Vector {
	return Vector{X: v.X * s, Y: v.Y * s}
}

// Add returns the sum of two vectors.
func (v Vector) Add(w Vector) Vector {
	return Vector{X: v.X + w.X, Y: v.Y + w.Y}
}

// Len returns the Euclidean length of v.
func (v Vector) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// IsZero reports whether v has zero magnitude.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Rect is an axis-aligned rectangle, inclusive of its boundary.
type Rect struct {
	Min, Max Point
}

// Contains reports whether p lies within r, boundary included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Clamp returns the point within r closest to p.
func (r Rect) Clamp(p Point) Point {
	return Point{
		X: clampf(p.X, r.Min.X, r.Max.X),
		Y: clampf(p.Y, r.Min.Y, r.Max.Y),
	}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SqDist returns the squared distance between two points.
func SqDist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// ClosestApproach finds the fractional time t in [0,1] along the segment
// from start to end at which the segment is closest to target, and the
// squared distance at that time. A zero-length segment (start == end) is
// handled as a point-to-point test at t=0.
func ClosestApproach(start, end, target Point) (t, sqDistance float64) {
	seg := end.Sub(start)
	if seg.IsZero() {
		return 0, SqDist(start, target)
	}
	toTarget := target.Sub(start)
	segLenSq := seg.X*seg.X + seg.Y*seg.Y
	t = (toTarget.X*seg.X + toTarget.Y*seg.Y) / segLenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := start.Add(seg.Scale(t))
	return t, SqDist(closest, target)
}
