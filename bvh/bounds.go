package bvh

import (
	"github.com/golang/geo/r3"
)

// Bounds is an axis-aligned bounding box, expressed as a center point and a
// full-extent size along each axis. Bounds values are immutable; every
// operation below returns a new value rather than mutating its receiver.
type Bounds struct {
	Center r3.Vector
	Size   r3.Vector
}

// NewBounds constructs a Bounds from a center point and a full-extent size.
// Negative components of size produce a Bounds whose Min/Max are swapped on
// that axis; callers are expected to supply a non-negative size.
func NewBounds(center, size r3.Vector) Bounds {
	return Bounds{Center: center, Size: size}
}

// FromMinMax constructs a Bounds that exactly contains the given extremes.
func FromMinMax(min, max r3.Vector) Bounds {
	return NewBounds(min.Add(max).Mul(0.5), max.Sub(min))
}

// Extends returns the half-size of the bounds along each axis.
func (b Bounds) Extends() r3.Vector {
	return b.Size.Mul(0.5)
}

// Min returns the lower corner of the bounds.
func (b Bounds) Min() r3.Vector {
	return b.Center.Sub(b.Extends())
}

// Max returns the upper corner of the bounds.
func (b Bounds) Max() r3.Vector {
	return b.Center.Add(b.Extends())
}

// Union returns the smallest Bounds containing both a and b.
func Union(a, b Bounds) Bounds {
	return FromMinMax(minVec(a.Min(), b.Min()), maxVec(a.Max(), b.Max()))
}

// Contains reports whether a fully contains b, componentwise and inclusive of
// shared boundaries.
func Contains(a, b Bounds) bool {
	amin, amax := a.Min(), a.Max()
	bmin, bmax := b.Min(), b.Max()
	return amin.X <= bmin.X && amin.Y <= bmin.Y && amin.Z <= bmin.Z &&
		bmax.X <= amax.X && bmax.Y <= amax.Y && bmax.Z <= amax.Z
}

// Overlaps reports whether a and b share any point, including touching
// boundaries.
func Overlaps(a, b Bounds) bool {
	amin, amax := a.Min(), a.Max()
	bmin, bmax := b.Min(), b.Max()
	if amax.X < bmin.X || bmax.X < amin.X {
		return false
	}
	if amax.Y < bmin.Y || bmax.Y < amin.Y {
		return false
	}
	if amax.Z < bmin.Z || bmax.Z < amin.Z {
		return false
	}
	return true
}

// SurfaceArea returns the total surface area of the box, used as the SAH
// cost metric during insertion descent.
func (b Bounds) SurfaceArea() float64 {
	s := b.Size
	return 2 * (s.X*s.Y + s.Y*s.Z + s.Z*s.X)
}

func minVec(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: minF(a.X, b.X), Y: minF(a.Y, b.Y), Z: minF(a.Z, b.Z)}
}

func maxVec(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: maxF(a.X, b.X), Y: maxF(a.Y, b.Y), Z: maxF(a.Z, b.Z)}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
