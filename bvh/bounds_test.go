package bvh

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBoundsMinMax(t *testing.T) {
	b := NewBounds(r3.Vector{X: 1, Y: 2, Z: 3}, r3.Vector{X: 2, Y: 4, Z: 6})
	test.That(t, b.Min(), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 0})
	test.That(t, b.Max(), test.ShouldResemble, r3.Vector{X: 2, Y: 4, Z: 6})
	test.That(t, b.Extends(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
}

func TestUnion(t *testing.T) {
	a := NewBounds(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 1, Z: 1})
	b := NewBounds(r3.Vector{X: 10, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 1, Z: 1})

	u := Union(a, b)
	test.That(t, u.Center, test.ShouldResemble, r3.Vector{X: 5, Y: 0, Z: 0})
	test.That(t, u.Size, test.ShouldResemble, r3.Vector{X: 11, Y: 1, Z: 1})

	test.That(t, Contains(u, a), test.ShouldBeTrue)
	test.That(t, Contains(u, b), test.ShouldBeTrue)
}

func TestUnionIsCommutative(t *testing.T) {
	a := NewBounds(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 2, Z: 3})
	b := NewBounds(r3.Vector{X: -3, Y: 5, Z: 1}, r3.Vector{X: 4, Y: 1, Z: 2})
	test.That(t, Union(a, b), test.ShouldResemble, Union(b, a))
}

func TestContainsIsReflexive(t *testing.T) {
	a := NewBounds(r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: 2, Y: 2, Z: 2})
	test.That(t, Contains(a, a), test.ShouldBeTrue)
}

func TestOverlapsSymmetricAndTouching(t *testing.T) {
	a := NewBounds(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 2, Y: 2, Z: 2})
	b := NewBounds(r3.Vector{X: 2, Y: 0, Z: 0}, r3.Vector{X: 2, Y: 2, Z: 2})

	test.That(t, Overlaps(a, b), test.ShouldBeTrue)
	test.That(t, Overlaps(b, a), test.ShouldBeTrue)

	c := NewBounds(r3.Vector{X: 3, Y: 0, Z: 0}, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5})
	test.That(t, Overlaps(a, c), test.ShouldBeFalse)
}

func TestSurfaceArea(t *testing.T) {
	b := NewBounds(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 2, Y: 3, Z: 4})
	// 2*(2*3 + 3*4 + 4*2) = 2*(6+12+8) = 52
	test.That(t, b.SurfaceArea(), test.ShouldEqual, 52.0)
}

func TestFromMinMaxRoundTrip(t *testing.T) {
	min := r3.Vector{X: -1, Y: -2, Z: -3}
	max := r3.Vector{X: 4, Y: 5, Z: 6}
	b := FromMinMax(min, max)
	test.That(t, b.Min(), test.ShouldResemble, min)
	test.That(t, b.Max(), test.ShouldResemble, max)
}
