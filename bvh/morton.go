package bvh

import (
	"github.com/golang/geo/r3"
)

// expandBits10 inserts two zero bits after each of the low 10 bits of v,
// using the standard multiply-and-mask cascade.
func expandBits10(v uint32) uint32 {
	v = (v * 0x00010001) & 0xFF0000FF
	v = (v * 0x00000101) & 0x0F00F00F
	v = (v * 0x00000011) & 0xC30C30C3
	v = (v * 0x00000005) & 0x49249249
	return v
}

// mortonEncode3D maps a point in the unit cube [0,1]^3 to a 30-bit Z-order
// key by interleaving the top 10 bits of each coordinate.
func mortonEncode3D(p r3.Vector) uint32 {
	x := quantize10(p.X)
	y := quantize10(p.Y)
	z := quantize10(p.Z)
	return (expandBits10(x) << 2) | (expandBits10(y) << 1) | expandBits10(z)
}

// quantize10 scales a [0,1] coordinate by 1024, clamps to [0,1023], and
// truncates to an unsigned 10-bit integer.
func quantize10(v float64) uint32 {
	scaled := v * 1024
	if scaled < 0 {
		scaled = 0
	} else if scaled > 1023 {
		scaled = 1023
	}
	return uint32(scaled)
}

// MapVector3 affinely remaps v from the box [min,max] to [toLow,toHigh],
// componentwise. An axis on which min and max coincide maps every value on
// that axis to toLow rather than dividing by zero.
func MapVector3(v, min, max r3.Vector, toLow, toHigh float64) r3.Vector {
	return r3.Vector{
		X: mapAxis(v.X, min.X, max.X, toLow, toHigh),
		Y: mapAxis(v.Y, min.Y, max.Y, toLow, toHigh),
		Z: mapAxis(v.Z, min.Z, max.Z, toLow, toHigh),
	}
}

func mapAxis(v, lo, hi, toLow, toHigh float64) float64 {
	span := hi - lo
	if span == 0 {
		return toLow
	}
	return (v-lo)/span*(toHigh-toLow) + toLow
}
