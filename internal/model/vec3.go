package model

import (
	"fmt"
	"math"
	"strconv"
)

// Vec3 is an immutable 3D point or vector. Every method returns a new value.
//
// Points extracted from CityGML posLists keep the source axis order, which
// for JGD2011 (EPSG:6697) data is latitude, longitude, height.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Zero is the zero vector.
var Zero = Vec3{}

// NewVec3 creates a vector from three components.
func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Vec3FromArray creates a vector from a fixed [x, y, z] array.
func Vec3FromArray(a [3]float64) Vec3 {
	return Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// Vec3FromSlice creates a vector from an ordered [x, y, z] sequence.
// The sequence must hold exactly three elements.
func Vec3FromSlice(s []float64) (Vec3, error) {
	if len(s) != 3 {
		return Vec3{}, fmt.Errorf("expected 3 components, got %d: %w", len(s), ErrInvalidOperand)
	}
	return Vec3{X: s[0], Y: s[1], Z: s[2]}, nil
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Subtract returns v - o.
func (v Vec3) Subtract(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Multiply returns the component-wise product.
func (v Vec3) Multiply(o Vec3) Vec3 {
	return Vec3{X: v.X * o.X, Y: v.Y * o.Y, Z: v.Z * o.Z}
}

// Scale multiplies every component by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Divide returns the component-wise quotient. Any zero component of o
// yields ErrDivideByZero.
func (v Vec3) Divide(o Vec3) (Vec3, error) {
	if o.X == 0 || o.Y == 0 || o.Z == 0 {
		return Vec3{}, ErrDivideByZero
	}
	return Vec3{X: v.X / o.X, Y: v.Y / o.Y, Z: v.Z / o.Z}, nil
}

// DivideScalar divides every component by s.
func (v Vec3) DivideScalar(s float64) (Vec3, error) {
	if s == 0 {
		return Vec3{}, ErrDivideByZero
	}
	return Vec3{X: v.X / s, Y: v.Y / s, Z: v.Z / s}, nil
}

// Negate returns -v.
func (v Vec3) Negate() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Length returns the Euclidean norm.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.LengthSquared())
}

// LengthSquared returns the squared norm.
func (v Vec3) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Normalize returns the unit vector pointing in the same direction.
func (v Vec3) Normalize() (Vec3, error) {
	if v.IsZero() {
		return Vec3{}, ErrZeroLengthVector
	}
	l := v.Length()
	return Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}, nil
}

// Cross returns v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Dot returns v · o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Distance returns the distance between the points v and o.
func (v Vec3) Distance(o Vec3) float64 {
	return math.Sqrt(v.DistanceSquared(o))
}

// DistanceSquared returns the squared distance between v and o.
func (v Vec3) DistanceSquared(o Vec3) float64 {
	return v.Subtract(o).LengthSquared()
}

// Lerp linearly interpolates from v towards target. t outside [0, 1]
// extrapolates. t == 0 (or NaN) returns v and t == 1 returns target exactly.
func (v Vec3) Lerp(target Vec3, t float64) Vec3 {
	if t == 0 || math.IsNaN(t) {
		return v
	}
	if t == 1 {
		return target
	}
	return Vec3{
		X: v.X + (target.X-v.X)*t,
		Y: v.Y + (target.Y-v.Y)*t,
		Z: v.Z + (target.Z-v.Z)*t,
	}
}

// Slerp spherically interpolates from v towards target.
//
// Both v and target must already be unit vectors; the angle is taken from
// their raw dot product and neither input is normalized here. Parallel
// inputs have no rotation plane and return ErrZeroLengthVector.
func (v Vec3) Slerp(target Vec3, t float64) (Vec3, error) {
	if t == 0 || math.IsNaN(t) {
		return v, nil
	}
	if t == 1 {
		return target, nil
	}
	dot := v.Dot(target)
	theta := math.Acos(clampUnit(dot)) * t
	relative, err := target.Subtract(v.Scale(dot)).Normalize()
	if err != nil {
		return Vec3{}, fmt.Errorf("slerp: %w", err)
	}
	return v.Scale(math.Cos(theta)).Add(relative.Scale(math.Sin(theta))), nil
}

// AngleBetween returns the angle between v and o in radians, or 0 when
// either vector has zero length.
func (v Vec3) AngleBetween(o Vec3) float64 {
	lengths := v.Length() * o.Length()
	if lengths == 0 {
		return 0
	}
	return math.Acos(clampUnit(v.Dot(o) / lengths))
}

// ProjectOnto returns the orthogonal projection of v onto o. Projection onto
// the zero vector is the zero vector.
func (v Vec3) ProjectOnto(o Vec3) Vec3 {
	if o.IsZero() {
		return Zero
	}
	return o.Scale(v.Dot(o) / o.Dot(o))
}

// Reflect reflects v across the given normal.
func (v Vec3) Reflect(normal Vec3) Vec3 {
	return v.Subtract(v.ProjectOnto(normal).Scale(2))
}

// Rotate rotates v by angle degrees around axis using a quaternion. The axis
// must be a unit vector.
func (v Vec3) Rotate(axis Vec3, angle float64) Vec3 {
	half := angle * math.Pi / 180 / 2
	sin := math.Sin(half)

	w := math.Cos(half)
	x := axis.X * sin
	y := axis.Y * sin
	z := axis.Z * sin

	// q * v * q^-1 expanded
	return Vec3{
		X: w*w*v.X + 2*y*w*v.Z - 2*z*w*v.Y + x*x*v.X + 2*y*x*v.Y + 2*z*x*v.Z - z*z*v.X - y*y*v.X,
		Y: 2*x*y*v.X + y*y*v.Y + 2*z*y*v.Z + 2*w*z*v.X - z*z*v.Y + w*w*v.Y - 2*x*w*v.Z - x*x*v.Y,
		Z: 2*x*z*v.X + 2*y*z*v.Y + z*z*v.Z - 2*w*y*v.X - y*y*v.Z + 2*w*x*v.Y - x*x*v.Z + w*w*v.Z,
	}
}

// DistanceToLineSegment returns the shortest distance from v to the segment
// [start, end]. Feet of the perpendicular that fall outside the segment are
// clamped to the nearest endpoint.
func (v Vec3) DistanceToLineSegment(start, end Vec3) float64 {
	dir := end.Subtract(start)
	lenSq := dir.LengthSquared()
	if lenSq == 0 {
		return v.Distance(start)
	}

	t := v.Subtract(start).Dot(dir) / lenSq
	t = math.Max(0, math.Min(1, t))

	return v.Distance(start.Add(dir.Scale(t)))
}

// WithX returns a copy of v with X replaced.
func (v Vec3) WithX(x float64) Vec3 { return Vec3{X: x, Y: v.Y, Z: v.Z} }

// WithY returns a copy of v with Y replaced.
func (v Vec3) WithY(y float64) Vec3 { return Vec3{X: v.X, Y: y, Z: v.Z} }

// WithZ returns a copy of v with Z replaced.
func (v Vec3) WithZ(z float64) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: z} }

// Up returns v offset by +1 on Y.
func (v Vec3) Up() Vec3 { return v.Add(Vec3{Y: 1}) }

// Down returns v offset by -1 on Y.
func (v Vec3) Down() Vec3 { return v.Add(Vec3{Y: -1}) }

func (v Vec3) Floor() Vec3  { return Vec3{X: math.Floor(v.X), Y: math.Floor(v.Y), Z: math.Floor(v.Z)} }
func (v Vec3) FloorX() Vec3 { return v.WithX(math.Floor(v.X)) }
func (v Vec3) FloorY() Vec3 { return v.WithY(math.Floor(v.Y)) }
func (v Vec3) FloorZ() Vec3 { return v.WithZ(math.Floor(v.Z)) }

func (v Vec3) Ceil() Vec3  { return Vec3{X: math.Ceil(v.X), Y: math.Ceil(v.Y), Z: math.Ceil(v.Z)} }
func (v Vec3) CeilX() Vec3 { return v.WithX(math.Ceil(v.X)) }
func (v Vec3) CeilY() Vec3 { return v.WithY(math.Ceil(v.Y)) }
func (v Vec3) CeilZ() Vec3 { return v.WithZ(math.Ceil(v.Z)) }

// Round rounds every component to the nearest integer, halves toward +Inf.
func (v Vec3) Round() Vec3  { return Vec3{X: roundHalfUp(v.X), Y: roundHalfUp(v.Y), Z: roundHalfUp(v.Z)} }
func (v Vec3) RoundX() Vec3 { return v.WithX(roundHalfUp(v.X)) }
func (v Vec3) RoundY() Vec3 { return v.WithY(roundHalfUp(v.Y)) }
func (v Vec3) RoundZ() Vec3 { return v.WithZ(roundHalfUp(v.Z)) }

// ToBlockLocation maps a continuous position to the grid cell containing it.
func (v Vec3) ToBlockLocation() Vec3 {
	return v.Floor()
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// ToArray returns the components as [x, y, z].
func (v Vec3) ToArray() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Equals reports exact component-wise equality.
func (v Vec3) Equals(o Vec3) bool {
	return v.X == o.X && v.Y == o.Y && v.Z == o.Z
}

// EqualsSlice compares v with an [x, y, z] sequence. Malformed input is
// reported as not equal.
func (v Vec3) EqualsSlice(s []float64) bool {
	o, err := Vec3FromSlice(s)
	if err != nil {
		return false
	}
	return v.Equals(o)
}

// AlmostEqual reports whether every axis differs by at most delta.
func (v Vec3) AlmostEqual(o Vec3, delta float64) bool {
	return math.Abs(v.X-o.X) <= delta &&
		math.Abs(v.Y-o.Y) <= delta &&
		math.Abs(v.Z-o.Z) <= delta
}

// AlmostEqualSlice is AlmostEqual for an [x, y, z] sequence. Malformed input
// is reported as not equal.
func (v Vec3) AlmostEqualSlice(s []float64, delta float64) bool {
	o, err := Vec3FromSlice(s)
	if err != nil {
		return false
	}
	return v.AlmostEqual(o, delta)
}

// String renders v as "(x, y, z)".
func (v Vec3) String() string {
	return "(" + v.Format(false, ", ") + ")"
}

// Format renders the components joined by sep. The long form wraps them as
// "Vec3(...)".
func (v Vec3) Format(long bool, sep string) string {
	s := formatFloat(v.X) + sep + formatFloat(v.Y) + sep + formatFloat(v.Z)
	if long {
		return "Vec3(" + s + ")"
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func roundHalfUp(f float64) float64 {
	r := math.Floor(f)
	if f-r >= 0.5 {
		r++
	}
	return r
}

// acos is undefined outside [-1, 1]; rounding can push a cosine just past it.
func clampUnit(f float64) float64 {
	return math.Max(-1, math.Min(1, f))
}
