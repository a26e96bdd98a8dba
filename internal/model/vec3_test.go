package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

var sampleVectors = []Vec3{
	{1, 2, 3},
	{-4.5, 0, 7.25},
	{36.5514, 139.9, 12.3},
	{0, 0, -1},
	{1e-7, -1e7, 3},
}

func TestAddSubtractMultiplyIdentities(t *testing.T) {
	for _, v := range sampleVectors {
		if got := v.Add(Zero); !got.Equals(v) {
			t.Fatalf("%v.Add(zero) = %v, want %v", v, got, v)
		}
		if got := v.Subtract(v); !got.IsZero() {
			t.Fatalf("%v.Subtract(self) = %v, want zero", v, got)
		}
		if got := v.Scale(1); !got.Equals(v) {
			t.Fatalf("%v.Scale(1) = %v, want %v", v, got, v)
		}
		if got := v.Multiply(NewVec3(1, 1, 1)); !got.Equals(v) {
			t.Fatalf("%v.Multiply(ones) = %v, want %v", v, got, v)
		}
	}
}

func TestMultiplyComponentWise(t *testing.T) {
	got := NewVec3(1, 2, 3).Multiply(NewVec3(4, -5, 0.5))
	if want := NewVec3(4, -10, 1.5); !got.Equals(want) {
		t.Fatalf("Multiply = %v, want %v", got, want)
	}
}

func TestDivide(t *testing.T) {
	v := NewVec3(2, 4, 8)

	got, err := v.DivideScalar(2)
	if err != nil {
		t.Fatalf("DivideScalar(2): %v", err)
	}
	if want := NewVec3(1, 2, 4); !got.Equals(want) {
		t.Fatalf("DivideScalar(2) = %v, want %v", got, want)
	}

	got, err = v.Divide(NewVec3(2, 4, -8))
	if err != nil {
		t.Fatalf("Divide: %v", err)
	}
	if want := NewVec3(1, 1, -1); !got.Equals(want) {
		t.Fatalf("Divide = %v, want %v", got, want)
	}
}

func TestDivideByZero(t *testing.T) {
	v := NewVec3(1, 2, 3)

	if _, err := v.DivideScalar(0); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("DivideScalar(0) err = %v, want ErrDivideByZero", err)
	}

	divisors := []Vec3{
		{0, 1, 1},
		{1, 0, 1},
		{1, 1, 0},
		{math.Copysign(0, -1), 2, 3},
	}
	for _, d := range divisors {
		if _, err := v.Divide(d); !errors.Is(err, ErrDivideByZero) {
			t.Fatalf("Divide(%v) err = %v, want ErrDivideByZero", d, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	for _, v := range sampleVectors {
		n, err := v.Normalize()
		if err != nil {
			t.Fatalf("%v.Normalize(): %v", v, err)
		}
		if l := n.Length(); math.Abs(l-1) > eps {
			t.Fatalf("%v.Normalize().Length() = %v, want 1", v, l)
		}
		if a := n.AngleBetween(v); a > 1e-6 {
			t.Fatalf("normalized vector changed direction by %v rad", a)
		}
	}

	if _, err := Zero.Normalize(); !errors.Is(err, ErrZeroLengthVector) {
		t.Fatalf("Zero.Normalize() err = %v, want ErrZeroLengthVector", err)
	}
}

func TestLength(t *testing.T) {
	if l := Zero.Length(); l != 0 {
		t.Fatalf("Zero.Length() = %v, want 0", l)
	}
	v := NewVec3(2, 3, 6)
	if l := v.Length(); l != 7 {
		t.Fatalf("Length() = %v, want 7", l)
	}
	if l := v.LengthSquared(); l != 49 {
		t.Fatalf("LengthSquared() = %v, want 49", l)
	}
}

func TestCrossIsOrthogonal(t *testing.T) {
	pairs := [][2]Vec3{
		{{1, 0, 0}, {0, 1, 0}},
		{{1, 2, 3}, {-4, 5, 0.5}},
		{{36.5, 139.9, 10}, {36.6, 139.8, 12}},
	}
	for _, p := range pairs {
		c := p[0].Cross(p[1])
		if d := c.Dot(p[0]); math.Abs(d) > 1e-6 {
			t.Fatalf("(%v x %v) . a = %v, want 0", p[0], p[1], d)
		}
		if d := c.Dot(p[1]); math.Abs(d) > 1e-6 {
			t.Fatalf("(%v x %v) . b = %v, want 0", p[0], p[1], d)
		}
	}

	if got := NewVec3(1, 0, 0).Cross(NewVec3(0, 1, 0)); !got.Equals(NewVec3(0, 0, 1)) {
		t.Fatalf("x cross y = %v, want (0, 0, 1)", got)
	}
	if got := NewVec3(1, 2, 3).Cross(NewVec3(2, 4, 6)); !got.IsZero() {
		t.Fatalf("parallel cross = %v, want zero", got)
	}
}

func TestDistance(t *testing.T) {
	a := NewVec3(1, 1, 1)
	b := NewVec3(4, 5, 1)
	if d := a.Distance(b); d != 5 {
		t.Fatalf("Distance = %v, want 5", d)
	}
	if d := a.DistanceSquared(b); d != 25 {
		t.Fatalf("DistanceSquared = %v, want 25", d)
	}
}

func TestLerp(t *testing.T) {
	a := NewVec3(0.1, 0.2, 0.3)
	b := NewVec3(10.7, -3.3, 1e9)

	if got := a.Lerp(b, 0); !got.Equals(a) {
		t.Fatalf("Lerp(b, 0) = %v, want %v", got, a)
	}
	if got := a.Lerp(b, 1); !got.Equals(b) {
		t.Fatalf("Lerp(b, 1) = %v, want %v", got, b)
	}
	if got := a.Lerp(b, math.NaN()); !got.Equals(a) {
		t.Fatalf("Lerp(b, NaN) = %v, want %v", got, a)
	}

	got := NewVec3(0, 0, 0).Lerp(NewVec3(2, 4, 6), 0.5)
	if want := NewVec3(1, 2, 3); !got.Equals(want) {
		t.Fatalf("Lerp(0.5) = %v, want %v", got, want)
	}

	got = NewVec3(0, 0, 0).Lerp(NewVec3(1, 1, 1), 2)
	if want := NewVec3(2, 2, 2); !got.Equals(want) {
		t.Fatalf("Lerp(2) = %v, want %v (no clamping)", got, want)
	}
}

func TestSlerp(t *testing.T) {
	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)

	got, err := x.Slerp(y, 0.5)
	if err != nil {
		t.Fatalf("Slerp: %v", err)
	}
	want := NewVec3(math.Sqrt2/2, math.Sqrt2/2, 0)
	if !got.AlmostEqual(want, eps) {
		t.Fatalf("Slerp(0.5) = %v, want %v", got, want)
	}

	if got, _ := x.Slerp(y, 0); !got.Equals(x) {
		t.Fatalf("Slerp(0) = %v, want %v", got, x)
	}
	if got, _ := x.Slerp(y, 1); !got.Equals(y) {
		t.Fatalf("Slerp(1) = %v, want %v", got, y)
	}

	if _, err := x.Slerp(x, 0.5); !errors.Is(err, ErrZeroLengthVector) {
		t.Fatalf("Slerp(parallel) err = %v, want ErrZeroLengthVector", err)
	}
}

func TestAngleBetween(t *testing.T) {
	tests := []struct {
		a, b Vec3
		want float64
	}{
		{NewVec3(1, 0, 0), NewVec3(0, 1, 0), math.Pi / 2},
		{NewVec3(1, 0, 0), NewVec3(-3, 0, 0), math.Pi},
		{NewVec3(2, 2, 0), NewVec3(5, 5, 0), 0},
		{Zero, NewVec3(1, 2, 3), 0},
		{NewVec3(1, 2, 3), Zero, 0},
	}
	for _, tt := range tests {
		got := tt.a.AngleBetween(tt.b)
		if math.IsNaN(got) || math.Abs(got-tt.want) > 1e-7 {
			t.Fatalf("%v.AngleBetween(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestProjectOntoAndReflect(t *testing.T) {
	v := NewVec3(3, 4, 5)

	if got := v.ProjectOnto(NewVec3(0, 2, 0)); !got.Equals(NewVec3(0, 4, 0)) {
		t.Fatalf("ProjectOnto(y) = %v, want (0, 4, 0)", got)
	}
	if got := v.ProjectOnto(Zero); !got.IsZero() {
		t.Fatalf("ProjectOnto(zero) = %v, want zero", got)
	}

	if got := NewVec3(1, -1, 0).Reflect(NewVec3(0, 1, 0)); !got.Equals(NewVec3(1, 1, 0)) {
		t.Fatalf("Reflect = %v, want (1, 1, 0)", got)
	}
	if got := v.Reflect(Zero); !got.Equals(v) {
		t.Fatalf("Reflect(zero) = %v, want %v", got, v)
	}
}

func TestRotate(t *testing.T) {
	tests := []struct {
		v, axis Vec3
		angle   float64
		want    Vec3
	}{
		{NewVec3(1, 0, 0), NewVec3(0, 0, 1), 90, NewVec3(0, 1, 0)},
		{NewVec3(1, 0, 0), NewVec3(0, 0, 1), 180, NewVec3(-1, 0, 0)},
		{NewVec3(0, 1, 0), NewVec3(1, 0, 0), 90, NewVec3(0, 0, 1)},
		{NewVec3(1, 2, 3), NewVec3(0, 1, 0), 360, NewVec3(1, 2, 3)},
		{NewVec3(1, 2, 3), NewVec3(0, 1, 0), 0, NewVec3(1, 2, 3)},
	}
	for _, tt := range tests {
		got := tt.v.Rotate(tt.axis, tt.angle)
		if !got.AlmostEqual(tt.want, 1e-12) {
			t.Fatalf("%v.Rotate(%v, %v) = %v, want %v", tt.v, tt.axis, tt.angle, got, tt.want)
		}
	}

	v := NewVec3(3, -1, 2)
	axis, _ := NewVec3(1, 1, 1).Normalize()
	if got := v.Rotate(axis, 73).Length(); math.Abs(got-v.Length()) > eps {
		t.Fatalf("rotation changed length: %v, want %v", got, v.Length())
	}
}

func TestDistanceToLineSegment(t *testing.T) {
	start := NewVec3(0, 0, 0)
	end := NewVec3(10, 0, 0)

	tests := []struct {
		name  string
		p     Vec3
		start Vec3
		end   Vec3
		want  float64
	}{
		{"perpendicular foot inside", NewVec3(5, 3, 0), start, end, 3},
		{"before start", NewVec3(-3, 4, 0), start, end, 5},
		{"after end", NewVec3(13, 0, 4), start, end, 5},
		{"on segment", NewVec3(7, 0, 0), start, end, 0},
		{"degenerate segment", NewVec3(1, 2, 2), start, start, 3},
		{"degenerate at midpoint", NewVec3(5, 0, 0), NewVec3(5, 0, 0), NewVec3(5, 0, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.DistanceToLineSegment(tt.start, tt.end); math.Abs(got-tt.want) > eps {
				t.Fatalf("DistanceToLineSegment = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRounding(t *testing.T) {
	v := NewVec3(1.5, -2.5, -0.2)

	if got := v.Floor(); !got.Equals(NewVec3(1, -3, -1)) {
		t.Fatalf("Floor = %v", got)
	}
	if got := v.Ceil(); !got.Equals(NewVec3(2, -2, 0)) {
		t.Fatalf("Ceil = %v", got)
	}
	if got := v.Round(); !got.Equals(NewVec3(2, -2, 0)) {
		t.Fatalf("Round = %v, want (2, -2, 0)", got)
	}

	if got := v.FloorX(); !got.Equals(NewVec3(1, -2.5, -0.2)) {
		t.Fatalf("FloorX = %v", got)
	}
	if got := v.CeilY(); !got.Equals(NewVec3(1.5, -2, -0.2)) {
		t.Fatalf("CeilY = %v", got)
	}
	if got := v.RoundZ(); !got.Equals(NewVec3(1.5, -2.5, 0)) {
		t.Fatalf("RoundZ = %v", got)
	}
	if got := v.FloorZ(); !got.Equals(NewVec3(1.5, -2.5, -1)) {
		t.Fatalf("FloorZ = %v", got)
	}
	if got := v.RoundY(); !got.Equals(NewVec3(1.5, -2, -0.2)) {
		t.Fatalf("RoundY = %v", got)
	}
}

func TestToBlockLocation(t *testing.T) {
	tests := []struct {
		in, want Vec3
	}{
		{NewVec3(1.9, 2.1, 0), NewVec3(1, 2, 0)},
		{NewVec3(-0.1, -1, -1.5), NewVec3(-1, -1, -2)},
		{NewVec3(-180.25, 3, 4), NewVec3(-181, 3, 4)},
	}
	for _, tt := range tests {
		if got := tt.in.ToBlockLocation(); !got.Equals(tt.want) {
			t.Fatalf("%v.ToBlockLocation() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEqualityPredicates(t *testing.T) {
	v := NewVec3(1, 2, 3)

	if !v.Equals(NewVec3(1, 2, 3)) || v.Equals(NewVec3(1, 2, 3.0000001)) {
		t.Fatalf("Equals is not exact")
	}
	if !v.EqualsSlice([]float64{1, 2, 3}) {
		t.Fatalf("EqualsSlice([1 2 3]) = false")
	}
	if v.EqualsSlice([]float64{1, 2}) || v.EqualsSlice(nil) {
		t.Fatalf("EqualsSlice on malformed input must be false")
	}

	// Chebyshev: each axis within delta, even though the Euclidean
	// distance exceeds it.
	if !v.AlmostEqual(NewVec3(1.1, 2.1, 3.1), 0.1000001) {
		t.Fatalf("AlmostEqual should accept per-axis tolerance")
	}
	if v.AlmostEqual(NewVec3(1.2, 2, 3), 0.1) {
		t.Fatalf("AlmostEqual accepted a 0.2 offset with delta 0.1")
	}
	if !v.AlmostEqualSlice([]float64{1, 2, 3.05}, 0.1) {
		t.Fatalf("AlmostEqualSlice = false")
	}
	if v.AlmostEqualSlice([]float64{1, 2, 3, 4}, 1) {
		t.Fatalf("AlmostEqualSlice on malformed input must be false")
	}
}

func TestConversions(t *testing.T) {
	if _, err := Vec3FromSlice([]float64{1, 2}); !errors.Is(err, ErrInvalidOperand) {
		t.Fatalf("Vec3FromSlice(2 elems) err = %v, want ErrInvalidOperand", err)
	}
	v, err := Vec3FromSlice([]float64{1, 2, 3})
	if err != nil || !v.Equals(Vec3FromArray([3]float64{1, 2, 3})) {
		t.Fatalf("Vec3FromSlice = %v, %v", v, err)
	}
	if a := v.ToArray(); a != [3]float64{1, 2, 3} {
		t.Fatalf("ToArray = %v", a)
	}
	if got := v.WithX(9).WithY(8).WithZ(7); !got.Equals(NewVec3(9, 8, 7)) {
		t.Fatalf("WithX/Y/Z = %v", got)
	}
	if got := v.Up().Down().Down(); !got.Equals(NewVec3(1, 1, 3)) {
		t.Fatalf("Up/Down = %v", got)
	}
	if got := v.Negate(); !got.Equals(NewVec3(-1, -2, -3)) {
		t.Fatalf("Negate = %v", got)
	}
}

func TestStringAndFormat(t *testing.T) {
	v := NewVec3(36.5514, 139.9, 0)
	if s := v.String(); s != "(36.5514, 139.9, 0)" {
		t.Fatalf("String() = %q", s)
	}
	if s := v.Format(true, ", "); s != "Vec3(36.5514, 139.9, 0)" {
		t.Fatalf("Format(long) = %q", s)
	}
	if s := v.Format(false, " "); s != "36.5514 139.9 0" {
		t.Fatalf("Format(short) = %q", s)
	}
}

func TestVec3JSON(t *testing.T) {
	data, err := json.Marshal(NewVec3(1.5, -2, 0))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"x":1.5,"y":-2,"z":0}` {
		t.Fatalf("json = %s", data)
	}
}
