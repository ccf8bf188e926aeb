package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestAngleConversions(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
	test.That(t, RadToDeg(DegToRad(37.5)), test.ShouldAlmostEqual, 37.5)
}

func TestFloat64AlmostEqual(t *testing.T) {
	test.That(t, Float64AlmostEqual(1, 1+1e-10, 1e-9), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1+1e-8, 1e-9), test.ShouldBeFalse)
	test.That(t, Float64AlmostEqual(-2, -2, 0), test.ShouldBeTrue)
}

func TestIsFinite(t *testing.T) {
	test.That(t, IsFinite(), test.ShouldBeTrue)
	test.That(t, IsFinite(1, -2, 0), test.ShouldBeTrue)
	test.That(t, IsFinite(1, math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
}

func TestSignOrOne(t *testing.T) {
	test.That(t, SignOrOne(-3), test.ShouldEqual, -1.)
	test.That(t, SignOrOne(0), test.ShouldEqual, 1.)
	test.That(t, SignOrOne(math.Copysign(0, -1)), test.ShouldEqual, 1.)
	test.That(t, SignOrOne(5), test.ShouldEqual, 1.)
}
