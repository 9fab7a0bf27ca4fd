package coords

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMMConversion(t *testing.T) {
	if got := MM(25.4); !approx(got, 72) {
		t.Fatalf("MM(25.4) = %g, want 72", got)
	}
	if got := ToMM(MM(123.45)); !approx(got, 123.45) {
		t.Fatalf("ToMM(MM(123.45)) = %g", got)
	}
}

func TestMatrixMultiply(t *testing.T) {
	// Multiply applies the receiver first: translate, then scale.
	m := Translate(10, 20).Multiply(Scale(2, 3))
	p := m.Transform(Point{X: 1, Y: 1})
	if !approx(p.X, 22) || !approx(p.Y, 63) {
		t.Fatalf("transform = (%g, %g), want (22, 63)", p.X, p.Y)
	}
}

func TestMatrixInverse(t *testing.T) {
	m := Translate(5, -3).Multiply(Rotate(math.Pi / 6)).Multiply(Scale(2, 2))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	p := inv.Transform(m.Transform(Point{X: 7, Y: 11}))
	if !approx(p.X, 7) || !approx(p.Y, 11) {
		t.Fatalf("round trip = (%g, %g), want (7, 11)", p.X, p.Y)
	}

	if _, err := (Matrix{0, 0, 0, 0, 1, 1}).Inverse(); err == nil {
		t.Fatal("Inverse of a singular matrix succeeded")
	}
}
