package flow

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

const estimatorTolerance = 1e-9

func approxVec(a, b r2.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

// reconstruct applies centroid - R(angle)*centroid with an explicit matrix.
func reconstruct(centroid r2.Vec, angle float64) r2.Vec {
	c, s := math.Cos(angle), math.Sin(angle)
	return r2.Vec{
		X: centroid.X - (c*centroid.X - s*centroid.Y),
		Y: centroid.Y - (s*centroid.X + c*centroid.Y),
	}
}

// axisField spreads vectors along direction theta around centre. Vectors
// come in pairs offset +/- perpendicular so the covariance is full rank
// and the principal axis stays exactly on theta. rows*cols must be even.
func axisField(rows, cols int, theta float64, centre r2.Vec) VectorField {
	f := NewVectorField(rows, cols)
	dir := r2.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
	perp := r2.Vec{X: -dir.Y, Y: dir.X}
	n := rows * cols
	for i := 0; i < n; i++ {
		along := float64(i/2) - float64(n/2-1)/2
		across := 0.1
		if i%2 == 1 {
			across = -0.1
		}
		v := r2.Add(centre, r2.Add(r2.Scale(along, dir), r2.Scale(across, perp)))
		f.Set(i/cols, i%cols, v)
	}
	return f
}

func TestEstimate_UniformField(t *testing.T) {
	field := UniformField(4, 4, r2.Vec{X: 3.0, Y: -1.0})

	est, err := Estimate(field)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !approxVec(est.Centroid, r2.Vec{X: 3.0, Y: -1.0}, estimatorTolerance) {
		t.Errorf("centroid = %v, want (3, -1)", est.Centroid)
	}
	if math.Abs(math.Sin(est.RotationAngle)) > estimatorTolerance {
		t.Errorf("rotation angle = %v, want 0 (mod pi)", est.RotationAngle)
	}
	want := reconstruct(est.Centroid, est.RotationAngle)
	if !approxVec(est.Translation, want, estimatorTolerance) {
		t.Errorf("translation = %v, want %v", est.Translation, want)
	}
}

func TestEstimate_ZeroFieldIsNotRejected(t *testing.T) {
	est, err := Estimate(NewVectorField(3, 5))
	if err != nil {
		t.Fatalf("zero field should not be rejected: %v", err)
	}
	if !approxVec(est.Translation, r2.Vec{}, estimatorTolerance) {
		t.Errorf("translation = %v, want zero", est.Translation)
	}
}

func TestEstimate_AxisAlignment(t *testing.T) {
	tests := []struct {
		name  string
		theta float64
	}{
		{"horizontal", 0},
		{"diagonal", math.Pi / 4},
		{"shallow", 0.3},
		{"steep", -1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := axisField(4, 6, tt.theta, r2.Vec{X: 1.5, Y: 0.5})

			est, err := Estimate(field)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			// Index 0 is not ordered by magnitude, so the chosen axis is
			// either the principal axis or its perpendicular.
			if d := math.Remainder(est.RotationAngle-tt.theta, math.Pi/2); math.Abs(d) > 1e-6 {
				t.Errorf("angle %v is not aligned with axis %v (residual %v)", est.RotationAngle, tt.theta, d)
			}
			want := reconstruct(est.Centroid, est.RotationAngle)
			if !approxVec(est.Translation, want, 1e-9) {
				t.Errorf("translation = %v, want %v", est.Translation, want)
			}
		})
	}
}

func TestEstimate_PrincipalAxisRecoversRotation(t *testing.T) {
	for _, theta := range []float64{0.2, 0.7, -0.9, 1.4} {
		field := axisField(4, 5, theta, r2.Vec{X: -2, Y: 4})

		est, err := NewEstimator(EstimatorOptions{PrincipalAxis: true}).Estimate(field)
		if err != nil {
			t.Fatalf("theta %v: unexpected error: %v", theta, err)
		}
		if d := math.Remainder(est.RotationAngle-theta, math.Pi); math.Abs(d) > 1e-6 {
			t.Errorf("theta %v: angle = %v (mod pi residual %v)", theta, est.RotationAngle, d)
		}
		want := reconstruct(est.Centroid, est.RotationAngle)
		if !approxVec(est.Translation, want, 1e-9) {
			t.Errorf("theta %v: translation = %v, want %v", theta, est.Translation, want)
		}
	}
}

// rotationField is the displacement of a rows x cols pixel grid rotated by
// theta about its centre, shifted by c: v(p) = R(theta)p - p + c.
func rotationField(rows, cols int, theta float64, c r2.Vec) VectorField {
	f := NewVectorField(rows, cols)
	centre := r2.Vec{X: float64(cols-1) / 2, Y: float64(rows-1) / 2}
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			p := r2.Sub(r2.Vec{X: float64(col), Y: float64(r)}, centre)
			f.Set(r, col, r2.Add(r2.Sub(r2.Rotate(p, theta, r2.Vec{}), p), c))
		}
	}
	return f
}

func TestEstimate_RotationAboutCentroid(t *testing.T) {
	c := r2.Vec{X: 0.5, Y: -1.5}
	for _, theta := range []float64{0.4, 1.0, -0.8, 2.5} {
		// R(theta) - I is 2sin(theta/2) R(theta/2 + pi/2), so the vectors
		// spread along the grid's long axis turned by theta/2 + pi/2.
		axis := theta/2 + math.Pi/2
		field := rotationField(2, 8, theta, c)

		est, err := Estimate(field)
		if err != nil {
			t.Fatalf("theta %v: unexpected error: %v", theta, err)
		}
		if !approxVec(est.Centroid, c, 1e-9) {
			t.Errorf("theta %v: centroid = %v, want %v", theta, est.Centroid, c)
		}
		if d := math.Remainder(est.RotationAngle-axis, math.Pi/2); math.Abs(d) > 1e-6 {
			t.Errorf("theta %v: angle %v not aligned with %v (residual %v)", theta, est.RotationAngle, axis, d)
		}
		if want := reconstruct(est.Centroid, est.RotationAngle); !approxVec(est.Translation, want, 1e-9) {
			t.Errorf("theta %v: translation = %v, want %v", theta, est.Translation, want)
		}

		principal, err := NewEstimator(EstimatorOptions{PrincipalAxis: true}).Estimate(field)
		if err != nil {
			t.Fatalf("theta %v: unexpected error: %v", theta, err)
		}
		if d := math.Remainder(principal.RotationAngle-axis, math.Pi); math.Abs(d) > 1e-6 {
			t.Errorf("theta %v: principal angle %v, want %v mod pi (residual %v)", theta, principal.RotationAngle, axis, d)
		}
		if want := reconstruct(principal.Centroid, principal.RotationAngle); !approxVec(principal.Translation, want, 1e-9) {
			t.Errorf("theta %v: principal translation = %v, want %v", theta, principal.Translation, want)
		}
	}
}

func TestEstimate_IsPure(t *testing.T) {
	field := axisField(3, 4, 0.5, r2.Vec{X: 2, Y: 1})
	before := append([]float64(nil), field.Data...)

	a, errA := Estimate(field)
	b, errB := Estimate(field)
	if errA != nil || errB != nil {
		t.Fatalf("unexpected errors: %v, %v", errA, errB)
	}
	if a != b {
		t.Errorf("repeated estimates differ: %+v vs %+v", a, b)
	}
	for i := range before {
		if field.Data[i] != before[i] {
			t.Fatalf("field mutated at %d", i)
		}
	}
}

func TestEstimate_TopDecileCentroid(t *testing.T) {
	field := NewVectorField(2, 5)
	field.Set(1, 4, r2.Vec{X: 10, Y: 0})

	full, err := Estimate(field)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxVec(full.Centroid, r2.Vec{X: 1, Y: 0}, estimatorTolerance) {
		t.Errorf("full centroid = %v, want (1, 0)", full.Centroid)
	}

	sparse, err := NewEstimator(EstimatorOptions{TopDecileCentroid: true}).Estimate(field)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxVec(sparse.Centroid, r2.Vec{X: 10, Y: 0}, estimatorTolerance) {
		t.Errorf("sparse centroid = %v, want (10, 0)", sparse.Centroid)
	}
}

func TestEstimate_TopDecileFallsBackOnUniformField(t *testing.T) {
	field := UniformField(3, 3, r2.Vec{X: 0.5, Y: 2})

	est, err := NewEstimator(EstimatorOptions{TopDecileCentroid: true}).Estimate(field)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxVec(est.Centroid, r2.Vec{X: 0.5, Y: 2}, estimatorTolerance) {
		t.Errorf("centroid = %v, want full-field centroid (0.5, 2)", est.Centroid)
	}
}

func TestEstimate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		field VectorField
		want  error
	}{
		{"empty", VectorField{}, ErrEmptyField},
		{"zero rows", NewVectorField(0, 4), ErrEmptyField},
		{"short data", VectorField{Rows: 2, Cols: 2, Data: make([]float64, 6)}, ErrFieldShape},
		{"single vector", UniformField(1, 1, r2.Vec{X: 1, Y: 1}), ErrNumericDegeneracy},
		{"nan vector", VectorField{Rows: 1, Cols: 2, Data: []float64{math.NaN(), 0, 1, 1}}, ErrNumericDegeneracy},
		{"inf vector", VectorField{Rows: 2, Cols: 1, Data: []float64{math.Inf(1), 0, 1, 1}}, ErrNumericDegeneracy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Estimate(tt.field)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
