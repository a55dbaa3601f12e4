package flow

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// VectorField is a dense grid of 2D displacement vectors, height x width x 2.
// Data is row-major with (dx, dy) interleaved per cell.
type VectorField struct {
	Rows int
	Cols int
	Data []float64
}

// NewVectorField allocates a zeroed field of the given shape.
func NewVectorField(rows, cols int) VectorField {
	if rows < 0 || cols < 0 {
		rows, cols = 0, 0
	}
	return VectorField{Rows: rows, Cols: cols, Data: make([]float64, rows*cols*2)}
}

// UniformField returns a rows x cols field where every cell holds v.
func UniformField(rows, cols int, v r2.Vec) VectorField {
	f := NewVectorField(rows, cols)
	for i := 0; i < len(f.Data); i += 2 {
		f.Data[i] = v.X
		f.Data[i+1] = v.Y
	}
	return f
}

// Len returns the number of vectors in the field.
func (f VectorField) Len() int {
	return f.Rows * f.Cols
}

// At returns the vector at row r, column c.
func (f VectorField) At(r, c int) r2.Vec {
	i := (r*f.Cols + c) * 2
	return r2.Vec{X: f.Data[i], Y: f.Data[i+1]}
}

// Set stores v at row r, column c.
func (f VectorField) Set(r, c int, v r2.Vec) {
	i := (r*f.Cols + c) * 2
	f.Data[i] = v.X
	f.Data[i+1] = v.Y
}

// Vector returns the i-th vector in row-major order.
func (f VectorField) Vector(i int) r2.Vec {
	return r2.Vec{X: f.Data[2*i], Y: f.Data[2*i+1]}
}

// Validate checks the field is non-empty and its data matches its shape.
func (f VectorField) Validate() error {
	if f.Rows <= 0 || f.Cols <= 0 {
		return ErrEmptyField
	}
	if want := f.Rows * f.Cols * 2; len(f.Data) != want {
		return fmt.Errorf("%w: %dx%d needs %d values, got %d", ErrFieldShape, f.Rows, f.Cols, want, len(f.Data))
	}
	return nil
}
