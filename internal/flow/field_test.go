package flow

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestVectorField_SetAt(t *testing.T) {
	f := NewVectorField(2, 3)
	f.Set(1, 2, r2.Vec{X: 4, Y: -5})

	if got := f.At(1, 2); got != (r2.Vec{X: 4, Y: -5}) {
		t.Errorf("At(1,2) = %v", got)
	}
	if got := f.Vector(5); got != (r2.Vec{X: 4, Y: -5}) {
		t.Errorf("Vector(5) = %v", got)
	}
	if f.Len() != 6 {
		t.Errorf("Len = %d, want 6", f.Len())
	}
}

func TestVectorField_Validate(t *testing.T) {
	if err := UniformField(2, 2, r2.Vec{X: 1}).Validate(); err != nil {
		t.Errorf("valid field rejected: %v", err)
	}
	if err := NewVectorField(-1, 3).Validate(); !errors.Is(err, ErrEmptyField) {
		t.Errorf("negative shape: got %v", err)
	}
}
