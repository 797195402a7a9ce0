// Package stencil builds the finite-difference second-difference operators
// used by the equation models.
//
// All operators are banded and stored as gonum band matrices. They are
// built once per grid size and never modified afterwards.
package stencil

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// Operator is an immutable banded matrix applied by matrix-vector product.
type Operator struct {
	name string
	m    *mat.BandDense
}

func (o *Operator) Name() string { return o.name }

// Dims returns the number of rows and columns.
func (o *Operator) Dims() (r, c int) { return o.m.Dims() }

func (o *Operator) At(i, j int) float64 { return o.m.At(i, j) }

// Dense returns a copy of the operator as a dense matrix.
func (o *Operator) Dense() *mat.Dense { return mat.DenseCopyOf(o.m) }

// Apply returns the product of the operator with x.
func (o *Operator) Apply(x []float64) ([]float64, error) {
	r, _ := o.m.Dims()
	dst := make([]float64, r)
	if err := o.ApplyTo(dst, x); err != nil {
		return nil, err
	}
	return dst, nil
}

// ApplyTo writes the product of the operator with x into dst.
func (o *Operator) ApplyTo(dst, x []float64) error {
	r, c := o.m.Dims()
	if len(x) != c {
		return dynamo.DimensionErrorf("%s: input length %d, want %d", o.name, len(x), c)
	}
	if len(dst) != r {
		return dynamo.DimensionErrorf("%s: output length %d, want %d", o.name, len(dst), r)
	}
	out := mat.NewVecDense(r, dst)
	out.MulVec(o.m, mat.NewVecDense(c, x))
	return nil
}

// Square builds the n×n Laplacian with reflective boundary rows: the ghost
// neighbour of each end point is folded onto its single interior neighbour,
// giving [-2, 2] in the first row and [2, -2] in the last.
func Square(n int) (*Operator, error) {
	if n < 1 {
		return nil, dynamo.ConfigErrorf("stencil size must be >= 1, got %d", n)
	}
	if n == 1 {
		return &Operator{name: "square", m: mat.NewBandDense(1, 1, 0, 0, nil)}, nil
	}

	m := mat.NewBandDense(n, n, 1, 1, nil)
	m.SetBand(0, 0, -2)
	m.SetBand(0, 1, 2)
	for k := 1; k < n-1; k++ {
		m.SetBand(k, k-1, 1)
		m.SetBand(k, k, -2)
		m.SetBand(k, k+1, 1)
	}
	m.SetBand(n-1, n-2, 2)
	m.SetBand(n-1, n-1, -2)
	return &Operator{name: "square", m: m}, nil
}

// Rectangular builds the n×(n+2) reduction Laplacian: row k holds
// [1, -2, 1] in columns k..k+2, mapping a vector with one ghost slot on
// each side to the second differences at its n interior points.
func Rectangular(n int) (*Operator, error) {
	if n < 1 {
		return nil, dynamo.ConfigErrorf("stencil size must be >= 1, got %d", n)
	}
	m := mat.NewBandDense(n, n+2, 0, 2, nil)
	for k := 0; k < n; k++ {
		m.SetBand(k, k, 1)
		m.SetBand(k, k+1, -2)
		m.SetBand(k, k+2, 1)
	}
	return &Operator{name: "rectangular", m: m}, nil
}

// BiLaplacian builds the n×(n+4) fourth-difference operator as the product
// Rectangular(n)·Rectangular(n+2). Row k holds [1, -4, 6, -4, 1] starting
// at column k.
func BiLaplacian(n int) (*Operator, error) {
	inner, err := Rectangular(n)
	if err != nil {
		return nil, err
	}
	outer, err := Rectangular(n + 2)
	if err != nil {
		return nil, err
	}

	var prod mat.Dense
	prod.Mul(inner.m, outer.m)

	m := mat.NewBandDense(n, n+4, 0, 4, nil)
	for k := 0; k < n; k++ {
		for j := k; j <= k+4; j++ {
			m.SetBand(k, j, prod.At(k, j))
		}
	}
	return &Operator{name: "bilaplacian", m: m}, nil
}
