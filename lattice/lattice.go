// Package lattice provides the fixed 8-dimensional root lattice used by the
// overlay engine. A Lattice is immutable after construction and safe to share
// across goroutines.
package lattice

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Dim is the rank of the lattice.
const Dim = 8

// Vec is a point (or direction) in the 8-dimensional ambient space.
type Vec [Dim]float64

var (
	// ErrInvalidIndex is returned for simple-root indices outside [0, Dim).
	ErrInvalidIndex = errors.New("lattice: invalid index")
	// ErrSingularBasis is returned when a basis has zero determinant.
	ErrSingularBasis = errors.New("lattice: singular basis")
)

// e8SimpleRoots are the Bourbaki simple roots of E8, one per row.
var e8SimpleRoots = [Dim][Dim]float64{
	{0.5, -0.5, -0.5, -0.5, -0.5, -0.5, -0.5, 0.5},
	{1, 1, 0, 0, 0, 0, 0, 0},
	{-1, 1, 0, 0, 0, 0, 0, 0},
	{0, -1, 1, 0, 0, 0, 0, 0},
	{0, 0, -1, 1, 0, 0, 0, 0},
	{0, 0, 0, -1, 1, 0, 0, 0},
	{0, 0, 0, 0, -1, 1, 0, 0},
	{0, 0, 0, 0, 0, -1, 1, 0},
}

// Lattice holds a basis B (rows are the simple roots), its inverse, and a QR
// factorization of the column-form basis Bᵀ used by the nearest-plane search.
type Lattice struct {
	basis   *mat.Dense
	inverse *mat.Dense
	q       *mat.Dense
	r       *mat.Dense
	roots   [Dim]Vec
	norms2  [Dim]float64
}

// NewLattice builds a Lattice from basis rows. The rows become the simple roots.
func NewLattice(rows [Dim][Dim]float64) (*Lattice, error) {
	data := make([]float64, 0, Dim*Dim)
	for _, row := range rows {
		for _, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("basis entry %v is not finite: %w", x, ErrSingularBasis)
			}
		}
		data = append(data, row[:]...)
	}
	basis := mat.NewDense(Dim, Dim, data)
	if det := mat.Det(basis); math.Abs(det) < 1e-12 {
		return nil, fmt.Errorf("det(B)=%g: %w", det, ErrSingularBasis)
	}

	var inv mat.Dense
	if err := inv.Inverse(basis); err != nil {
		return nil, fmt.Errorf("inverting basis: %w", errors.Join(ErrSingularBasis, err))
	}

	var qr mat.QR
	qr.Factorize(basis.T())
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	l := &Lattice{basis: basis, inverse: &inv, q: &q, r: &r}
	for i := 0; i < Dim; i++ {
		l.roots[i] = Vec(rows[i])
		l.norms2[i] = Dot(l.roots[i], l.roots[i])
	}
	return l, nil
}

// MustNewLattice is NewLattice for compile-time constant bases; it panics on error.
func MustNewLattice(rows [Dim][Dim]float64) *Lattice {
	l, err := NewLattice(rows)
	if err != nil {
		panic(fmt.Sprintf("lattice: %v", err))
	}
	return l
}

// E8 returns a Lattice over the standard E8 simple-root basis.
func E8() *Lattice {
	return MustNewLattice(e8SimpleRoots)
}

// Basis returns a copy of the basis rows.
func (l *Lattice) Basis() [Dim][Dim]float64 {
	var out [Dim][Dim]float64
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			out[i][j] = l.basis.At(i, j)
		}
	}
	return out
}

// Coefficients returns the real coordinates c of v in the basis, v = Σ cᵢ·αᵢ.
func (l *Lattice) Coefficients(v Vec) Vec {
	// v = Bᵀc  =>  c = (B⁻¹)ᵀ v
	var c mat.VecDense
	c.MulVec(l.inverse.T(), mat.NewVecDense(Dim, v[:]))
	return fromVecDense(&c)
}

// Point maps integer (or real) coordinates back into ambient space.
func (l *Lattice) Point(c Vec) Vec {
	var x mat.VecDense
	x.MulVec(l.basis.T(), mat.NewVecDense(Dim, c[:]))
	return fromVecDense(&x)
}

// ProjectToLattice snaps v to a nearby lattice point by rounding its basis
// coordinates, and reports the residual norm |v - snapped|.
func (l *Lattice) ProjectToLattice(v Vec) (Vec, float64) {
	c := l.Coefficients(v)
	for i := range c {
		c[i] = math.Round(c[i])
	}
	snapped := l.Point(c)
	return snapped, Norm(Sub(v, snapped))
}

// NearestPlane runs Babai's nearest-plane reduction: with Bᵀ = QR, rotate v
// into the triangular frame and back-substitute, rounding one coordinate per plane.
func (l *Lattice) NearestPlane(v Vec) (Vec, float64) {
	var y mat.VecDense
	y.MulVec(l.q.T(), mat.NewVecDense(Dim, v[:]))

	var c Vec
	for i := Dim - 1; i >= 0; i-- {
		acc := y.AtVec(i)
		for j := i + 1; j < Dim; j++ {
			acc -= l.r.At(i, j) * c[j]
		}
		c[i] = math.Round(acc / l.r.At(i, i))
	}
	snapped := l.Point(c)
	return snapped, Norm(Sub(v, snapped))
}

// SimpleRoot returns αᵢ for i in [0, Dim).
func (l *Lattice) SimpleRoot(i int) (Vec, error) {
	if i < 0 || i >= Dim {
		return Vec{}, fmt.Errorf("simple root %d: %w", i, ErrInvalidIndex)
	}
	return l.roots[i], nil
}

// WeylReflect reflects v through the hyperplane orthogonal to αᵢ:
// v - 2(v·αᵢ / αᵢ·αᵢ)αᵢ.
func (l *Lattice) WeylReflect(v Vec, i int) (Vec, error) {
	if i < 0 || i >= Dim {
		return Vec{}, fmt.Errorf("weyl reflection %d: %w", i, ErrInvalidIndex)
	}
	alpha := l.roots[i]
	k := 2 * Dot(v, alpha) / l.norms2[i]
	var out Vec
	for j := range v {
		out[j] = v[j] - k*alpha[j]
	}
	return out, nil
}

// IsInDominantChamber reports whether v·αᵢ >= -tol for every simple root.
func (l *Lattice) IsInDominantChamber(v Vec, tol float64) bool {
	for i := range l.roots {
		if Dot(v, l.roots[i]) < -tol {
			return false
		}
	}
	return true
}

func fromVecDense(v *mat.VecDense) Vec {
	var out Vec
	for i := 0; i < Dim; i++ {
		out[i] = v.AtVec(i)
	}
	return out
}
