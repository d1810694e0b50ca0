// Public domain.

package idc

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"
)

// Shift returns a copy of m with the polynomials re-expanded about a
// reference point offset by (xs, ys) pixels.  The constant terms are then
// reduced by the offset.
func (m *Model) Shift(xs, ys float64) *Model {
	s := *m
	s.Fx = shiftCoeffs(m.Fx, m.Order, xs, ys)
	s.Fy = shiftCoeffs(m.Fy, m.Order, xs, ys)
	s.Fx.Set(0, 0, s.Fx.At(0, 0)-xs)
	s.Fy.Set(0, 0, s.Fy.At(0, 0)-ys)
	return &s
}

func shiftCoeffs(c *mat.Dense, order int, xs, ys float64) *mat.Dense {
	k := order + 1
	s := mat.NewDense(k, k, nil)
	for m := 0; m < k; m++ {
		for n := 0; n <= m; n++ {
			var sum float64
			for i := m; i < k; i++ {
				for j := n; j <= i-(m-n); j++ {
					b := combin.Binomial(j, n) * combin.Binomial(i-j, m-n)
					sum += c.At(i, j) * float64(b) *
						math.Pow(xs, float64(j-n)) *
						math.Pow(ys, float64(i-j-(m-n)))
				}
			}
			s.Set(m, n, sum)
		}
	}
	return s
}
