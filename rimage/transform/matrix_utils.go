package transform

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// mat.Dense utils.
func transposeDense(m mat.Matrix) *mat.Dense {
	nRows, nCols := m.Dims()
	m2 := mat.NewDense(nCols, nRows, nil)
	m2.Copy(m.T())
	return m2
}

// reverseDense returns a copy of m with both the row order and the column order reversed.
func reverseDense(m mat.Matrix) *mat.Dense {
	nRows, nCols := m.Dims()
	out := mat.NewDense(nRows, nCols, nil)
	for i := 0; i < nRows; i++ {
		for j := 0; j < nCols; j++ {
			out.Set(i, j, m.At(nRows-1-i, nCols-1-j))
		}
	}
	return out
}

// maxAbs returns the largest absolute entry of m.
func maxAbs(m mat.Matrix) float64 {
	nRows, nCols := m.Dims()
	largest := 0.
	for i := 0; i < nRows; i++ {
		for j := 0; j < nCols; j++ {
			largest = math.Max(largest, math.Abs(m.At(i, j)))
		}
	}
	return largest
}

// checkFinite returns ErrNonFinite naming the first NaN or infinite entry of m.
func checkFinite(name string, m mat.Matrix) error {
	nRows, nCols := m.Dims()
	for i := 0; i < nRows; i++ {
		for j := 0; j < nCols; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(ErrNonFinite, "%s[%d,%d] = %v", name, i, j, v)
			}
		}
	}
	return nil
}

// FormatMatrix renders m one row per line for logs and terminal output.
func FormatMatrix(m mat.Matrix) string {
	return fmt.Sprintf("%v", mat.Formatted(m, mat.Squeeze()))
}
