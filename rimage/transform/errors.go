package transform

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNonFinite is returned when an input matrix holds a NaN or an infinity.
	ErrNonFinite = errors.New("matrix has non-finite entries")

	// ErrSingularMatrix is returned when a factorization or the camera center solve has no
	// numerically usable solution.
	ErrSingularMatrix = errors.New("matrix is singular")

	// ErrDegenerateScale is returned when the bottom right entry of the triangular factor
	// cannot be used to normalize the intrinsic matrix.
	ErrDegenerateScale = errors.New("degenerate intrinsic scale")
)

// DimensionError is returned when an input matrix does not have the shape an operation expects.
type DimensionError struct {
	Op                 string
	Rows, Cols         int
	WantRows, WantCols int
}

// NewDimensionError is used when a matrix of shape rows x cols was passed to op.
func NewDimensionError(op string, rows, cols, wantRows, wantCols int) error {
	return &DimensionError{Op: op, Rows: rows, Cols: cols, WantRows: wantRows, WantCols: wantCols}
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: expected a %dx%d matrix but got %dx%d", e.Op, e.WantRows, e.WantCols, e.Rows, e.Cols)
}

// NumericalInstabilityWarning flags a result that was computed but whose pivot or conditioning
// is close to the singularity tolerance. It is reported alongside a result, never instead of one.
type NumericalInstabilityWarning struct {
	Stage     string  `json:"stage"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

func (w NumericalInstabilityWarning) String() string {
	return fmt.Sprintf("%s: value %g is below the stability threshold %g", w.Stage, w.Value, w.Threshold)
}

// BatchItemError is the error of one matrix in a batch decomposition.
type BatchItemError struct {
	Index int
	Err   error
}

func (e *BatchItemError) Error() string {
	return fmt.Sprintf("camera matrix %d: %v", e.Index, e.Err)
}

// Unwrap returns the decomposition error.
func (e *BatchItemError) Unwrap() error {
	return e.Err
}
