package transform

import (
	"os"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"gonum.org/v1/gonum/mat"
)

// ProjectionMatrixConfig is the file form of a 3x4 projection matrix. Exactly one of Rows
// (three rows of four values) or Data (twelve row major values) is set.
type ProjectionMatrixConfig struct {
	Rows [][]float64 `json:"rows,omitempty"`
	Data []float64   `json:"data,omitempty"`
}

// Dense validates the shape of the config and returns it as a 3x4 matrix.
func (cfg *ProjectionMatrixConfig) Dense() (*mat.Dense, error) {
	switch {
	case cfg.Rows != nil && cfg.Data != nil:
		return nil, errors.New(`projection matrix must set only one of "rows" or "data"`)
	case cfg.Rows != nil:
		if len(cfg.Rows) != 3 {
			return nil, NewDimensionError("projection matrix rows", len(cfg.Rows), rowLen(cfg.Rows), 3, 4)
		}
		data := make([]float64, 0, 12)
		for _, row := range cfg.Rows {
			if len(row) != 4 {
				return nil, NewDimensionError("projection matrix rows", len(cfg.Rows), len(row), 3, 4)
			}
			data = append(data, row...)
		}
		return mat.NewDense(3, 4, data), nil
	case cfg.Data != nil:
		if len(cfg.Data) != 12 {
			return nil, errors.Errorf("projection matrix data must have 12 values but has %d", len(cfg.Data))
		}
		data := make([]float64, 12)
		copy(data, cfg.Data)
		return mat.NewDense(3, 4, data), nil
	default:
		return nil, errors.New(`projection matrix must set "rows" or "data"`)
	}
}

func rowLen(rows [][]float64) int {
	if len(rows) == 0 {
		return 0
	}
	return len(rows[0])
}

// NewProjectionMatrixConfig returns the rows form of m.
func NewProjectionMatrixConfig(m mat.Matrix) *ProjectionMatrixConfig {
	return &ProjectionMatrixConfig{Rows: MatrixRows(m)}
}

// NewProjectionMatrixFromJSONFile reads a 3x4 projection matrix from a JSON file. Comments and
// trailing commas are allowed.
func NewProjectionMatrixFromJSONFile(jsonPath string) (*mat.Dense, error) {
	//nolint:gosec
	byteValue, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON file")
	}
	var cfg ProjectionMatrixConfig
	if err := json5.Unmarshal(byteValue, &cfg); err != nil {
		return nil, errors.Wrapf(err, "error parsing projection matrix in %q", jsonPath)
	}
	p, err := cfg.Dense()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid projection matrix in %q", jsonPath)
	}
	return p, nil
}

// MatrixRows copies m into a slice of rows.
func MatrixRows(m mat.Matrix) [][]float64 {
	nRows, nCols := m.Dims()
	rows := make([][]float64, nRows)
	for i := range rows {
		rows[i] = make([]float64, nCols)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}
