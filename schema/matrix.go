package schema

import "fmt"

// WeightMatrix is an already-materialized 2-D numeric view of a model tensor.
// The core only reads it; ownership stays with the catalog that loaded it.
// Tensors with fewer than 2 dimensions arrive reshaped to a single row, and
// tensors with more than 2 have their leading dimensions collapsed into rows
// so that Cols is always the innermost dimension.
type WeightMatrix struct {
	Name string
	Rows int
	Cols int
	Data []float64 // row-major, len == Rows*Cols
}

// Validate checks the shape/data consistency of the matrix.
func (m *WeightMatrix) Validate() error {
	if m.Rows < 1 || m.Cols < 1 {
		return fmt.Errorf("matrix %s has invalid shape %dx%d", m.Name, m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("matrix %s has %d elements, want %d", m.Name, len(m.Data), m.Rows*m.Cols)
	}
	return nil
}
