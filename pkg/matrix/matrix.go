// Package matrix implements a dense row-major numeric matrix with the
// operations the feature pipeline and GLM fit need: arithmetic, transpose,
// Gauss-Jordan inverse, a rows-vs-cols pseudo-inverse, and row/column
// slicing.
package matrix

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrSingular is returned when Gauss-Jordan elimination cannot produce an
// identity matrix on the left half (no inverse exists).
var ErrSingular = errors.New("matrix: singular, no inverse found")

// ErrDimensionMismatch is returned by binary operations whose operands'
// shapes are incompatible.
var ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

// epsilon matches the source's use of the platform double epsilon for
// equality comparisons during pivoting.
const epsilon = 2.220446049250313e-16

func isEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// Matrix is a dense row-major store of float64.
type Matrix struct {
	data       []float64
	rows, cols int
}

// New allocates an r x c matrix filled with init.
func New(r, c int, init float64) *Matrix {
	data := make([]float64, r*c)
	if init != 0 {
		for i := range data {
			data[i] = init
		}
	}
	return &Matrix{data: data, rows: r, cols: c}
}

// NewFromRows builds a matrix from row-major literal data; every row must
// have the same length.
func NewFromRows(rows [][]float64) *Matrix {
	if len(rows) == 0 {
		return &Matrix{}
	}
	c := len(rows[0])
	m := New(len(rows), c, 0)
	for i, row := range rows {
		copy(m.data[i*c:(i+1)*c], row)
	}
	return m
}

func (m *Matrix) index(r, c int) int { return r*m.cols + c }

// Rows returns the row count.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Matrix) Cols() int { return m.cols }

// At returns the value at (r,c) without bounds checking, mirroring the
// source's item()/operator().
func (m *Matrix) At(r, c int) float64 { return m.data[m.index(r, c)] }

// Set assigns the value at (r,c) without bounds checking.
func (m *Matrix) Set(r, c int, v float64) { m.data[m.index(r, c)] = v }

// Get is the bounds-checked counterpart to At, matching the source's at().
func (m *Matrix) Get(r, c int) (float64, error) {
	if r < 0 || r >= m.rows {
		return 0, fmt.Errorf("matrix: row index %d out of range [0,%d)", r, m.rows)
	}
	if c < 0 || c >= m.cols {
		return 0, fmt.Errorf("matrix: column index %d out of range [0,%d)", c, m.cols)
	}
	return m.data[m.index(r, c)], nil
}

// Row returns a copy of row r.
func (m *Matrix) Row(r int) []float64 {
	out := make([]float64, m.cols)
	copy(out, m.data[m.index(r, 0):m.index(r, 0)+m.cols])
	return out
}

// SetRow assigns an entire row.
func (m *Matrix) SetRow(r int, vals []float64) error {
	if len(vals) != m.cols {
		return fmt.Errorf("matrix: row length %d does not match column count %d", len(vals), m.cols)
	}
	copy(m.data[m.index(r, 0):m.index(r, 0)+m.cols], vals)
	return nil
}

// SetCol assigns an entire column.
func (m *Matrix) SetCol(c int, vals []float64) error {
	if len(vals) != m.rows {
		return fmt.Errorf("matrix: column length %d does not match row count %d", len(vals), m.rows)
	}
	for r := 0; r < m.rows; r++ {
		m.data[m.index(r, c)] = vals[r]
	}
	return nil
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	copy(out.data, m.data)
	return out
}

// Add returns m+o.
func (m *Matrix) Add(o *Matrix) (*Matrix, error) {
	if m.rows != o.rows || m.cols != o.cols {
		return nil, ErrDimensionMismatch
	}
	r := New(m.rows, m.cols, 0)
	for i := range m.data {
		r.data[i] = m.data[i] + o.data[i]
	}
	return r, nil
}

// Sub returns m-o.
func (m *Matrix) Sub(o *Matrix) (*Matrix, error) {
	if m.rows != o.rows || m.cols != o.cols {
		return nil, ErrDimensionMismatch
	}
	r := New(m.rows, m.cols, 0)
	for i := range m.data {
		r.data[i] = m.data[i] - o.data[i]
	}
	return r, nil
}

// Mul returns m*o.
func (m *Matrix) Mul(o *Matrix) (*Matrix, error) {
	if m.cols != o.rows {
		return nil, ErrDimensionMismatch
	}
	r := New(m.rows, o.cols, 0)
	for i := 0; i < m.rows; i++ {
		for k := 0; k < m.cols; k++ {
			mik := m.data[m.index(i, k)]
			if mik == 0 {
				continue
			}
			for j := 0; j < o.cols; j++ {
				r.data[r.index(i, j)] += mik * o.data[o.index(k, j)]
			}
		}
	}
	return r, nil
}

// Transpose returns the transpose.
func (m *Matrix) Transpose() *Matrix {
	t := New(m.cols, m.rows, 0)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			t.Set(j, i, m.At(i, j))
		}
	}
	return t
}

// inverseHelper runs Gauss-Jordan elimination on [m | I] and returns the
// augmented 2n-column result, matching the source's inverseHelper().
func (m *Matrix) inverseHelper() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("matrix: cannot invert a non-square matrix (%dx%d)", m.rows, m.cols)
	}
	n := m.rows
	aug := New(n, 2*n, 0)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, m.At(i, j))
		}
		aug.Set(i, n+i, 1.0)
	}

	for i := 0; i < n; i++ {
		if isEqual(aug.At(i, i), 0.0) {
			for j := 0; j < n; j++ {
				if j != i && !isEqual(aug.At(j, i), 0.0) {
					for k := 0; k < 2*n; k++ {
						aug.Set(i, k, aug.At(i, k)+aug.At(j, k))
					}
					break
				}
			}
		}

		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if !isEqual(aug.At(j, i), 0.0) {
				temp := aug.At(j, i) / aug.At(i, i)
				for k := 0; k < 2*n; k++ {
					if k == i {
						aug.Set(j, k, 0.0)
					} else {
						aug.Set(j, k, aug.At(j, k)-aug.At(i, k)*temp)
					}
				}
			}
		}
	}

	for i := 0; i < n; i++ {
		temp := aug.At(i, i)
		if !isEqual(temp, 1.0) {
			for j := 0; j < 2*n; j++ {
				aug.Set(i, j, aug.At(i, j)/temp)
			}
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j && !isEqual(aug.At(i, j), 1.0) {
				return nil, ErrSingular
			}
			if i != j && !isEqual(aug.At(i, j), 0.0) {
				return nil, ErrSingular
			}
		}
	}

	return aug, nil
}

// Inverse returns the Gauss-Jordan inverse of a square matrix.
func (m *Matrix) Inverse() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("matrix: not a square matrix")
	}
	aug, err := m.inverseHelper()
	if err != nil {
		return nil, err
	}
	idx := make([]int, m.cols)
	for i := range idx {
		idx[i] = m.cols + i
	}
	return aug.SubMatrixByCol(idx)
}

// PseudoInverse computes the Moore-Penrose pseudo-inverse using the normal
// equations, choosing the side that keeps the matrix to invert square and
// as small as possible: rows>=cols uses (AᵀA)⁻¹Aᵀ, else Aᵀ(AAᵀ)⁻¹.
func (m *Matrix) PseudoInverse() (*Matrix, error) {
	trans := m.Transpose()
	if m.rows >= m.cols {
		transByOrig, err := trans.Mul(m)
		if err != nil {
			return nil, err
		}
		inv, err := transByOrig.Inverse()
		if err != nil {
			return nil, err
		}
		return inv.Mul(trans)
	}
	origByTrans, err := m.Mul(trans)
	if err != nil {
		return nil, err
	}
	inv, err := origByTrans.Inverse()
	if err != nil {
		return nil, err
	}
	return trans.Mul(inv)
}

// SubMatrixByRow builds a new matrix containing only the given row indices,
// in order.
func (m *Matrix) SubMatrixByRow(idx []int) (*Matrix, error) {
	r := New(len(idx), m.cols, 0)
	for i, row := range idx {
		if row < 0 || row >= m.rows {
			return nil, fmt.Errorf("matrix: row index %d out of range", row)
		}
		copy(r.data[r.index(i, 0):r.index(i, 0)+m.cols], m.data[m.index(row, 0):m.index(row, 0)+m.cols])
	}
	return r, nil
}

// SubMatrixByCol builds a new matrix containing only the given column
// indices, in order.
func (m *Matrix) SubMatrixByCol(idx []int) (*Matrix, error) {
	r := New(m.rows, len(idx), 0)
	for i, col := range idx {
		if col < 0 || col >= m.cols {
			return nil, fmt.Errorf("matrix: column index %d out of range", col)
		}
		for row := 0; row < m.rows; row++ {
			r.Set(row, i, m.At(row, col))
		}
	}
	return r, nil
}

// AppendOnesColumn returns a copy of m with an extra trailing column of 1.0,
// used to fold a GLM's bias term into the feature matrix.
func (m *Matrix) AppendOnesColumn() *Matrix {
	r := New(m.rows, m.cols+1, 0)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			r.Set(i, j, m.At(i, j))
		}
		r.Set(i, m.cols, 1.0)
	}
	return r
}

// NonZeroRows returns the indices of rows that contain at least one
// non-zero entry.
func (m *Matrix) NonZeroRows() []int {
	var out []int
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if m.At(i, j) != 0 {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// Median returns the descending-sorted middle element, matching the
// source's Util::calculateMedian (sorts a copy descending, then indexes
// len/2 — for even lengths this is the second of the two middle values
// under descending order, i.e. the lower median by value).
func Median(v []float64) float64 {
	cp := append([]float64(nil), v...)
	sort.Sort(sort.Reverse(sort.Float64Slice(cp)))
	return cp[len(cp)/2]
}

// Mean returns the arithmetic mean.
func Mean(v []float64) float64 {
	var s float64
	for _, d := range v {
		s += d
	}
	return s / float64(len(v))
}

// StDev returns the population standard deviation given a precomputed mean.
func StDev(v []float64, mean float64) float64 {
	var s float64
	for _, d := range v {
		diff := d - mean
		s += diff * diff
	}
	return math.Sqrt(s / float64(len(v)))
}
