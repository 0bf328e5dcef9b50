package matrix

import (
	"math"
	"testing"
)

func TestAddSubMul(t *testing.T) {
	a := NewFromRows([][]float64{{1, 2}, {3, 4}})
	b := NewFromRows([][]float64{{5, 6}, {7, 8}})

	sum, err := a.Add(b)
	if err != nil {
		t.Fatal(err)
	}
	if sum.At(0, 0) != 6 || sum.At(1, 1) != 12 {
		t.Errorf("unexpected sum: %v %v", sum.At(0, 0), sum.At(1, 1))
	}

	diff, err := b.Sub(a)
	if err != nil {
		t.Fatal(err)
	}
	if diff.At(0, 0) != 4 {
		t.Errorf("unexpected diff: %v", diff.At(0, 0))
	}

	prod, err := a.Mul(b)
	if err != nil {
		t.Fatal(err)
	}
	// [1 2; 3 4] * [5 6; 7 8] = [19 22; 43 50]
	want := [][]float64{{19, 22}, {43, 50}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if prod.At(i, j) != want[i][j] {
				t.Errorf("prod[%d][%d] = %v, want %v", i, j, prod.At(i, j), want[i][j])
			}
		}
	}
}

func TestInverseIdentity(t *testing.T) {
	a := NewFromRows([][]float64{{4, 7}, {2, 6}})
	inv, err := a.Inverse()
	if err != nil {
		t.Fatal(err)
	}
	prod, err := a.Mul(inv)
	if err != nil {
		t.Fatal(err)
	}
	// inv(A) is not exactly representable, so the product carries a few
	// ulps of rounding error; compare with a small absolute tolerance.
	const tol = 1e-12
	if math.Abs(prod.At(0, 0)-1) > tol || math.Abs(prod.At(1, 1)-1) > tol {
		t.Errorf("A*Ainv is not identity: %v", prod)
	}
	if math.Abs(prod.At(0, 1)) > tol || math.Abs(prod.At(1, 0)) > tol {
		t.Errorf("A*Ainv has non-zero off-diagonal: %v", prod)
	}
}

func TestInverseSingular(t *testing.T) {
	a := NewFromRows([][]float64{{1, 2}, {2, 4}})
	if _, err := a.Inverse(); err != ErrSingular {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
}

func TestPseudoInverseOverdetermined(t *testing.T) {
	// 3x2, rows >= cols
	a := NewFromRows([][]float64{{1, 0}, {0, 1}, {1, 1}})
	pinv, err := a.PseudoInverse()
	if err != nil {
		t.Fatal(err)
	}
	if pinv.Rows() != 2 || pinv.Cols() != 3 {
		t.Fatalf("unexpected pseudo-inverse shape %dx%d", pinv.Rows(), pinv.Cols())
	}
}

func TestSubMatrixByColRow(t *testing.T) {
	a := NewFromRows([][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	cols, err := a.SubMatrixByCol([]int{0, 2})
	if err != nil {
		t.Fatal(err)
	}
	if cols.At(1, 1) != 6 {
		t.Errorf("expected 6, got %v", cols.At(1, 1))
	}

	rows, err := a.SubMatrixByRow([]int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if rows.At(0, 0) != 7 || rows.At(1, 0) != 1 {
		t.Errorf("unexpected sub-matrix-by-row result: %v", rows)
	}
}

func TestAppendOnesColumn(t *testing.T) {
	a := NewFromRows([][]float64{{1, 2}, {3, 4}})
	b := a.AppendOnesColumn()
	if b.Cols() != 3 {
		t.Fatalf("expected 3 columns, got %d", b.Cols())
	}
	if b.At(0, 2) != 1 || b.At(1, 2) != 1 {
		t.Errorf("expected trailing ones column, got %v %v", b.At(0, 2), b.At(1, 2))
	}
}

func TestDimensionMismatch(t *testing.T) {
	a := New(2, 2, 0)
	b := New(3, 3, 0)
	if _, err := a.Add(b); err != ErrDimensionMismatch {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}
