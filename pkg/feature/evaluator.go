package feature

import (
	"fmt"
	"math"

	"github.com/bioinformaticstoolsmith/identity/pkg/matrix"
)

func checkSameRows(o, p *matrix.Matrix) error {
	if o.Rows() != p.Rows() {
		return fmt.Errorf("feature: original and predicted labels have different sizes (%d vs %d)", o.Rows(), p.Rows())
	}
	return nil
}

// Accuracy is the classifier evaluation metric: fraction of exactly
// matching labels.
func Accuracy(o, p *matrix.Matrix) (float64, error) {
	if err := checkSameRows(o, p); err != nil {
		return 0, err
	}
	var s float64
	for r := 0; r < o.Rows(); r++ {
		if isEqual(o.At(r, 0), p.At(r, 0)) {
			s++
		}
	}
	return s / float64(o.Rows()), nil
}

func classRate(o, p *matrix.Matrix, label float64) (float64, error) {
	if err := checkSameRows(o, p); err != nil {
		return 0, err
	}
	var total, hit float64
	for r := 0; r < o.Rows(); r++ {
		if isEqual(o.At(r, 0), label) {
			total++
			if isEqual(o.At(r, 0), p.At(r, 0)) {
				hit++
			}
		}
	}
	return hit / total, nil
}

// Sensitivity is the true-positive rate (label == 1).
func Sensitivity(o, p *matrix.Matrix) (float64, error) { return classRate(o, p, 1.0) }

// Specificity is the true-negative rate (label == 0).
func Specificity(o, p *matrix.Matrix) (float64, error) { return classRate(o, p, 0.0) }

// MAE is the regressor evaluation metric: mean absolute error.
func MAE(o, p *matrix.Matrix) (float64, error) {
	if err := checkSameRows(o, p); err != nil {
		return 0, err
	}
	var s float64
	for r := 0; r < o.Rows(); r++ {
		s += math.Abs(o.At(r, 0) - p.At(r, 0))
	}
	return s / float64(o.Rows()), nil
}

// MSE is mean squared error.
func MSE(o, p *matrix.Matrix) (float64, error) {
	if err := checkSameRows(o, p); err != nil {
		return 0, err
	}
	var s float64
	for r := 0; r < o.Rows(); r++ {
		d := o.At(r, 0) - p.At(r, 0)
		s += d * d
	}
	return s / float64(o.Rows()), nil
}

// AccuracyIsBetter is the 0.001-margin improvement test used by the
// classifier's feature selector.
func AccuracyIsBetter(newV, oldV float64) bool { return newV-oldV > 0.001 }

// MSEIsBetter is the 0.000025-margin improvement test used by the
// regressor's feature selector (lower MSE is better, so the improvement
// runs old-minus-new).
func MSEIsBetter(newV, oldV float64) bool { return oldV-newV > 0.000025 }
