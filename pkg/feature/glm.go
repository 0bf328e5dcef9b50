package feature

import (
	"github.com/bioinformaticstoolsmith/identity/pkg/matrix"
)

// OutputFunc maps a raw linear-model output onto this model's output
// space: a 0/1 step for classification, the identity for regression.
type OutputFunc func(float64) float64

// ClassifierOutput rounds to the nearer class at the 0.5 boundary.
func ClassifierOutput(x float64) float64 {
	if x >= 0.5 {
		return 1.0
	}
	return 0.0
}

// RegressorOutput passes the linear prediction through unchanged.
func RegressorOutput(x float64) float64 { return x }

// GLM is an ordinary-least-squares linear model fit via the normal
// equations' pseudo-inverse: weights = pinv(t(f)*f) * t(f) * labels.
type GLM struct {
	weights *matrix.Matrix
	output  OutputFunc
}

// FitGLM trains a GLM over features/labels with the given output mapping.
func FitGLM(features, labels *matrix.Matrix, out OutputFunc) (*GLM, error) {
	t := features.Transpose()
	s, err := t.Mul(features)
	if err != nil {
		return nil, err
	}
	pinv, err := s.PseudoInverse()
	if err != nil {
		return nil, err
	}
	tl, err := t.Mul(labels)
	if err != nil {
		return nil, err
	}
	w, err := pinv.Mul(tl)
	if err != nil {
		return nil, err
	}
	return &GLM{weights: w, output: out}, nil
}

// FitClassifierGLM is the classifierFactory: output rounds to {0,1}.
func FitClassifierGLM(features, labels *matrix.Matrix) (Transformer, error) {
	return FitGLM(features, labels, ClassifierOutput)
}

// FitRegressorGLM is the regressorFactory: output is the raw linear value.
func FitRegressorGLM(features, labels *matrix.Matrix) (Transformer, error) {
	return FitGLM(features, labels, RegressorOutput)
}

// Transform applies the fitted weights and the output mapping.
func (g *GLM) Transform(features *matrix.Matrix) (*matrix.Matrix, error) {
	raw, err := features.Mul(g.weights)
	if err != nil {
		return nil, err
	}
	for r := 0; r < raw.Rows(); r++ {
		raw.Set(r, 0, g.output(raw.At(r, 0)))
	}
	return raw, nil
}

// Weights returns the fitted coefficient column.
func (g *GLM) Weights() *matrix.Matrix { return g.weights }
