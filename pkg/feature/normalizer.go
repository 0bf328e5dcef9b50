package feature

import (
	"errors"
	"fmt"
	"math"

	"github.com/bioinformaticstoolsmith/identity/pkg/matrix"
)

const normEpsilon = 2.220446049250313e-16

func isEqual(a, b float64) bool {
	return math.Abs(a-b) < normEpsilon
}

// Normalizer min-max scales feature columns into [0,1], skipping any
// feature already marked normalized by an earlier fit. Values outside the
// fitted [min,max] range are clamped, matching the source's trim behavior.
type Normalizer struct {
	features []*Feature
	numCol   int
}

// FitNormalizer computes per-column min/max over m for every feature not
// already normalized, and returns a Normalizer ready to Transform.
func FitNormalizer(m *matrix.Matrix, features []*Feature) (*Normalizer, error) {
	if m.Rows() == 0 {
		return nil, errors.New("feature: normalizer fit on a matrix with no rows")
	}
	if m.Cols() == 0 || m.Cols() != len(features) {
		return nil, fmt.Errorf("feature: normalizer feature count %d does not match column count %d", len(features), m.Cols())
	}

	list := cloneList(features)
	for c, f := range list {
		if f.IsNormalized {
			continue
		}
		min := m.At(0, c)
		max := min
		for r := 1; r < m.Rows(); r++ {
			v := m.At(r, c)
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		f.NormP1 = min
		f.NormP2 = max
	}
	return &Normalizer{features: list, numCol: len(list)}, nil
}

// NewNormalizer wraps an already-fitted feature list (used to replay a
// trained model's normalization at prediction time) without refitting.
func NewNormalizer(features []*Feature) (*Normalizer, error) {
	if len(features) == 0 {
		return nil, errors.New("feature: normalizer with no columns")
	}
	return &Normalizer{features: cloneList(features), numCol: len(features)}, nil
}

// Transform scales m's columns per the fitted min/max, clamped to [0,1].
func (n *Normalizer) Transform(m *matrix.Matrix) (*matrix.Matrix, error) {
	if m.Cols() != n.numCol {
		return nil, fmt.Errorf("feature: normalizer expected %d columns, got %d", n.numCol, m.Cols())
	}
	t := m.Clone()
	for c, f := range n.features {
		if f.IsNormalized {
			continue
		}
		dist := f.NormP2 - f.NormP1
		if isEqual(dist, 0.0) {
			for r := 0; r < m.Rows(); r++ {
				t.Set(r, c, 0)
			}
			continue
		}
		for r := 0; r < m.Rows(); r++ {
			v := (m.At(r, c) - f.NormP1) / dist
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			t.Set(r, c, v)
		}
	}
	return t, nil
}

// FeatureList returns a copy of the feature list with IsNormalized set,
// for handing to the next pipeline stage.
func (n *Normalizer) FeatureList() []*Feature {
	out := cloneList(n.features)
	for _, f := range out {
		f.IsNormalized = true
	}
	return out
}
