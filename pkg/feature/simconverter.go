package feature

import (
	"errors"
	"fmt"

	"github.com/bioinformaticstoolsmith/identity/pkg/matrix"
)

// SimConverter flips distance-type columns (1 - x) so every feature reads
// as a similarity, once per feature (IsConverted guards against a second
// flip if the same feature list passes through twice).
type SimConverter struct {
	features []*Feature
	numCol   int
}

// NewSimConverter validates the feature list against m's column count.
func NewSimConverter(m *matrix.Matrix, features []*Feature) (*SimConverter, error) {
	if len(features) != m.Cols() {
		return nil, fmt.Errorf("feature: simconverter feature count %d does not match column count %d", len(features), m.Cols())
	}
	if m.Cols() == 0 {
		return nil, errors.New("feature: simconverter on a matrix with no columns")
	}
	return &SimConverter{features: cloneList(features), numCol: m.Cols()}, nil
}

// Transform flips every not-yet-converted distance column.
func (s *SimConverter) Transform(m *matrix.Matrix) (*matrix.Matrix, error) {
	if m.Cols() != s.numCol {
		return nil, fmt.Errorf("feature: simconverter expected %d columns, got %d", s.numCol, m.Cols())
	}
	t := m.Clone()
	for c, f := range s.features {
		if f.IsDistance && !f.IsConverted {
			for r := 0; r < m.Rows(); r++ {
				t.Set(r, c, 1-m.At(r, c))
			}
		}
	}
	return t, nil
}

// FeatureList returns a copy of the feature list with converted distance
// columns marked IsConverted.
func (s *SimConverter) FeatureList() []*Feature {
	out := cloneList(s.features)
	for _, f := range out {
		if f.IsDistance && !f.IsConverted {
			f.IsConverted = true
		}
	}
	return out
}
