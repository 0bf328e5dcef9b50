package feature

import (
	"errors"
	"fmt"

	"github.com/bioinformaticstoolsmith/identity/pkg/matrix"
)

// Expander builds, from a list of single-statistic features, every squared
// and pairwise-product feature and transforms a raw matrix into the fully
// expanded one. Columns are always addressed by a feature's TableIndex,
// which always equals the feature's position in the expander's own list;
// a replay built from a previously-selected subset (NewExpander) remaps
// Comp1/Comp2 references onto the compacted positions so that invariant
// keeps holding after features have been dropped.
type Expander struct {
	singleNum int
	features  []*Feature
}

// FitExpander builds the full single+squared+paired expansion over m's
// columns, which must line up one-to-one with singles.
func FitExpander(m *matrix.Matrix, singles []*Feature) (*Expander, error) {
	singleNum := m.Cols()
	if singleNum != len(singles) {
		return nil, fmt.Errorf("feature: expander feature count %d does not match column count %d", len(singles), singleNum)
	}

	squaredNum := singleNum
	singleAndSquaredNum := singleNum + squaredNum
	pairedNum := singleAndSquaredNum * (singleAndSquaredNum - 1) / 2

	list := make([]*Feature, 0, singleNum+squaredNum+pairedNum)
	for _, f := range singles {
		c := f.Clone()
		c.TableIndex = len(list)
		list = append(list, c)
	}
	for c := 0; c < singleNum; c++ {
		sq := NewSquared(list[c])
		sq.TableIndex = len(list)
		list = append(list, sq)
	}
	for c1 := 0; c1 < singleAndSquaredNum-1; c1++ {
		for c2 := c1 + 1; c2 < singleAndSquaredNum; c2++ {
			p := NewPaired(list[c1], list[c2])
			p.TableIndex = len(list)
			list = append(list, p)
		}
	}

	return &Expander{singleNum: singleNum, features: list}, nil
}

// NewExpander rebuilds an expander over a previously-selected feature
// subset (as returned by BestFirst's FeatureList), remapping every
// Comp1/Comp2 table-index reference onto the subset's compacted positions.
func NewExpander(selected []*Feature) (*Expander, error) {
	if len(selected) == 0 {
		return nil, errors.New("feature: expander with no features")
	}

	oldToNew := make(map[int]int, len(selected))
	for i, f := range selected {
		oldToNew[f.TableIndex] = i
	}

	list := make([]*Feature, len(selected))
	singleNum := 0
	for i, f := range selected {
		c := f.Clone()
		c.TableIndex = i
		switch c.Kind {
		case Single:
			singleNum++
		case Squared:
			c.Comp1 = oldToNew[f.Comp1]
		case Paired:
			c.Comp1 = oldToNew[f.Comp1]
			c.Comp2 = oldToNew[f.Comp2]
		}
		list[i] = c
	}
	if singleNum == 0 {
		return nil, errors.New("feature: expander has no single features")
	}

	return &Expander{singleNum: singleNum, features: list}, nil
}

// Transform expands m's singleNum raw columns into the full feature list.
func (e *Expander) Transform(m *matrix.Matrix) (*matrix.Matrix, error) {
	if m.Cols() != e.singleNum {
		return nil, fmt.Errorf("feature: expander expected %d raw columns, got %d", e.singleNum, m.Cols())
	}

	t := matrix.New(m.Rows(), len(e.features), 0)
	for i, f := range e.features {
		if i != f.TableIndex {
			return nil, fmt.Errorf("feature: expander index %d does not match feature table index %d", i, f.TableIndex)
		}
		switch f.NumComp() {
		case 0:
			for r := 0; r < m.Rows(); r++ {
				t.Set(r, i, m.At(r, i))
			}
		case 1:
			c := f.Comp1
			for r := 0; r < m.Rows(); r++ {
				v := m.At(r, c)
				t.Set(r, i, v*v)
			}
		case 2:
			c1, c2 := f.Comp1, f.Comp2
			for r := 0; r < m.Rows(); r++ {
				t.Set(r, i, t.At(r, c1)*t.At(r, c2))
			}
		default:
			return nil, fmt.Errorf("feature: unexpected component count for feature %q", f.Name)
		}
	}
	return t, nil
}

// FeatureList returns a copy of the expander's full feature list.
func (e *Expander) FeatureList() []*Feature {
	return cloneList(e.features)
}
