package feature

import (
	"errors"
	"fmt"

	"github.com/bioinformaticstoolsmith/identity/pkg/matrix"
)

// Transformer is the minimal surface BestFirst needs from a fitted model:
// something that can turn a feature matrix into a prediction column.
type Transformer interface {
	Transform(*matrix.Matrix) (*matrix.Matrix, error)
}

// MakeTransformer fits a model (e.g. GLM) on a candidate feature subset.
type MakeTransformer func(features, labels *matrix.Matrix) (Transformer, error)

// EvaluateFunc scores predictions against ground truth (accuracy, MSE, ...).
type EvaluateFunc func(labels, predicted *matrix.Matrix) (float64, error)

// IsNewBetter reports whether newV is a significant improvement over oldV.
// Parameter order matters: (new, old).
type IsNewBetter func(newV, oldV float64) bool

// BestFirst performs add-one/drop-one best-first search over feature
// subsets (R. Kohavi, G.H. John, Artificial Intelligence 97 (1997) 273-324,
// p.293), stopping after `stop` non-improving expansions once at least
// `minFeat` features have been selected.
type BestFirst struct {
	features []*Feature
	best     node
	maximum  float64
}

// ErrSingular is returned by a MakeTransformer call that could not fit
// (e.g. a singular pseudo-inverse); BestFirst skips that candidate subset
// and continues searching rather than aborting the whole selection run —
// the one documented exception to this codebase's fatal-on-error policy.
var ErrSingular = errors.New("feature: candidate feature subset produced a singular fit")

// Select runs the search. isHigherBetter distinguishes a maximizing metric
// (accuracy) from a minimizing one (MSE); lowest seeds the initial open-set
// score, and stop is the non-improvement patience.
func Select(features, labels *matrix.Matrix, flist []*Feature, make_ MakeTransformer, eval EvaluateFunc, better IsNewBetter, isHigherBetter bool, minFeat int, lowest float64, stop int) (*BestFirst, error) {
	fNum := features.Cols()
	if fNum != len(flist) {
		return nil, fmt.Errorf("feature: best-first feature count %d does not match column count %d", len(flist), fNum)
	}

	open := map[string]float64{}
	openNodes := map[string]node{}
	closed := map[string]bool{}

	start := emptyNode()
	open[start.key()] = lowest
	openNodes[start.key()] = start

	best := start
	maximum := lowest
	eCount := 0

	findOptimum := func() (node, float64, error) {
		if len(open) == 0 {
			return node{}, 0, errors.New("feature: cannot find optimum on an empty open set")
		}
		var k node
		var v float64
		found := false
		for key, score := range open {
			if !found || (isHigherBetter && score > v) || (!isHigherBetter && score < v) {
				k = openNodes[key]
				v = score
				found = true
			}
		}
		return k, v, nil
	}

	for (best.size() < minFeat || eCount < stop) && len(open) > 0 {
		cand, score, err := findOptimum()
		if err != nil {
			return nil, err
		}
		delete(open, cand.key())
		closed[cand.key()] = true

		if better(score, maximum) || (best.size() < minFeat && eCount >= stop) {
			best = cand
			maximum = score
			eCount = 0
		}

		children := cand.expand(fNum)
		eCount++

		for _, child := range children {
			key := child.key()
			if _, inOpen := open[key]; inOpen {
				continue
			}
			if closed[key] {
				continue
			}

			idx := sortedCopy(child.list)
			sub, err := features.SubMatrixByCol(idx)
			if err != nil {
				continue
			}
			sub = sub.AppendOnesColumn()

			t, err := make_(sub, labels)
			if err != nil {
				// Singular fits are skipped, not fatal: this subset simply
				// never enters the open set.
				continue
			}
			pred, err := t.Transform(sub)
			if err != nil {
				continue
			}
			e, err := eval(labels, pred)
			if err != nil {
				continue
			}

			open[key] = e
			openNodes[key] = child
		}
	}

	return &BestFirst{features: cloneList(flist), best: best, maximum: maximum}, nil
}

// NewBestFirstFromSelected rebuilds a BestFirst's selection state from a
// feature list whose IsSelected flags were already set by a prior run
// (used to replay a trained model without re-searching).
func NewBestFirstFromSelected(flist []*Feature) *BestFirst {
	var idx []int
	for _, f := range flist {
		if f.IsSelected {
			idx = append(idx, f.TableIndex)
		}
	}
	return &BestFirst{features: cloneList(flist), best: node{sortedCopy(idx)}}
}

// Transform extracts the selected columns (plus a trailing bias column).
func (b *BestFirst) Transform(m *matrix.Matrix) (*matrix.Matrix, error) {
	sub, err := m.SubMatrixByCol(b.best.list)
	if err != nil {
		return nil, err
	}
	return sub.AppendOnesColumn(), nil
}

// FeatureList marks the selected subset (and whatever they transitively
// need) and returns only those features, dropping the rest.
func (b *BestFirst) FeatureList() []*Feature {
	all := cloneList(b.features)
	for _, i := range b.best.list {
		all[i].SetSelected(all)
	}

	var out []*Feature
	for _, f := range all {
		if f.IsSelected || f.IsNeeded {
			out = append(out, f)
		}
	}
	return out
}

// SelectedIndices returns the winning subset's column indices.
func (b *BestFirst) SelectedIndices() []int { return sortedCopy(b.best.list) }

// Maximum returns the winning subset's evaluation score.
func (b *BestFirst) Maximum() float64 { return b.maximum }
