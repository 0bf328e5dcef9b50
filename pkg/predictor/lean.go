// Package predictor turns a trained feature list into a fast identity
// score function and a loadable/saveable model, mirroring the lean
// GLMPredictor replay structure and the IdentityCalculator scoring paths.
package predictor

import (
	"errors"
	"fmt"

	"github.com/bioinformaticstoolsmith/identity/pkg/feature"
)

// ErrEmptyFeatureList is returned when building a LeanPredictor from no
// features at all.
var ErrEmptyFeatureList = errors.New("predictor: empty feature list")

// pair mirrors std::pair<int,int> for an expansion source (squared
// features repeat the same index twice; paired features use two).
type pair struct{ a, b int }

// LeanPredictor is the flat, allocation-free replay of a trained model:
// per-column normalization bounds, which columns need the distance->
// similarity flip, how derived columns expand from earlier ones, and the
// GLM weights over the selected subset plus its bias term.
type LeanPredictor struct {
	isClassification bool

	singleFeatNum int
	featNum       int
	bias          float64

	minList    []float64
	maxMinList []float64 // max - min

	distIndexList []int

	expList []pair // only meaningful for indices >= singleFeatNum

	selectedIndexList []int
	wList             []float64
}

// NewLeanPredictor flattens a trained feature list (as produced by a
// BestFirst.FeatureList() call, with a leading bias/"constant" feature
// carrying the GLM intercept in its W field) into a LeanPredictor.
func NewLeanPredictor(featList []*feature.Feature, isClassification bool) (*LeanPredictor, error) {
	if len(featList) == 0 {
		return nil, ErrEmptyFeatureList
	}

	bias := featList[0].W
	rest := featList[1:]
	featNum := len(rest)
	if featNum == 0 {
		return nil, errors.New("predictor: feature list has no columns beyond the bias term")
	}

	for i, f := range rest {
		f.TableIndex = i
	}

	p := &LeanPredictor{
		isClassification: isClassification,
		featNum:          featNum,
		bias:             bias,
		minList:          make([]float64, featNum),
		maxMinList:       make([]float64, featNum),
		expList:          make([]pair, featNum),
	}

	for i, f := range rest {
		p.minList[i] = f.NormP1
		p.maxMinList[i] = f.NormP2 - f.NormP1

		if f.NumComp() == 0 && f.Name != "constant" {
			p.singleFeatNum++
		}
		if f.IsDistance {
			p.distIndexList = append(p.distIndexList, i)
		}
		if f.IsSelected {
			p.selectedIndexList = append(p.selectedIndexList, i)
			p.wList = append(p.wList, f.W)
		}
	}

	for i := p.singleFeatNum; i < featNum; i++ {
		f := rest[i]
		switch f.NumComp() {
		case 1:
			p.expList[i] = pair{f.Comp1, f.Comp1}
		case 2:
			p.expList[i] = pair{f.Comp1, f.Comp2}
		default:
			return nil, fmt.Errorf("predictor: feature %q at index %d has an unexpected component count", f.Name, i)
		}
	}

	return p, nil
}

// CalculateIdentity runs the normalize -> convert -> expand -> normalize
// -> weighted-sum pipeline over data in place, returning the predicted
// identity (or 0/1 under classification mode). data must have length
// FeatNum() and hold raw statistic values in the first SingleFeatNum
// slots; the rest is scratch space this call fills in.
func (p *LeanPredictor) CalculateIdentity(data []float64) float64 {
	for i := 0; i < p.singleFeatNum; i++ {
		d := (data[i] - p.minList[i]) / p.maxMinList[i]
		if d > 1.0 {
			d = 1.0
		}
		if d < 0.0 {
			d = 0.0
		}
		data[i] = d
	}

	for _, idx := range p.distIndexList {
		data[idx] = 1 - data[idx]
	}

	for i := p.singleFeatNum; i < p.featNum; i++ {
		e := p.expList[i]
		data[i] = data[e.a] * data[e.b]
	}

	for i := p.singleFeatNum; i < p.featNum; i++ {
		d := (data[i] - p.minList[i]) / p.maxMinList[i]
		if d > 1.0 {
			d = 1.0
		}
		if d < 0.0 {
			d = 0.0
		}
		data[i] = d
	}

	res := p.bias
	for i, idx := range p.selectedIndexList {
		res += p.wList[i] * data[idx]
	}

	if p.isClassification {
		if res >= 0.5 {
			return 1.0
		}
		return 0.0
	}
	return res
}

// FeatNum is the total column count (single + squared + paired) the
// predictor expects scratch space for.
func (p *LeanPredictor) FeatNum() int { return p.featNum }

// SingleFeatNum is the number of raw statistic columns the caller must
// fill in before calling CalculateIdentity.
func (p *LeanPredictor) SingleFeatNum() int { return p.singleFeatNum }
