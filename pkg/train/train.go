// Package train fits a classifier over the statistic bank and packages the
// result as a model.Model, mirroring GLMClassifier's prepare/train/validate
// pipeline: normalize the raw statistics, flip distances to similarities,
// expand into squared and paired terms, normalize again, run best-first
// feature selection, and fit the final linear model over the survivors.
package train

import (
	"errors"
	"fmt"

	"github.com/bioinformaticstoolsmith/identity/pkg/feature"
	"github.com/bioinformaticstoolsmith/identity/pkg/kmer"
	"github.com/bioinformaticstoolsmith/identity/pkg/matrix"
	"github.com/bioinformaticstoolsmith/identity/pkg/model"
	"github.com/bioinformaticstoolsmith/identity/pkg/predictor"
	"github.com/bioinformaticstoolsmith/identity/pkg/statistician"
)

// ErrNoRows is returned when the training matrix has no rows to fit over.
var ErrNoRows = errors.New("train: feature matrix has no rows")

// Config bundles the fixed inputs a training run needs beyond the labeled
// statistic matrix itself.
type Config struct {
	// MinFeatNum is the fewest features best-first selection may keep
	// before its non-improvement patience can end the search.
	MinFeatNum int
	// Patience is the number of non-improving expansions best-first
	// selection tolerates once MinFeatNum features are already kept.
	Patience int
}

// Result is a freshly trained model plus the training-set metrics its GLM
// reached, reported the way GLMClassifier.evaluate does.
type Result struct {
	Model       *model.Model
	Accuracy    float64
	Sensitivity float64
	Specificity float64
	FeatureNum  int
}

// Run fits a classifier over a labeled statistic matrix produced by
// syndata.Generate and returns a complete, ready-to-save model.
func Run(features, labels *matrix.Matrix, k, histSize int, composition [4]float64, maxLength int64, cfg Config) (*Result, error) {
	if features.Rows() == 0 {
		return nil, ErrNoRows
	}
	if cfg.MinFeatNum < 1 {
		cfg.MinFeatNum = 1
	}
	if cfg.Patience < 1 {
		cfg.Patience = 5
	}

	flist := statistician.AllFeatures()

	normalizer1, err := feature.FitNormalizer(features, flist)
	if err != nil {
		return nil, fmt.Errorf("train: fitting first normalizer: %w", err)
	}
	t1, err := normalizer1.Transform(features)
	if err != nil {
		return nil, fmt.Errorf("train: applying first normalizer: %w", err)
	}
	f1 := normalizer1.FeatureList()

	sim, err := feature.NewSimConverter(t1, f1)
	if err != nil {
		return nil, fmt.Errorf("train: fitting distance-to-similarity conversion: %w", err)
	}
	t2, err := sim.Transform(t1)
	if err != nil {
		return nil, fmt.Errorf("train: applying distance-to-similarity conversion: %w", err)
	}
	f2 := sim.FeatureList()

	expander, err := feature.FitExpander(t2, f2)
	if err != nil {
		return nil, fmt.Errorf("train: fitting feature expansion: %w", err)
	}
	t3, err := expander.Transform(t2)
	if err != nil {
		return nil, fmt.Errorf("train: applying feature expansion: %w", err)
	}
	f3 := expander.FeatureList()

	normalizer2, err := feature.FitNormalizer(t3, f3)
	if err != nil {
		return nil, fmt.Errorf("train: fitting second normalizer: %w", err)
	}
	t4, err := normalizer2.Transform(t3)
	if err != nil {
		return nil, fmt.Errorf("train: applying second normalizer: %w", err)
	}
	f4 := normalizer2.FeatureList()

	bf, err := feature.Select(t4, labels, f4, feature.FitClassifierGLM,
		func(o, p *matrix.Matrix) (float64, error) { return feature.Accuracy(o, p) },
		feature.AccuracyIsBetter, true, cfg.MinFeatNum, 0.0, cfg.Patience)
	if err != nil {
		return nil, fmt.Errorf("train: selecting features: %w", err)
	}
	t5, err := bf.Transform(t4)
	if err != nil {
		return nil, fmt.Errorf("train: extracting selected columns: %w", err)
	}
	f5 := bf.FeatureList()

	glmT, err := feature.FitClassifierGLM(t5, labels)
	if err != nil {
		return nil, fmt.Errorf("train: fitting final GLM: %w", err)
	}
	glm := glmT.(*feature.GLM)
	pred, err := glm.Transform(t5)
	if err != nil {
		return nil, fmt.Errorf("train: evaluating final GLM: %w", err)
	}

	acc, err := feature.Accuracy(labels, pred)
	if err != nil {
		return nil, err
	}
	sens, err := feature.Sensitivity(labels, pred)
	if err != nil {
		return nil, err
	}
	spec, err := feature.Specificity(labels, pred)
	if err != nil {
		return nil, err
	}

	// AppendOnesColumn puts the bias column last, so its weight is the
	// final row of the fitted weight matrix, not the first as in the
	// source's GLMClassifier::train.
	weights := glm.Weights()
	selectedNum := weights.Rows() - 1
	bias := feature.NewSingle(-1, "constant", true)
	bias.W = weights.At(selectedNum, 0)

	g := 0
	for _, f := range f5 {
		if f.IsSelected {
			f.W = weights.At(g, 0)
			g++
		}
	}

	full := make([]*feature.Feature, 0, len(f5)+1)
	full = append(full, bias)
	full = append(full, f5...)

	m := &model.Model{
		K:           k,
		HistSize:    histSize,
		AbsError:    0,
		MaxLength:   maxLength,
		Composition: composition,
		Features:    full,
	}

	return &Result{Model: m, Accuracy: acc, Sensitivity: sens, Specificity: spec, FeatureNum: len(f5)}, nil
}

// BuildPredictor turns a saved model back into the fast-path Predictor used
// at scoring time, with isClassification false so CalculateIdentity returns
// a continuous score rather than a 0/1 class.
func BuildPredictor(m *model.Model, threshold float64, canSkip, fastExact bool, alphaSize int) (*predictor.Predictor, error) {
	lean, err := predictor.NewLeanPredictor(m.Features, false)
	if err != nil {
		return nil, err
	}

	funIndexList := make([]statistician.Stat, 0, lean.SingleFeatNum())
	for _, f := range m.Features[1:] {
		if f.NumComp() == 0 && f.Name != "constant" {
			funIndexList = append(funIndexList, statistician.Stat(f.FunIndex))
		}
	}

	cfg := predictor.ScoreConfig{
		K:             m.K,
		AlphaSize:     alphaSize,
		KeyList:       kmer.KeysDigitFormat(m.K),
		Background:    m.Composition[:],
		Threshold:     threshold,
		CanSkip:       canSkip,
		FastExactMode: fastExact,
		FunIndexList:  funIndexList,
	}
	return predictor.New(cfg, lean)
}
