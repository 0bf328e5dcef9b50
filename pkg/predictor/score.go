package predictor

import (
	"errors"

	"github.com/bioinformaticstoolsmith/identity/pkg/statistician"
)

// ErrLengthMismatch is returned when a caller passes histograms whose
// declared sequence lengths don't support a ratio comparison.
var ErrLengthMismatch = errors.New("predictor: sequence length must be positive")

// ScoreConfig bundles the fixed inputs a Predictor needs to turn a pair
// of k-mer/monomer histograms into an identity score.
type ScoreConfig struct {
	K          int
	AlphaSize  int
	KeyList    [][]uint8
	Background []float64

	// Threshold is the active identity cutoff. Pairs that provably cannot
	// reach it are short-circuited to 0 without running the statistic
	// bank or the linear model.
	Threshold float64

	// CanSkip enables the identityMinimum fast-reject: when true, pairs
	// whose length ratio already falls below Threshold score 0
	// immediately.
	CanSkip bool

	// FastExactMode mirrors the exact-match fast path: score is 1.0 when
	// the two k-mer histograms are identical, 0.0 otherwise, bypassing
	// the statistic bank and the linear model entirely. It trades
	// accuracy on near-but-not-identical sequences for raw speed and is
	// meant for corpora expected to contain exact duplicates.
	FastExactMode bool

	// FunIndexList lists which statistician.Stat each single raw feature
	// column reads, in the predictor's expected column order.
	FunIndexList []statistician.Stat
}

// Predictor is the one-vs-one identity scorer: IdentityCalculator's
// score() ported to Go, wrapping a LeanPredictor with the length-ratio
// fast paths that let most non-matching pairs skip the full statistic
// calculation.
type Predictor struct {
	cfg  ScoreConfig
	lean *LeanPredictor
}

// New builds a Predictor from a trained feature list and scoring config.
func New(cfg ScoreConfig, lean *LeanPredictor) (*Predictor, error) {
	if lean == nil {
		return nil, ErrEmptyFeatureList
	}
	return &Predictor{cfg: cfg, lean: lean}, nil
}

// CalcRatio is the length-ratio helper shared by the skip test and the
// final clamp: a predicted identity can never exceed how much of the
// longer sequence the shorter one could possibly cover.
func CalcRatio(l1, l2 int) float64 {
	return statistician.IdentityMinimum(l1, l2)
}

// IsImpossible reports whether two sequences of lengths l1 and l2 could
// ever score at least t, based on length alone.
func IsImpossible(l1, l2 int, t float64) bool {
	return CalcRatio(l1, l2) < t
}

// Score computes the one-vs-one identity between two sequences given
// their k-mer histograms (as int64 counts), monomer histograms, and
// lengths. It mirrors IdentityCalculator::score's skip/clamp/trim logic.
func (p *Predictor) Score(kHist1, kHist2 []int64, monoHist1, monoHist2 []uint64, l1, l2 int) (float64, error) {
	if l1 <= 0 || l2 <= 0 {
		return 0, ErrLengthMismatch
	}

	ratio := CalcRatio(l1, l2)

	if p.cfg.FastExactMode {
		if identicalHistograms(kHist1, kHist2) {
			return 1.0, nil
		}
		return 0.0, nil
	}

	if p.cfg.CanSkip && ratio < p.cfg.Threshold {
		return 0.0, nil
	}

	s, err := statistician.New(p.cfg.K, p.cfg.AlphaSize, kHist1, kHist2, monoHist1, monoHist2, p.cfg.Background, p.cfg.KeyList)
	if err != nil {
		return 0, err
	}

	raw, err := s.CalculateSelected(p.cfg.FunIndexList)
	if err != nil {
		return 0, err
	}

	data := make([]float64, p.lean.FeatNum())
	copy(data, raw)

	res := p.lean.CalculateIdentity(data)

	if res > ratio {
		res = ratio
	}
	if (p.cfg.CanSkip && res < p.cfg.Threshold) || res < 0.0 {
		res = 0.0
	}

	return res, nil
}

func identicalHistograms(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
