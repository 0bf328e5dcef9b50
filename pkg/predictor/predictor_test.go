package predictor

import (
	"testing"

	"github.com/bioinformaticstoolsmith/identity/pkg/feature"
	"github.com/bioinformaticstoolsmith/identity/pkg/kmer"
)

func singleRangeFeature(funIndex int, name string, isDistance bool, lo, hi float64) *feature.Feature {
	f := feature.NewSingle(funIndex, name, isDistance)
	f.IsNormalized = true
	f.NormP1 = lo
	f.NormP2 = hi
	f.IsSelected = true
	f.W = 1.0
	return f
}

func TestNewLeanPredictorRejectsEmptyList(t *testing.T) {
	if _, err := NewLeanPredictor(nil, false); err != ErrEmptyFeatureList {
		t.Fatalf("expected ErrEmptyFeatureList, got %v", err)
	}
}

func TestCalculateIdentitySinglesOnly(t *testing.T) {
	bias := feature.NewSingle(-1, "constant", false)
	bias.W = 0.1

	a := singleRangeFeature(0, "a", false, 0, 10)
	a.W = 0.5
	b := singleRangeFeature(1, "b", false, 0, 10)
	b.W = 0.5

	lean, err := NewLeanPredictor([]*feature.Feature{bias, a, b}, false)
	if err != nil {
		t.Fatal(err)
	}
	if lean.SingleFeatNum() != 2 || lean.FeatNum() != 2 {
		t.Fatalf("unexpected feature counts: single=%d total=%d", lean.SingleFeatNum(), lean.FeatNum())
	}

	data := []float64{5, 5} // normalizes to 0.5 each
	got := lean.CalculateIdentity(data)
	want := 0.1 + 0.5*0.5 + 0.5*0.5
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestCalculateIdentityClampsAndConvertsDistance(t *testing.T) {
	bias := feature.NewSingle(-1, "constant", false)
	bias.W = 0

	d := singleRangeFeature(0, "d", true, 0, 1)
	d.W = 1.0

	lean, err := NewLeanPredictor([]*feature.Feature{bias, d}, false)
	if err != nil {
		t.Fatal(err)
	}

	data := []float64{0.25} // distance 0.25 -> similarity 0.75, already in [0,1]
	got := lean.CalculateIdentity(data)
	if diff := got - 0.75; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected 0.75, got %v", got)
	}
}

func TestCalculateIdentityClassificationRounds(t *testing.T) {
	bias := feature.NewSingle(-1, "constant", false)
	bias.W = 0.6
	x := singleRangeFeature(0, "x", false, 0, 1)
	x.W = 0 // contributes nothing, so the raw output is the bias 0.6
	lean, err := NewLeanPredictor([]*feature.Feature{bias, x}, true)
	if err != nil {
		t.Fatal(err)
	}
	if got := lean.CalculateIdentity([]float64{0.5}); got != 1.0 {
		t.Errorf("expected classification round to 1, got %v", got)
	}
}

func buildHistogram(t *testing.T, seq string, k int) []int64 {
	t.Helper()
	digits := make([]int, len(seq))
	for i, b := range []byte(seq) {
		digits[i] = kmer.Digit(b)
	}
	width, err := kmer.SelectWidth(len(seq))
	if err != nil {
		t.Fatal(err)
	}
	h, err := kmer.Build(digits, k, width)
	if err != nil {
		t.Fatal(err)
	}
	return h.Counts
}

func TestScoreFastExactModeMatchesIdenticalHistograms(t *testing.T) {
	k := 2
	h1 := buildHistogram(t, "ACGTACGT", k)
	h2 := buildHistogram(t, "ACGTACGT", k)
	h3 := buildHistogram(t, "TTTTTTTT", k)

	bias := feature.NewSingle(-1, "constant", false)
	lean, err := NewLeanPredictor([]*feature.Feature{bias, singleRangeFeature(0, "x", false, 0, 1)}, false)
	if err != nil {
		t.Fatal(err)
	}

	p, err := New(ScoreConfig{K: k, AlphaSize: 4, FastExactMode: true}, lean)
	if err != nil {
		t.Fatal(err)
	}

	got, err := p.Score(h1, h2, nil, nil, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1.0 {
		t.Errorf("expected identical histograms to score 1.0, got %v", got)
	}

	got2, err := p.Score(h1, h3, nil, nil, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got2 != 0.0 {
		t.Errorf("expected differing histograms to score 0.0, got %v", got2)
	}
}

func TestScoreSkipsOnLengthRatio(t *testing.T) {
	k := 2
	h1 := buildHistogram(t, "ACGTACGT", k)
	h2 := buildHistogram(t, "ACGT", k)

	bias := feature.NewSingle(-1, "constant", false)
	lean, err := NewLeanPredictor([]*feature.Feature{bias, singleRangeFeature(0, "x", false, 0, 1)}, false)
	if err != nil {
		t.Fatal(err)
	}

	p, err := New(ScoreConfig{K: k, AlphaSize: 4, Threshold: 0.95, CanSkip: true}, lean)
	if err != nil {
		t.Fatal(err)
	}

	got, err := p.Score(h1, h2, nil, nil, 8, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.0 {
		t.Errorf("expected length-ratio skip to score 0, got %v", got)
	}
}

func TestIsImpossibleAndCalcRatio(t *testing.T) {
	if !IsImpossible(10, 100, 0.5) {
		t.Error("expected 10/100 pair to be impossible at threshold 0.5")
	}
	if IsImpossible(90, 100, 0.5) {
		t.Error("expected 90/100 pair to be possible at threshold 0.5")
	}
	if r := CalcRatio(50, 100); r != 0.5 {
		t.Errorf("expected ratio 0.5, got %v", r)
	}
}
