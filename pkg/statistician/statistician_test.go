package statistician

import (
	"math"
	"testing"
)

func background() []float64 { return []float64{0.25, 0.25, 0.25, 0.25} }

func keyList2() [][]uint8 {
	keys := make([][]uint8, 16)
	for idx := range keys {
		keys[idx] = []uint8{uint8(idx / 4), uint8(idx % 4)}
	}
	return keys
}

func TestNewDegenerateMean(t *testing.T) {
	h1 := make([]int64, 16)
	h2 := make([]int64, 16)
	h2[0] = 3
	mono := []uint64{1, 1, 1, 1}
	if _, err := New(2, 4, h1, h2, mono, mono, background(), keyList2()); err != ErrDegenerateHistogram {
		t.Fatalf("expected ErrDegenerateHistogram, got %v", err)
	}
}

func identicalHistogram() ([]int64, []uint64) {
	h := make([]int64, 16)
	h[0] = 2
	h[5] = 3
	h[10] = 1
	mono := []uint64{3, 3, 3, 3}
	return h, mono
}

func TestIdenticalSequencesZeroDistance(t *testing.T) {
	h, mono := identicalHistogram()
	s, err := New(2, 4, h, h, mono, mono, background(), keyList2())
	if err != nil {
		t.Fatal(err)
	}
	for _, stat := range []Stat{Manhattan, Euclidean, Chebyshev, Hamming, Minkowski, BrayCurtis, SquaredChord} {
		v, err := s.Calculate(stat)
		if err != nil {
			t.Fatalf("stat %d: %v", stat, err)
		}
		if !isEqual(v, 0) {
			t.Errorf("stat %d on identical histograms = %v, want 0", stat, v)
		}
	}
}

func TestUnknownStatistic(t *testing.T) {
	h, mono := identicalHistogram()
	s, err := New(2, 4, h, h, mono, mono, background(), keyList2())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Calculate(distNum); err != ErrUnknownStatistic {
		t.Fatalf("expected ErrUnknownStatistic for the sentinel gap, got %v", err)
	}
	if _, err := s.Calculate(Stat(999)); err != ErrUnknownStatistic {
		t.Fatalf("expected ErrUnknownStatistic for out-of-range index, got %v", err)
	}
}

func TestCalculateAllSkipsGap(t *testing.T) {
	h1 := []int64{2, 0, 1, 0, 0, 3, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0}
	h2 := []int64{1, 1, 0, 0, 0, 2, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0}
	mono := []uint64{3, 3, 3, 3}
	s, err := New(2, 4, h1, h2, mono, mono, background(), keyList2())
	if err != nil {
		t.Fatal(err)
	}
	all := s.CalculateAll()
	if len(all) != int(allNum)-1 {
		t.Fatalf("expected %d live statistics, got %d", int(allNum)-1, len(all))
	}
	for i, v := range all {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("statistic at position %d is %v", i, v)
		}
	}
}

func TestLengthRatioUsesKMinusOne(t *testing.T) {
	h1 := []int64{5, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	h2 := []int64{10, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	mono := []uint64{3, 3, 3, 3}
	s, err := New(2, 4, h1, h2, mono, mono, background(), keyList2())
	if err != nil {
		t.Fatal(err)
	}
	v, err := s.Calculate(LengthRatio)
	if err != nil {
		t.Fatal(err)
	}
	// l1 = 5+1 = 6, l2 = 10+1 = 11
	want := 6.0 / 11.0
	if !isEqual(v, want) {
		t.Errorf("length ratio = %v, want %v", v, want)
	}
}

func TestCovarianceAndHarmonicRFallbackToZero(t *testing.T) {
	// A histogram short enough that the mean1And2-vs-itself covariance and
	// harmonic-mean denominators are exactly zero triggers the source's
	// too-short-sequence fallback rather than a divide-by-zero.
	h1 := []int64{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	h2 := []int64{0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	mono := []uint64{1, 1, 1, 1}
	s, err := New(2, 4, h1, h2, mono, mono, background(), keyList2())
	if err != nil {
		t.Fatal(err)
	}
	if v := s.covarianceRSimilarity(); v != 0 {
		t.Errorf("covarianceRSimilarity = %v, want 0 (fallback)", v)
	}
}
