package syndata

import (
	"strings"
	"testing"
)

func TestEstimateKClampsToMinimum(t *testing.T) {
	if k := EstimateK(10, 5); k != 2 {
		t.Errorf("expected clamp to 2, got %d", k)
	}
	if k := EstimateK(1e6, 0); k < 9 {
		t.Errorf("expected a larger k for a long mean length, got %d", k)
	}
}

func TestCompositionSumsToOne(t *testing.T) {
	c := Composition([]string{"AACCGGTT", "AAAA"})
	var total float64
	for _, v := range c {
		total += v
	}
	if total < 0.999 || total > 1.001 {
		t.Errorf("expected composition to sum to 1, got %v", total)
	}
	// A count: 2+4=6, total bases 12 -> 0.5
	if c[0] < 0.49 || c[0] > 0.51 {
		t.Errorf("expected A fraction near 0.5, got %v", c[0])
	}
}

func TestCompositionEmptyInput(t *testing.T) {
	c := Composition(nil)
	for i, v := range c {
		if v != 0 {
			t.Errorf("expected zero composition for empty input at %d, got %v", i, v)
		}
	}
}

func TestGenerateRejectsEmptyBlock(t *testing.T) {
	_, _, _, _, _, err := Generate(nil, 0.9, Config{})
	if err != ErrNoSequences {
		t.Fatalf("expected ErrNoSequences, got %v", err)
	}
}

func TestGenerateProducesLabeledRows(t *testing.T) {
	seqs := []string{
		strings.Repeat("ACGTACGTAC", 20),
		strings.Repeat("GGCATTACGA", 20),
	}
	cfg := Config{
		MinId:          0.7,
		MutPerTemplate: 4,
		BlockSize:      2,
		MinBlockSize:   2,
		MaxBlockSize:   5,
		MutSingle:      true,
		MutBlock:       true,
		KRelax:         0,
		ThreadNum:      2,
	}
	features, labels, k, histSize, comp, err := Generate(seqs, 0.9, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if k < 2 {
		t.Errorf("expected k >= 2, got %d", k)
	}
	want := 1
	for i := 0; i < k; i++ {
		want *= 4
	}
	if histSize != want {
		t.Errorf("expected histogram size %d, got %d", want, histSize)
	}
	if features.Rows() != labels.Rows() {
		t.Errorf("feature and label row counts disagree: %d vs %d", features.Rows(), labels.Rows())
	}
	if features.Rows() == 0 {
		t.Fatal("expected at least one training row")
	}
	if features.Cols() != len(cfg.Stats) && len(cfg.Stats) != 0 {
		t.Errorf("unexpected feature column count")
	}
	var total float64
	for _, v := range comp {
		total += v
	}
	if total < 0.99 || total > 1.01 {
		t.Errorf("expected composition to sum to ~1, got %v", total)
	}
	for r := 0; r < labels.Rows(); r++ {
		id := labels.At(r, 0)
		if id < 0 || id > 1.0001 {
			t.Errorf("row %d: identity out of range: %v", r, id)
		}
	}
}

func TestGenerateWithoutNegativesDoublesCopyNum(t *testing.T) {
	seqs := []string{strings.Repeat("ACGTACGTAC", 20)}
	cfg := Config{
		MutPerTemplate: 4,
		BlockSize:      1,
		MinBlockSize:   2,
		MaxBlockSize:   5,
		MutSingle:      true,
		ThreadNum:      1,
	}
	features, labels, _, _, _, err := Generate(seqs, 0, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if features.Rows() != labels.Rows() {
		t.Errorf("row count mismatch")
	}
	if features.Rows() == 0 {
		t.Fatal("expected rows when negatives are disabled")
	}
}
