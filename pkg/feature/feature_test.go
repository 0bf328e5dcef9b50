package feature

import (
	"testing"

	"github.com/bioinformaticstoolsmith/identity/pkg/matrix"
)

func TestNormalizerClampsToUnitRange(t *testing.T) {
	m := matrix.NewFromRows([][]float64{{0}, {5}, {10}})
	f := []*Feature{NewSingle(0, "x", true)}
	n, err := FitNormalizer(m, f)
	if err != nil {
		t.Fatal(err)
	}
	out, err := n.Transform(m)
	if err != nil {
		t.Fatal(err)
	}
	if out.At(0, 0) != 0 || out.At(2, 0) != 1 || out.At(1, 0) != 0.5 {
		t.Errorf("unexpected normalized column: %v %v %v", out.At(0, 0), out.At(1, 0), out.At(2, 0))
	}
}

func TestNormalizerConstantColumnGoesToZero(t *testing.T) {
	m := matrix.NewFromRows([][]float64{{3}, {3}, {3}})
	f := []*Feature{NewSingle(0, "x", true)}
	n, err := FitNormalizer(m, f)
	if err != nil {
		t.Fatal(err)
	}
	out, err := n.Transform(m)
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < 3; r++ {
		if out.At(r, 0) != 0 {
			t.Errorf("expected constant column to zero out, got %v", out.At(r, 0))
		}
	}
}

func TestSimConverterFlipsDistanceOnly(t *testing.T) {
	m := matrix.NewFromRows([][]float64{{0.2, 0.3}})
	fs := []*Feature{NewSingle(0, "d", true), NewSingle(1, "s", false)}
	sc, err := NewSimConverter(m, fs)
	if err != nil {
		t.Fatal(err)
	}
	out, err := sc.Transform(m)
	if err != nil {
		t.Fatal(err)
	}
	if out.At(0, 0) != 0.8 {
		t.Errorf("expected distance column flipped to 0.8, got %v", out.At(0, 0))
	}
	if out.At(0, 1) != 0.3 {
		t.Errorf("expected similarity column untouched, got %v", out.At(0, 1))
	}
}

func TestExpanderBuildsSquaredAndPaired(t *testing.T) {
	m := matrix.NewFromRows([][]float64{{2, 3}})
	singles := []*Feature{NewSingle(0, "a", true), NewSingle(1, "b", false)}
	exp, err := FitExpander(m, singles)
	if err != nil {
		t.Fatal(err)
	}
	// 2 singles + 2 squared + 6 paired (every pair among the 4 singles
	// and squares) = 10 columns
	if len(exp.FeatureList()) != 10 {
		t.Fatalf("expected 10 expanded features, got %d", len(exp.FeatureList()))
	}
	out, err := exp.Transform(m)
	if err != nil {
		t.Fatal(err)
	}
	if out.At(0, 0) != 2 || out.At(0, 1) != 3 {
		t.Errorf("expected raw columns preserved")
	}
	if out.At(0, 2) != 4 || out.At(0, 3) != 9 {
		t.Errorf("expected squared columns 4,9, got %v,%v", out.At(0, 2), out.At(0, 3))
	}
	if out.At(0, 4) != 6 {
		t.Errorf("expected paired column a*b=6, got %v", out.At(0, 4))
	}
}

func TestGLMFitPerfectLinearFit(t *testing.T) {
	features := matrix.NewFromRows([][]float64{{0, 1}, {1, 1}, {2, 1}, {3, 1}})
	labels := matrix.NewFromRows([][]float64{{1}, {3}, {5}, {7}})
	g, err := FitRegressorGLM(features, labels)
	if err != nil {
		t.Fatal(err)
	}
	pred, err := g.Transform(features)
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < 4; r++ {
		if diff := pred.At(r, 0) - labels.At(r, 0); diff > 1e-6 || diff < -1e-6 {
			t.Errorf("row %d: expected near-perfect fit, got %v vs %v", r, pred.At(r, 0), labels.At(r, 0))
		}
	}
}

func TestBestFirstSelectsInformativeColumn(t *testing.T) {
	// Column 0 perfectly predicts the label; column 1 is noise.
	features := matrix.NewFromRows([][]float64{
		{0, 5}, {0, 1}, {1, 3}, {1, 9}, {0, 2}, {1, 4},
	})
	labels := matrix.NewFromRows([][]float64{
		{0}, {0}, {1}, {1}, {0}, {1},
	})
	flist := []*Feature{NewSingle(0, "good", false), NewSingle(1, "noise", false)}

	bf, err := Select(features, labels, flist, FitClassifierGLM, func(o, p *matrix.Matrix) (float64, error) {
		return Accuracy(o, p)
	}, AccuracyIsBetter, true, 1, 0.0, 3)
	if err != nil {
		t.Fatal(err)
	}
	idx := bf.SelectedIndices()
	if len(idx) == 0 {
		t.Fatal("expected at least one selected feature")
	}
	found := false
	for _, i := range idx {
		if i == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected column 0 to be selected, got %v", idx)
	}
}
