package model

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bioinformaticstoolsmith/identity/pkg/feature"
)

func sampleModel() *Model {
	bias := feature.NewSingle(-1, "constant", false)
	bias.IsSelected = true
	bias.W = 0.25

	a := feature.NewSingle(0, "euclidean", true)
	a.IsNormalized = true
	a.NormP1, a.NormP2 = 0, 10
	a.IsSelected = true
	a.IsNeeded = true
	a.TableIndex = 0
	a.W = 0.5

	b := feature.NewSingle(1, "sim ratio", false)
	b.IsNormalized = true
	b.NormP1, b.NormP2 = 0, 1
	b.IsNeeded = true
	b.TableIndex = 1

	sq := feature.NewSquared(a)
	sq.IsNormalized = true
	sq.NormP1, sq.NormP2 = 0, 100
	sq.IsSelected = true
	sq.W = 0.1

	pair := feature.NewPaired(a, b)
	pair.IsNormalized = true
	pair.NormP1, pair.NormP2 = 0, 10
	pair.IsSelected = true
	pair.W = 0.05

	return &Model{
		K:           2,
		HistSize:    16,
		AbsError:    0.02,
		MaxLength:   5000,
		Composition: [AlphabetSize]float64{0.3, 0.2, 0.2, 0.3},
		Features:    []*feature.Feature{bias, a, b, sq, pair},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := sampleModel()

	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		t.Fatal(err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if got.K != m.K || got.HistSize != m.HistSize || got.MaxLength != m.MaxLength {
		t.Fatalf("header mismatch: %+v", got)
	}
	if got.AbsError != m.AbsError {
		t.Errorf("expected absError %v, got %v", m.AbsError, got.AbsError)
	}
	if got.Composition != m.Composition {
		t.Errorf("expected composition %v, got %v", m.Composition, got.Composition)
	}
	if len(got.Features) != len(m.Features) {
		t.Fatalf("expected %d features, got %d", len(m.Features), len(got.Features))
	}

	for i, f := range m.Features {
		gf := got.Features[i]
		if gf.Kind != f.Kind {
			t.Errorf("feature %d: expected kind %v, got %v", i, f.Kind, gf.Kind)
		}
		if gf.IsSelected != f.IsSelected || gf.IsNeeded != f.IsNeeded {
			t.Errorf("feature %d: selected/needed flags not preserved", i)
		}
		if gf.W != f.W {
			t.Errorf("feature %d: expected weight %v, got %v", i, f.W, gf.W)
		}
	}

	sq := got.Features[3]
	if sq.Kind != feature.Squared || sq.Comp1 != got.Features[1].TableIndex {
		t.Errorf("squared feature did not rebind to its component: %+v", sq)
	}

	pair := got.Features[4]
	if pair.Kind != feature.Paired || pair.Comp1 != got.Features[1].TableIndex || pair.Comp2 != got.Features[2].TableIndex {
		t.Errorf("paired feature did not rebind to both components: %+v", pair)
	}
}

func TestWriteEscapesSpacesInNames(t *testing.T) {
	var buf bytes.Buffer
	m := &Model{Features: []*feature.Feature{feature.NewSingle(0, "sim ratio", false)}}
	if err := Write(&buf, m); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "sim ratio") {
		t.Errorf("expected space in feature name to be escaped, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "sim:ratio") {
		t.Errorf("expected colon-escaped name in output, got:\n%s", buf.String())
	}
}

func TestReadRejectsUnknownSquaredComponent(t *testing.T) {
	// A squared feature line with no prior single feature of that name.
	body := "2\n4\n0.01\n1000\n0.25\t0.25\t0.25\t0.25\n" +
		"1\t-1\tmystery^2\t0\t0\t0\t1\t0\t0\t0\t0\t0.1\n"
	_, err := Read(strings.NewReader(body))
	if err == nil {
		t.Fatal("expected an error for an unresolved squared component")
	}
}

func TestReadRejectsTruncatedHeader(t *testing.T) {
	_, err := Read(strings.NewReader("2\n4\n"))
	if err == nil {
		t.Fatal("expected an error for a truncated header")
	}
}
