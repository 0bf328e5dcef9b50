package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bioinformaticstoolsmith/identity/pkg/feature"
	"github.com/bioinformaticstoolsmith/identity/pkg/fasta"
	"github.com/bioinformaticstoolsmith/identity/pkg/kmer"
	"github.com/bioinformaticstoolsmith/identity/pkg/predictor"
)

func fastExactPredictor(t *testing.T, k int) *predictor.Predictor {
	t.Helper()
	bias := feature.NewSingle(-1, "constant", false)
	f := feature.NewSingle(0, "x", false)
	f.IsNormalized = true
	f.NormP2 = 1
	f.IsSelected = true
	f.W = 1
	lean, err := predictor.NewLeanPredictor([]*feature.Feature{bias, f}, false)
	if err != nil {
		t.Fatal(err)
	}
	p, err := predictor.New(predictor.ScoreConfig{K: k, AlphaSize: 4, FastExactMode: true}, lean)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestUnpackBuildsHistogramsForEachRecord(t *testing.T) {
	records := []fasta.Record{
		{Header: ">a", Sequence: "ACGTACGT"},
		{Header: ">b", Sequence: "TTTTTTTT"},
	}
	width, err := kmer.SelectWidth(8)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Unpack(records, 2, width)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Headers) != 2 || len(b.KHist) != 2 || len(b.MonoHist) != 2 || len(b.Lengths) != 2 {
		t.Fatalf("unexpected block shape: %+v", b)
	}
	if b.Lengths[0] != 8 {
		t.Errorf("expected length 8, got %d", b.Lengths[0])
	}
}

func TestScoreSelfReportsEachUnorderedPairOnce(t *testing.T) {
	records := []fasta.Record{
		{Header: ">a", Sequence: "ACGTACGT"},
		{Header: ">b", Sequence: "ACGTACGT"},
		{Header: ">c", Sequence: "TTTTTTTT"},
	}
	width, _ := kmer.SelectWidth(8)
	b, err := Unpack(records, 2, width)
	if err != nil {
		t.Fatal(err)
	}

	s := NewScorer(fastExactPredictor(t, 2), 0.0, 2)

	var gotPairs [][2]string
	err = s.ScoreSelf(b, func(query string, rows []Pair) error {
		for _, r := range rows {
			gotPairs = append(gotPairs, [2]string{query, r.Target})
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// a matches b exactly (identical k-mer histograms); a vs c and b vs c do not.
	if len(gotPairs) != 1 {
		t.Fatalf("expected exactly one reported pair, got %v", gotPairs)
	}
	if gotPairs[0][0] != ">a" || gotPairs[0][1] != ">b" {
		t.Errorf("expected a-vs-b, got %v", gotPairs[0])
	}
}

func TestScoreCrossCoversFullCartesianProduct(t *testing.T) {
	width, _ := kmer.SelectWidth(8)
	a, err := Unpack([]fasta.Record{{Header: ">a", Sequence: "ACGTACGT"}}, 2, width)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Unpack([]fasta.Record{
		{Header: ">x", Sequence: "ACGTACGT"},
		{Header: ">y", Sequence: "TTTTTTTT"},
	}, 2, width)
	if err != nil {
		t.Fatal(err)
	}

	s := NewScorer(fastExactPredictor(t, 2), 0.0, 2)
	var rows []Pair
	err = s.ScoreCross(a, b, func(query string, r []Pair) error {
		rows = append(rows, r...)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Target != ">x" {
		t.Fatalf("expected only >x to match, got %+v", rows)
	}
}

func writeFastaFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "seqs.fasta")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunAllVsAllCoversEveryUnorderedPair(t *testing.T) {
	path := writeFastaFile(t, ">a\nACGTACGT\n>b\nACGTACGT\n>c\nTTTTTTTT\n>d\nACGTACGT\n")

	s := NewScorer(fastExactPredictor(t, 2), 0.0, 2)
	width, _ := kmer.SelectWidth(8)
	runner := NewAllVsAllRunner(RunnerConfig{K: 2, Width: width, BlockSize: 2, WorkerNum: 2}, s)

	seen := map[string]bool{}
	err := runner.RunAllVsAll(path, func(query string, rows []Pair) error {
		for _, r := range rows {
			seen[query+"|"+r.Target] = true
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{">a|>b", ">a|>d", ">b|>d"} {
		if !seen[want] {
			t.Errorf("expected pair %s to be reported, got %v", want, seen)
		}
	}
	if len(seen) != 3 {
		t.Errorf("expected exactly 3 reported pairs, got %d: %v", len(seen), seen)
	}
}
