package fasta

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFasta(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "seqs.fasta")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadSingleBlock(t *testing.T) {
	path := writeFasta(t, ">one\nACGT\n>two\nACGTACGT\n")
	r, err := NewReader(path, 10, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	block, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(block) != 2 {
		t.Fatalf("expected 2 records, got %d", len(block))
	}
	if block[0].Header != ">one" || block[0].Sequence != "ACGT" {
		t.Errorf("unexpected first record: %+v", block[0])
	}
	if block[1].Sequence != "ACGTACGT" {
		t.Errorf("unexpected second record: %+v", block[1])
	}
	if r.IsStillReading() {
		t.Error("expected reader to be done")
	}
	if r.MaxLen() != 8 {
		t.Errorf("expected max length 8, got %d", r.MaxLen())
	}
}

func TestReadRemapsAmbiguityCodes(t *testing.T) {
	path := writeFasta(t, ">one\nacgtRYMKSWHBVD\n")
	r, err := NewReader(path, 10, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	block, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	want := "ACGTGCATGTCTAT"
	if block[0].Sequence != want {
		t.Errorf("got %q want %q", block[0].Sequence, want)
	}
}

func TestReadDropsAllUnknownSequence(t *testing.T) {
	path := writeFasta(t, ">one\nNNNN\n>two\nACGT\n")
	r, err := NewReader(path, 10, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	block, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(block) != 1 {
		t.Fatalf("expected the all-N record to be dropped, got %d records", len(block))
	}
	if block[0].Header != ">two" {
		t.Errorf("expected surviving record to be >two, got %q", block[0].Header)
	}
}

func TestReadRejectsInvalidSymbol(t *testing.T) {
	path := writeFasta(t, ">one\nACGTX\n")
	r, err := NewReader(path, 10, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := r.Read(); err == nil {
		t.Fatal("expected an error for an invalid symbol")
	}
}

func TestReadSplitsAcrossBlocksAndTracksPosition(t *testing.T) {
	path := writeFasta(t, ">a\nACGT\n>b\nACGT\n>c\nACGT\n")
	r, err := NewReader(path, 2, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	first, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 {
		t.Fatalf("expected first block of 2, got %d", len(first))
	}
	if !r.IsStillReading() {
		t.Fatal("expected more to read after first block")
	}

	second, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 {
		t.Fatalf("expected second block of 1, got %d", len(second))
	}
	if r.IsStillReading() {
		t.Error("expected reader to be done after second block")
	}
}

func TestRestartRereadsFromBeginning(t *testing.T) {
	path := writeFasta(t, ">a\nACGT\n>b\nACGTACGT\n")
	r, err := NewReader(path, 10, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := r.Read(); err != nil {
		t.Fatal(err)
	}
	learnedMax := r.MaxLen()

	if err := r.Restart(); err != nil {
		t.Fatal(err)
	}
	if r.CurrentPos() != 0 {
		t.Errorf("expected position reset to 0, got %d", r.CurrentPos())
	}
	if !r.IsStillReading() {
		t.Error("expected restart to resume reading")
	}

	block, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(block) != 2 {
		t.Fatalf("expected 2 records on reread, got %d", len(block))
	}
	if r.MaxLen() != learnedMax {
		t.Errorf("expected max length preserved across restart, got %d want %d", r.MaxLen(), learnedMax)
	}
}

func TestReadHandlesCarriageReturns(t *testing.T) {
	path := writeFasta(t, ">one\r\nACGT\r\n")
	r, err := NewReader(path, 10, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	block, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(block) != 1 || block[0].Sequence != "ACGT" {
		t.Errorf("unexpected block: %+v", block)
	}
}
