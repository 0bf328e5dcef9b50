// Package scoring drives one-vs-one identity prediction across blocks of
// sequences: unpacking a FASTA block into histograms, scoring every pair
// a block holds against another (or against itself), and coordinating a
// query file against a database file with overlapped reading and scoring.
package scoring

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bioinformaticstoolsmith/identity/pkg/fasta"
	"github.com/bioinformaticstoolsmith/identity/pkg/kmer"
	"github.com/bioinformaticstoolsmith/identity/pkg/predictor"
)

// Pair is one scored sequence-vs-sequence result.
type Pair struct {
	Query    string
	Target   string
	Identity float64
}

// Block is a FASTA block's precomputed histograms, keyed by position:
// Headers[i]/KHist[i]/MonoHist[i]/Lengths[i] all describe the same record.
type Block struct {
	Headers  []string
	KHist    [][]int64
	MonoHist [][]uint64
	Lengths  []int
}

func digitsOf(seq string) []int {
	d := make([]int, len(seq))
	for i := 0; i < len(seq); i++ {
		d[i] = kmer.Digit(seq[i])
	}
	return d
}

func toUint64(counts []int64) []uint64 {
	out := make([]uint64, len(counts))
	for i, c := range counts {
		out[i] = uint64(c)
	}
	return out
}

// Unpack builds the histograms for every record in a FASTA block.
func Unpack(records []fasta.Record, k int, width kmer.Width) (*Block, error) {
	b := &Block{
		Headers:  make([]string, len(records)),
		KHist:    make([][]int64, len(records)),
		MonoHist: make([][]uint64, len(records)),
		Lengths:  make([]int, len(records)),
	}
	for i, rec := range records {
		digits := digitsOf(rec.Sequence)
		kh, err := kmer.Build(digits, k, width)
		if err != nil {
			return nil, fmt.Errorf("scoring: k-mer histogram for %q: %w", rec.Header, err)
		}
		mh, err := kmer.Build(digits, 1, kmer.Width64)
		if err != nil {
			return nil, fmt.Errorf("scoring: monomer histogram for %q: %w", rec.Header, err)
		}
		b.Headers[i] = rec.Header
		b.KHist[i] = kh.Counts
		b.MonoHist[i] = toUint64(mh.Counts)
		b.Lengths[i] = len(rec.Sequence)
	}
	return b, nil
}

// Sink receives the rows scored for a single query record against
// whatever target block was just processed.
type Sink func(queryHeader string, rows []Pair) error

// Scorer turns pairs of histograms into identity scores and reports
// results above a relaxed reporting threshold, parallelized over a
// fixed worker count per query record.
type Scorer struct {
	predictor      *predictor.Predictor
	relaxThreshold float64
	workerNum      int
}

// NewScorer builds a Scorer. relaxThreshold is the (possibly lowered,
// error-adjusted) cutoff below which a scored pair is not reported;
// it is independent from the pruning threshold baked into pred. Pairs
// scoring 0 (including pairs skipped on length ratio) are never reported.
func NewScorer(pred *predictor.Predictor, relaxThreshold float64, workerNum int) *Scorer {
	if workerNum < 1 {
		workerNum = 1
	}
	return &Scorer{predictor: pred, relaxThreshold: relaxThreshold, workerNum: workerNum}
}

// ScoreSelf scores every unordered pair within a block exactly once
// (i < j), reporting one sink call per query row i.
func (s *Scorer) ScoreSelf(a *Block, sink Sink) error {
	for i := range a.Headers {
		rows, err := s.scoreRow(a, i, a, i+1, len(a.Headers))
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		if err := sink(a.Headers[i], rows); err != nil {
			return err
		}
	}
	return nil
}

// ScoreCross scores every record of block a against every record of
// block b, reporting one sink call per query row of a.
func (s *Scorer) ScoreCross(a, b *Block, sink Sink) error {
	for i := range a.Headers {
		rows, err := s.scoreRow(a, i, b, 0, len(b.Headers))
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		if err := sink(a.Headers[i], rows); err != nil {
			return err
		}
	}
	return nil
}

// scoreRow scores query record i of block a against targets [lo,hi) of
// block b, fanning the inner loop out across s.workerNum goroutines.
func (s *Scorer) scoreRow(a *Block, i int, b *Block, lo, hi int) ([]Pair, error) {
	type indexed struct {
		idx int
		row Pair
		ok  bool
	}

	n := hi - lo
	if n <= 0 {
		return nil, nil
	}

	results := make([]indexed, n)
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workerNum)
	var firstErr error
	var mu sync.Mutex

	for off := 0; off < n; off++ {
		off := off
		j := lo + off
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := s.predictor.Score(a.KHist[i], b.KHist[j], a.MonoHist[i], b.MonoHist[j], a.Lengths[i], b.Lengths[j])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if res > 1.0 {
				res = 1.0
			} else if res < 0.0 {
				res = 0.0
			}
			if res == 0 || res < s.relaxThreshold {
				return
			}
			results[off] = indexed{idx: j, row: Pair{Target: b.Headers[j], Identity: res}, ok: true}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(results, func(x, y int) bool { return results[x].idx < results[y].idx })
	rows := make([]Pair, 0, n)
	for _, r := range results {
		if r.ok {
			rows = append(rows, r.row)
		}
	}
	return rows, nil
}

// readResult carries a DB block over to the scoring loop along with
// whatever error interrupted the background reader.
type readResult struct {
	records []fasta.Record
	err     error
}

// RunnerConfig bundles the fixed inputs an AllVsAllRunner needs.
type RunnerConfig struct {
	K         int
	Width     kmer.Width
	BlockSize int
	WorkerNum int
}

// AllVsAllRunner drives scoring between a query file and a database
// file: it overlaps reading the next database block with scoring the
// current one, redeploying the reading goroutine as a scorer once the
// database file is exhausted.
type AllVsAllRunner struct {
	cfg    RunnerConfig
	scorer *Scorer
}

// NewAllVsAllRunner builds a runner over the given scorer.
func NewAllVsAllRunner(cfg RunnerConfig, scorer *Scorer) *AllVsAllRunner {
	return &AllVsAllRunner{cfg: cfg, scorer: scorer}
}

// RunAllVsAll streams path against itself: block A is each successive
// block of the file, block B's range starts at A's current file offset
// so each unordered pair is produced exactly once.
func (r *AllVsAllRunner) RunAllVsAll(path string, sink Sink) error {
	qr, err := fasta.NewReader(path, r.cfg.BlockSize, 0, 0)
	if err != nil {
		return err
	}
	defer qr.Close()

	aRecords, err := qr.Read()
	if err != nil {
		return err
	}
	a, err := Unpack(aRecords, r.cfg.K, r.cfg.Width)
	if err != nil {
		return err
	}
	if err := r.scorer.ScoreSelf(a, sink); err != nil {
		return err
	}

	for qr.IsStillReading() {
		dbReader, err := fasta.NewReader(path, r.cfg.BlockSize, qr.CurrentPos(), qr.MaxLen())
		if err != nil {
			return err
		}

		if err := r.drainDbAgainstA(dbReader, a, sink); err != nil {
			dbReader.Close()
			return err
		}
		dbReader.Close()

		aRecords, err := qr.Read()
		if err != nil {
			return err
		}
		a, err = Unpack(aRecords, r.cfg.K, r.cfg.Width)
		if err != nil {
			return err
		}
		if err := r.scorer.ScoreSelf(a, sink); err != nil {
			return err
		}
	}
	return nil
}

// RunQueryVsAll streams every block of qryPath against every block of
// dbPath.
func (r *AllVsAllRunner) RunQueryVsAll(dbPath, qryPath string, sink Sink) error {
	qr, err := fasta.NewReader(qryPath, r.cfg.BlockSize, 0, 0)
	if err != nil {
		return err
	}
	defer qr.Close()

	for qr.IsStillReading() {
		qRecords, err := qr.Read()
		if err != nil {
			return err
		}
		a, err := Unpack(qRecords, r.cfg.K, r.cfg.Width)
		if err != nil {
			return err
		}

		dbReader, err := fasta.NewReader(dbPath, r.cfg.BlockSize, 0, 0)
		if err != nil {
			return err
		}
		if err := r.drainDbAgainstA(dbReader, a, sink); err != nil {
			dbReader.Close()
			return err
		}
		dbReader.Close()
	}
	return nil
}

// drainDbAgainstA reads every block of dbReader in a background
// goroutine while the caller scores each block as it arrives, so
// reading and scoring overlap. Once reading finishes, new scoring calls
// simply run alone; there is no dedicated "redeploy" step since Go's
// goroutine scheduler, unlike the source's fixed OpenMP thread count,
// does not need a thread freed up explicitly for the reader.
func (r *AllVsAllRunner) drainDbAgainstA(dbReader *fasta.Reader, a *Block, sink Sink) error {
	buffer := make(chan readResult, 64)

	go func() {
		defer close(buffer)
		for dbReader.IsStillReading() {
			records, err := dbReader.Read()
			if err != nil {
				buffer <- readResult{err: err}
				return
			}
			buffer <- readResult{records: records}
		}
	}()

	for res := range buffer {
		if res.err != nil {
			return res.err
		}
		if len(res.records) == 0 {
			continue
		}
		b, err := Unpack(res.records, r.cfg.K, r.cfg.Width)
		if err != nil {
			return err
		}
		if err := r.scorer.ScoreCross(a, b, sink); err != nil {
			return err
		}
	}
	return nil
}
