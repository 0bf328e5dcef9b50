// Package syndata builds a labeled matrix of (statistics, identity) training
// rows from a reference block of sequences, by mutating each reference at a
// schedule of rates above and below a target threshold.
package syndata

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/bioinformaticstoolsmith/identity/pkg/kmer"
	"github.com/bioinformaticstoolsmith/identity/pkg/matrix"
	"github.com/bioinformaticstoolsmith/identity/pkg/mutator"
	"github.com/bioinformaticstoolsmith/identity/pkg/statistician"
)

// ErrNoSequences is returned when the reference block is empty.
var ErrNoSequences = errors.New("syndata: reference block is empty")

// alphaSize is fixed at 4 (DNA only); protein mode is out of scope.
const alphaSize = 4

// Config holds the tunable knobs consulted while generating training rows,
// mirroring the source's mutation/block tuning parameters.
type Config struct {
	MinId             float64 // lower bound of the negative-rate schedule
	MutPerTemplate    int     // total mutated copies per reference sequence
	BlockSize         int     // desired reference block size, for copy-count scaling
	MinBlockSize      int     // minimum mutation block size
	MaxBlockSize      int     // maximum mutation block size
	MutSingle         bool
	MutBlock          bool
	MutTranslocation  bool
	MutInversion      bool
	KRelax            int // subtracted from the estimated k order
	ThreadNum         int
	Stats             []statistician.Stat // nil selects every live statistic
}

// EstimateK derives the k-mer order from a block's mean sequence length,
// clamped to a minimum of 2.
func EstimateK(meanLength float64, kRelax int) int {
	k := int(math.Ceil(math.Log(meanLength)/math.Log(4))) - kRelax
	if k < 2 {
		k = 2
	}
	return k
}

// Composition computes the per-base frequency vector over a set of
// sequences, in [A,C,G,T] count order (matching the source's
// fillCompositionList, whose index order is the order bases are counted
// in, not the k-mer digit encoding order).
func Composition(seqs []string) [4]float64 {
	var c [4]float64
	for _, seq := range seqs {
		for i := 0; i < len(seq); i++ {
			switch seq[i] {
			case 'A':
				c[0]++
			case 'C':
				c[1]++
			case 'G':
				c[2]++
			case 'T':
				c[3]++
			}
		}
	}
	var total float64
	for _, v := range c {
		total += v
	}
	if total == 0 {
		return c
	}
	for i := range c {
		c[i] /= total
	}
	return c
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

// Generate produces the dense (rows x |statistics|) feature matrix and
// single-column label matrix for a reference block. It also returns the
// estimated k, histogram size, and composition vector, which the predictor
// needs downstream.
func Generate(seqs []string, threshold float64, cfg Config) (features, labels *matrix.Matrix, k, histogramSize int, composition [4]float64, err error) {
	actual := len(seqs)
	if actual == 0 {
		return nil, nil, 0, 0, composition, ErrNoSequences
	}

	var sum float64
	var maxLen int
	for _, s := range seqs {
		sum += float64(len(s))
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	mean := sum / float64(actual)
	k = EstimateK(mean, cfg.KRelax)
	histogramSize = 1
	for i := 0; i < k; i++ {
		histogramSize *= 4
	}

	width, err := kmer.SelectWidth(2 * maxLen)
	if err != nil {
		return nil, nil, 0, 0, composition, err
	}

	composition = Composition(seqs)
	keyList := kmer.KeysDigitFormat(k)

	canGenerateNegatives := threshold != 0.0

	var pstvRates []float64
	for i := 0.99; i >= threshold; i -= 0.01 {
		pstvRates = append(pstvRates, 1.0-i)
	}
	if len(pstvRates) == 0 {
		pstvRates = []float64{1.0 - threshold}
	}
	var ngtvRates []float64
	if canGenerateNegatives {
		for j := threshold - 0.01; j >= cfg.MinId; j -= 0.01 {
			ngtvRates = append(ngtvRates, 1.0-j)
		}
		if len(ngtvRates) == 0 {
			ngtvRates = []float64{1.0 - cfg.MinId}
		}
	}

	copyNum := cfg.MutPerTemplate / 2
	if actual < cfg.BlockSize {
		copyNum = int(float64(copyNum) * float64(cfg.BlockSize) / float64(actual))
	}
	if !canGenerateNegatives {
		copyNum *= 2
	}

	stats := cfg.Stats
	if len(stats) == 0 {
		stats = statistician.AllStats()
	}
	statNum := len(stats)

	rowNum := 2 * copyNum * actual
	features = matrix.New(rowNum, statNum, 0)
	labels = matrix.New(rowNum, 1, 0)

	threadNum := cfg.ThreadNum
	if threadNum < 1 {
		threadNum = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, threadNum)
	var firstErr error
	var errMu sync.Mutex
	recordErr := func(e error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = e
		}
		errMu.Unlock()
	}

	for i := 0; i < actual; i++ {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			m, err := mutator.New(seqs[i], cfg.MaxBlockSize, cfg.MinBlockSize, int64(i))
			if err != nil {
				recordErr(fmt.Errorf("syndata: building mutator for sequence %d: %w", i, err))
				return
			}
			if cfg.MutSingle {
				m.EnableSinglePoint()
			}
			if cfg.MutBlock {
				m.EnableBlock()
			}
			if cfg.MutTranslocation {
				m.EnableTranslocation()
			}
			if cfg.MutInversion {
				m.EnableInversion()
			}

			digits1 := digitsOf(seqs[i])
			h1hist, err := kmer.Build(digits1, k, width)
			if err != nil {
				recordErr(fmt.Errorf("syndata: building k-mer histogram for sequence %d: %w", i, err))
				return
			}
			mono1hist, err := kmer.Build(digits1, 1, kmer.Width64)
			if err != nil {
				recordErr(fmt.Errorf("syndata: building monomer histogram for sequence %d: %w", i, err))
				return
			}
			mono1 := toUint64(mono1hist.Counts)

			for j := 0; j < copyNum; j++ {
				rate := pstvRates[(i*copyNum+j)%len(pstvRates)]
				seq2, identity, err := m.MutateSequence(rate)
				if err != nil {
					recordErr(err)
					return
				}
				digits2 := digitsOf(seq2)
				h2hist, err := kmer.Build(digits2, k, width)
				if err != nil {
					recordErr(err)
					return
				}
				mono2hist, err := kmer.Build(digits2, 1, kmer.Width64)
				if err != nil {
					recordErr(err)
					return
				}
				mono2 := toUint64(mono2hist.Counts)

				st, err := statistician.New(k, alphaSize, h1hist.Counts, h2hist.Counts, mono1, mono2, composition[:], keyList)
				if err != nil {
					recordErr(err)
					return
				}
				vals, err := st.CalculateSelected(stats)
				if err != nil {
					recordErr(err)
					return
				}

				var r int
				if canGenerateNegatives {
					r = 2*i*copyNum + j
				} else {
					r = i*copyNum + j
				}
				if err := features.SetRow(r, vals); err != nil {
					recordErr(err)
					return
				}
				labels.Set(r, 0, identity)
			}

			if canGenerateNegatives {
				for j := 0; j < copyNum; j++ {
					rate := ngtvRates[(i*copyNum+j)%len(ngtvRates)]
					seq2, identity, err := m.MutateSequence(rate)
					if err != nil {
						recordErr(err)
						return
					}
					digits2 := digitsOf(seq2)
					h2hist, err := kmer.Build(digits2, k, width)
					if err != nil {
						recordErr(err)
						return
					}
					mono2hist, err := kmer.Build(digits2, 1, kmer.Width64)
					if err != nil {
						recordErr(err)
						return
					}
					mono2 := toUint64(mono2hist.Counts)

					st, err := statistician.New(k, alphaSize, h1hist.Counts, h2hist.Counts, mono1, mono2, composition[:], keyList)
					if err != nil {
						recordErr(err)
						return
					}
					vals, err := st.CalculateSelected(stats)
					if err != nil {
						recordErr(err)
						return
					}

					r := 2*i*copyNum + j + copyNum
					if err := features.SetRow(r, vals); err != nil {
						recordErr(err)
						return
					}
					labels.Set(r, 0, identity)
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, nil, 0, 0, composition, firstErr
	}
	return features, labels, k, histogramSize, composition, nil
}
