// Package model saves and loads a trained predictor as a plain-text,
// tab-separated file: the k-mer width and histogram size it was trained
// with, its absolute error bound, the longest sequence length seen during
// training, the background nucleotide composition, and the full feature
// list (single statistics plus their squared/paired expansions, in the
// order they were built so a derived feature's components always appear
// earlier in the file).
package model

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bioinformaticstoolsmith/identity/pkg/feature"
)

// AlphabetSize is the nucleotide alphabet size (A, C, G, T) the
// composition vector is indexed by.
const AlphabetSize = 4

// ErrUnknownFeature is returned when a squared or paired feature line
// names a component that was not seen earlier in the file.
var ErrUnknownFeature = errors.New("model: unknown feature name")

// ErrInvalidComponentCount is returned when a feature line's component
// count is something other than 0 (single), 1 (squared), or 2 (paired).
var ErrInvalidComponentCount = errors.New("model: invalid feature component count")

// Model is everything a predictor needs to resume scoring without
// retraining.
type Model struct {
	K           int
	HistSize    int
	AbsError    float64
	MaxLength   int64
	Composition [AlphabetSize]float64

	// Features holds the bias term first (a single feature named
	// "constant" whose weight is the GLM intercept), followed by every
	// other feature in build order.
	Features []*feature.Feature
}

// Save writes m to path.
func Save(path string, m *Model) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := Write(w, m); err != nil {
		return err
	}
	return w.Flush()
}

// Load reads a Model previously written by Save.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Write serializes m to w in the format Read expects.
func Write(w io.Writer, m *Model) error {
	if _, err := fmt.Fprintf(w, "%d\n%d\n%s\n%d\n", m.K, m.HistSize, formatFloat(m.AbsError), m.MaxLength); err != nil {
		return err
	}

	parts := make([]string, len(m.Composition))
	for i, c := range m.Composition {
		parts[i] = formatFloat(c)
	}
	if _, err := fmt.Fprintln(w, strings.Join(parts, "\t")); err != nil {
		return err
	}

	for _, f := range m.Features {
		if err := writeFeature(w, f); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 16, 64)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// writeFeature mirrors Serializer's operator<<(ostream&, Feature&): a
// composed feature (squared or paired) writes -1 in place of its function
// index, and any space in the name is swapped for a colon so the
// whitespace-delimited reader never splits a name across tokens. Reading
// back never reverses that swap - a name with an embedded space keeps its
// colon permanently once round-tripped, matching the source format.
func writeFeature(w io.Writer, f *feature.Feature) error {
	numComp := f.NumComp()
	funIndex := f.FunIndex
	if numComp != 0 {
		funIndex = -1
	}
	name := strings.ReplaceAll(f.Name, " ", ":")

	_, err := fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
		numComp, funIndex, name,
		boolToInt(f.IsDistance), boolToInt(f.IsNormalized),
		formatFloat(f.NormP1), formatFloat(f.NormP2),
		f.TableIndex,
		boolToInt(f.IsSelected), boolToInt(f.IsNeeded), boolToInt(f.IsConverted),
		formatFloat(f.W),
	)
	return err
}

// tokenReader pulls whitespace-delimited tokens off r, the same way the
// source's "in >> x" chain does regardless of which line a value falls
// on.
type tokenReader struct {
	sc *bufio.Scanner
}

func newTokenReader(r io.Reader) *tokenReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)
	return &tokenReader{sc: sc}
}

func (t *tokenReader) next() (string, bool) {
	if t.sc.Scan() {
		return t.sc.Text(), true
	}
	return "", false
}

func (t *tokenReader) nextInt() (int, error) {
	tok, ok := t.next()
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.Atoi(tok)
}

func (t *tokenReader) nextInt64() (int64, error) {
	tok, ok := t.next()
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.ParseInt(tok, 10, 64)
}

func (t *tokenReader) nextFloat() (float64, error) {
	tok, ok := t.next()
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.ParseFloat(tok, 64)
}

func (t *tokenReader) nextBool() (bool, error) {
	v, err := t.nextInt()
	return v != 0, err
}

// Read parses a Model written by Write.
func Read(r io.Reader) (*Model, error) {
	t := newTokenReader(r)
	m := &Model{}

	var err error
	if m.K, err = t.nextInt(); err != nil {
		return nil, fmt.Errorf("model: reading k: %w", err)
	}
	if m.HistSize, err = t.nextInt(); err != nil {
		return nil, fmt.Errorf("model: reading histogram size: %w", err)
	}
	if m.AbsError, err = t.nextFloat(); err != nil {
		return nil, fmt.Errorf("model: reading absolute error: %w", err)
	}
	if m.MaxLength, err = t.nextInt64(); err != nil {
		return nil, fmt.Errorf("model: reading max length: %w", err)
	}
	for i := range m.Composition {
		if m.Composition[i], err = t.nextFloat(); err != nil {
			return nil, fmt.Errorf("model: reading composition[%d]: %w", i, err)
		}
	}

	nameFeatureMap := make(map[string]*feature.Feature)
	for {
		compNumTok, ok := t.next()
		if !ok {
			break
		}
		compNum, err := strconv.Atoi(compNumTok)
		if err != nil {
			return nil, fmt.Errorf("model: reading component count: %w", err)
		}

		funIndex, err := t.nextInt()
		if err != nil {
			return nil, fmt.Errorf("model: reading function index: %w", err)
		}
		name, ok := t.next()
		if !ok {
			return nil, io.ErrUnexpectedEOF
		}
		isDistance, err := t.nextBool()
		if err != nil {
			return nil, fmt.Errorf("model: reading is-distance: %w", err)
		}
		isNormalized, err := t.nextBool()
		if err != nil {
			return nil, fmt.Errorf("model: reading is-normalized: %w", err)
		}
		normP1, err := t.nextFloat()
		if err != nil {
			return nil, fmt.Errorf("model: reading norm min: %w", err)
		}
		normP2, err := t.nextFloat()
		if err != nil {
			return nil, fmt.Errorf("model: reading norm max: %w", err)
		}
		tableIndex, err := t.nextInt()
		if err != nil {
			return nil, fmt.Errorf("model: reading table index: %w", err)
		}
		isSelected, err := t.nextBool()
		if err != nil {
			return nil, fmt.Errorf("model: reading is-selected: %w", err)
		}
		isNeeded, err := t.nextBool()
		if err != nil {
			return nil, fmt.Errorf("model: reading is-needed: %w", err)
		}
		isConverted, err := t.nextBool()
		if err != nil {
			return nil, fmt.Errorf("model: reading is-converted: %w", err)
		}
		w, err := t.nextFloat()
		if err != nil {
			return nil, fmt.Errorf("model: reading weight: %w", err)
		}

		f, err := buildFeature(compNum, funIndex, name, isDistance, nameFeatureMap)
		if err != nil {
			return nil, err
		}

		f.IsNormalized = isNormalized
		f.NormP1 = normP1
		f.NormP2 = normP2
		f.TableIndex = tableIndex
		f.IsSelected = isSelected
		f.IsNeeded = isNeeded
		f.IsConverted = isConverted
		f.W = w

		nameFeatureMap[name] = f
		m.Features = append(m.Features, f)
	}

	return m, nil
}

func buildFeature(compNum, funIndex int, name string, isDistance bool, known map[string]*feature.Feature) (*feature.Feature, error) {
	switch compNum {
	case 0:
		return feature.NewSingle(funIndex, name, isDistance), nil
	case 1:
		base := extractSquaredName(name)
		comp, ok := known[base]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, base)
		}
		return feature.NewSquared(comp), nil
	case 2:
		first, second, err := extractPairedNames(name)
		if err != nil {
			return nil, err
		}
		a, ok := known[first]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, first)
		}
		b, ok := known[second]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, second)
		}
		return feature.NewPaired(a, b), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidComponentCount, compNum)
	}
}

// extractSquaredName recovers "kulczynski_2" from "kulczynski_2^2".
func extractSquaredName(name string) string {
	if i := strings.IndexByte(name, '^'); i >= 0 {
		return name[:i]
	}
	return name
}

// extractPairedNames recovers ("euclidean", "sim_ratio") from
// "euclidean:x:sim_ratio" - the first colon starts the separator only
// when it is immediately followed by "x:".
func extractPairedNames(name string) (string, string, error) {
	i := strings.IndexByte(name, ':')
	if i < 0 || i+3 > len(name) || name[i+1] != 'x' || name[i+2] != ':' {
		return "", "", fmt.Errorf("model: %q is not a paired feature name", name)
	}
	return name[:i], name[i+3:], nil
}
