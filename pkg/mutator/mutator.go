// Package mutator produces mutated copies of a nucleotide sequence at a
// requested identity rate, using a mixed single-point/block mutation model,
// for building synthetic training data.
package mutator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Mutation names one of the eight mutation types the model can draw.
type Mutation int

const (
	Insertion Mutation = iota
	Deletion
	Mismatch
	BInsertion
	BDeletion
	Duplication
	Inversion
	Translocation
)

// ErrNoMutationTypes is returned when MutateSequence is called before any
// mutation category has been enabled.
var ErrNoMutationTypes = errors.New("mutator: no mutation types were enabled")

// ErrInvalidRate is returned for a requested mutation rate outside [0,1].
var ErrInvalidRate = errors.New("mutator: mutation rate must be in [0,1]")

// segment is a maximal run [start,end] (inclusive) free of the unknown byte.
type segment struct {
	start, end int
}

// Mutator holds the state needed to draw repeatable mutated copies of one
// input sequence: its nucleotide composition, its valid segments, the set
// of enabled mutation types, and a seeded PRNG.
type Mutator struct {
	original    string
	composition [4]float64 // A, C, G, T fractions
	segments    []segment
	effLen      int
	unknown     byte

	minBlock, maxBlock int

	enabled []Mutation

	rng *rand.Rand

	translocationFactor float64
	inversionFactor     float64

	aLimit, cLimit, gLimit float64
}

// New builds a Mutator over seq, deriving the nucleotide composition from
// seq itself. maxBlock must be > 1; minBlock must be > 1 and no larger
// than maxBlock.
func New(seq string, maxBlock, minBlock int, seed int64) (*Mutator, error) {
	return newMutator(seq, maxBlock, minBlock, seed, nil)
}

// NewWithComposition is the same as New but takes an externally supplied
// 4-element [A,C,G,T] composition vector instead of deriving it from seq.
func NewWithComposition(seq string, maxBlock, minBlock int, seed int64, composition [4]float64) (*Mutator, error) {
	return newMutator(seq, maxBlock, minBlock, seed, &composition)
}

func newMutator(seq string, maxBlock, minBlock int, seed int64, composition *[4]float64) (*Mutator, error) {
	if maxBlock <= 1 {
		return nil, fmt.Errorf("mutator: maximum block size must be > 1, got %d", maxBlock)
	}
	if minBlock <= 1 {
		return nil, fmt.Errorf("mutator: minimum block size must be > 1, got %d", minBlock)
	}
	if minBlock > maxBlock {
		return nil, fmt.Errorf("mutator: minimum block size %d cannot exceed maximum %d", minBlock, maxBlock)
	}

	m := &Mutator{
		original:            seq,
		unknown:             'N',
		minBlock:            minBlock,
		maxBlock:            maxBlock,
		rng:                 rand.New(rand.NewSource(seed)),
		translocationFactor: 1.0,
		inversionFactor:     1.0,
	}

	if composition != nil {
		m.composition = *composition
	} else {
		m.composition = deriveComposition(seq)
	}

	start := -1
	for i := 0; i < len(seq); i++ {
		if seq[i] != m.unknown && start == -1 {
			start = i
		} else if seq[i] == m.unknown && start != -1 {
			m.segments = append(m.segments, segment{start, i - 1})
			start = -1
		}
	}
	if start != -1 {
		m.segments = append(m.segments, segment{start, len(seq) - 1})
	}
	if len(m.segments) == 0 {
		return nil, errors.New("mutator: at least one valid segment is required")
	}
	for _, s := range m.segments {
		m.effLen += s.end - s.start + 1
	}

	m.aLimit = m.composition[0]
	m.cLimit = m.composition[0] + m.composition[1]
	m.gLimit = m.composition[0] + m.composition[1] + m.composition[2]

	return m, nil
}

func deriveComposition(seq string) [4]float64 {
	var c [4]float64
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A', 'a':
			c[0]++
		case 'C', 'c':
			c[1]++
		case 'G', 'g':
			c[2]++
		case 'T', 't':
			c[3]++
		}
	}
	n := float64(len(seq))
	for i := range c {
		c[i] /= n
	}
	return c
}

// EnableSinglePoint turns on DELETION and MISMATCH.
func (m *Mutator) EnableSinglePoint() {
	m.enabled = append(m.enabled, Deletion, Mismatch)
}

// EnableBlock turns on B_DELETION and DUPLICATION.
func (m *Mutator) EnableBlock() {
	m.enabled = append(m.enabled, BDeletion, Duplication)
}

// EnableInversion turns on INVERSION.
func (m *Mutator) EnableInversion() {
	m.enabled = append(m.enabled, Inversion)
}

// EnableTranslocation turns on TRANSLOCATION, adding B_DELETION too if it is
// not already enabled (translocation replays a prior block deletion).
func (m *Mutator) EnableTranslocation() {
	m.enabled = append(m.enabled, Translocation)
	hasBDel := false
	for _, t := range m.enabled {
		if t == BDeletion {
			hasBDel = true
			break
		}
	}
	if !hasBDel {
		m.enabled = append(m.enabled, BDeletion)
	}
}

func (m *Mutator) randomNucleotide() byte {
	p := m.rng.Float64()
	switch {
	case p <= m.aLimit:
		return 'A'
	case p <= m.cLimit:
		return 'C'
	case p <= m.gLimit:
		return 'G'
	default:
		return 'T'
	}
}

// deletedBlock records a prior B_DELETION's coordinates so a subsequent
// TRANSLOCATION can replay it.
type deletedBlock struct {
	start, end int // inclusive, in original-sequence coordinates
}

// MutateSequence draws a mutated copy of the sequence that targets the
// given mutation rate, returning the mutated sequence and its true
// (match_count/aligned_length) identity. Not safe for concurrent use.
func (m *Mutator) MutateSequence(rate float64) (string, float64, error) {
	if rate < 0 || rate > 1 {
		return "", 0, ErrInvalidRate
	}
	if len(m.enabled) == 0 {
		return "", 0, ErrNoMutationTypes
	}

	mutationTotal := int(math.Round(rate * float64(len(m.original))))
	if mutationTotal > m.effLen {
		mutationTotal = m.effLen
	}
	oLen := len(m.original)

	var out strings.Builder
	out.Grow(oLen + mutationTotal)

	if mutationTotal < 1 {
		out.WriteString(m.original)
		return out.String(), 1.0, nil
	}

	var deleteList []deletedBlock
	interval := float64(m.effLen) / float64(mutationTotal)

	alignLen := float64(oLen)
	matchNum := float64(oLen)

	segIndex := 0
	segStart := m.segments[0].start
	segEnd := m.segments[0].end
	segNum := len(m.segments)

	mutationRemaining := mutationTotal
	skipped := 0

	for i := 0; i-skipped < mutationTotal; {
		index := int(float64(i) * interval)
		if index >= oLen {
			break
		}
		oldIndex := index

		for i < mutationTotal && index < oLen && m.original[index] == m.unknown {
			i++
			index = int(float64(i) * interval)
			skipped++
		}
		if index >= oLen || (index < oLen && m.original[index] == m.unknown) {
			out.WriteString(m.original[oldIndex:])
			break
		}
		if index != oldIndex {
			out.WriteString(m.original[oldIndex:index])
		}

		for !(index >= segStart && index <= segEnd) && segIndex < segNum-1 {
			segIndex++
			segStart = m.segments[segIndex].start
			segEnd = m.segments[segIndex].end
		}
		if !(index >= segStart && index <= segEnd) {
			return "", 0, errors.New("mutator: index not in segment")
		}

		mutationType := m.enabled[m.rng.Intn(len(m.enabled))]
		for mutationType == Translocation && len(deleteList) == 0 {
			mutationType = m.enabled[m.rng.Intn(len(m.enabled))]
		}

		var randBlockSize, nextIndex int
		if mutationType > Mismatch {
			randBlockSize = m.minBlock + m.rng.Intn(m.maxBlock-m.minBlock+1)
			if randBlockSize > mutationRemaining {
				randBlockSize = mutationRemaining
			}
			if index+randBlockSize > segEnd+1 {
				randBlockSize = segEnd - index + 1
			}
			nextIndex = int(float64(i+randBlockSize) * interval)
			mutationRemaining -= randBlockSize
		} else {
			randBlockSize = 1
			nextIndex = int(float64(i+1) * interval)
			mutationRemaining--
		}
		if mutationRemaining == 0 || nextIndex > oLen {
			nextIndex = oLen
		}
		if nextIndex < index {
			return "", 0, errors.New("mutator: next index cannot be less than the current index")
		}

		isBlockMutation := true
		switch mutationType {
		case Insertion:
			isBlockMutation = false
			out.WriteByte(m.randomNucleotide())
			out.WriteString(m.original[index:nextIndex])
			alignLen++
		case Deletion:
			isBlockMutation = false
			out.WriteString(m.original[index+1 : nextIndex])
			matchNum--
		case Mismatch:
			isBlockMutation = false
			r := m.randomNucleotide()
			out.WriteByte(r)
			out.WriteString(m.original[index+1 : nextIndex])
			if r != m.original[index] {
				matchNum--
			}
		case BInsertion:
			for h := 0; h < randBlockSize; h++ {
				out.WriteByte(m.randomNucleotide())
			}
			out.WriteString(m.original[index:nextIndex])
			alignLen += float64(randBlockSize)
		case BDeletion:
			out.WriteString(m.original[index+randBlockSize : nextIndex])
			deleteList = append(deleteList, deletedBlock{index, index + randBlockSize - 1})
			matchNum -= float64(randBlockSize)
		case Duplication:
			out.WriteString(m.original[index : index+randBlockSize])
			out.WriteString(m.original[index:nextIndex])
			alignLen += float64(randBlockSize)
		case Inversion:
			seg := make([]byte, randBlockSize)
			for h := 0; h < randBlockSize; h++ {
				seg[h] = m.original[index+randBlockSize-1-h]
			}
			out.Write(seg)
			out.WriteString(m.original[index+randBlockSize : nextIndex])
			mismatch := 0.0
			for h := index; h < index+randBlockSize; h++ {
				if m.original[h] != seg[h-index] {
					mismatch++
				}
			}
			matchNum -= math.Round(mismatch * m.inversionFactor)
		case Translocation:
			blk := deleteList[len(deleteList)-1]
			out.WriteString(m.original[blk.start : blk.end+1])
			out.WriteString(m.original[index:nextIndex])
			deleteList = deleteList[:len(deleteList)-1]
			matchNum += math.Round(float64(randBlockSize) * m.translocationFactor)
		default:
			return "", 0, fmt.Errorf("mutator: undefined mutation type %d", mutationType)
		}

		if isBlockMutation {
			i += randBlockSize
		} else {
			i++
		}
	}

	identity := matchNum / alignLen
	result := strings.ToUpper(out.String())
	return result, identity, nil
}
