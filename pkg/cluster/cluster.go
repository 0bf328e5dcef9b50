// Package cluster implements a single mean-shift cluster: its shifting
// representative (k-mer and monomer histogram means), the running
// identity list against a reference block, and the bookkeeping needed
// to merge sibling clusters and carry a mean across successive blocks.
package cluster

import (
	"errors"
	"math"
)

// ErrStaleIdentityList is returned by Shift when the identity list has
// not been recomputed since the representative last changed.
var ErrStaleIdentityList = errors.New("cluster: identity list is not up to date")

// Cluster is one mean-shift cluster: a representative k-mer/monomer
// histogram pair that shifts toward the weighted mean of whatever
// reference-block members currently score above threshold, plus the
// bookkeeping needed to carry that mean across blocks and merge
// siblings that turn out to be the same cluster.
type Cluster struct {
	kHistList    [][]int64
	monoHistList [][]uint64

	identityList      []float64
	isIdentityCurrent bool

	kHistMean    []int64
	monoHistMean []uint64

	kHistOld    []int64
	monoHistOld []uint64

	// contribution is the running count of points that have shifted
	// this mean, across this block and every earlier one.
	contribution int
	// oldContribution is the count baked into kHistOld/monoHistOld as
	// of the last UpdateAccumulatedMean call.
	oldContribution int
	// assignment is the number of points ever assigned to this cluster.
	assignment int

	threshold float64
	hasShifted bool

	memberList []int
}

// NewFromIndex seeds a cluster on sequence index's histograms within
// the reference block, with identityList the row of the all-vs-all
// matrix for that index (Equation 8 of Cheng 1995's initial centers).
func NewFromIndex(kHistList [][]int64, monoHistList [][]uint64, identityList []float64, threshold float64, index int) *Cluster {
	c := &Cluster{
		kHistList:         kHistList,
		monoHistList:      monoHistList,
		identityList:      identityList,
		isIdentityCurrent: true,
		threshold:         threshold,
		hasShifted:        true,
		kHistMean:         append([]int64(nil), kHistList[index]...),
		monoHistMean:      append([]uint64(nil), monoHistList[index]...),
	}
	return c
}

// NewCarriedOver builds a cluster whose representative was already
// computed from an earlier block (kHist/monoHist), with count prior
// members contributed to it and assign points ever assigned to it.
func NewCarriedOver(kHistList [][]int64, monoHistList [][]uint64, identityList []float64, threshold float64, kHist []int64, monoHist []uint64, count, assign int) *Cluster {
	c := &Cluster{
		kHistList:         kHistList,
		monoHistList:      monoHistList,
		identityList:      identityList,
		isIdentityCurrent: true,
		threshold:         threshold,
		hasShifted:        true,
		kHistMean:         append([]int64(nil), kHist...),
		monoHistMean:      append([]uint64(nil), monoHist...),
		kHistOld:          append([]int64(nil), kHist...),
		monoHistOld:       append([]uint64(nil), monoHist...),
		contribution:      count,
		oldContribution:   count,
		assignment:        assign,
	}
	return c
}

// ShiftWeighted recomputes the cluster's mean as the weighted average
// of every reference-block member whose identity to the current
// representative is at least threshold, blended with whatever mean was
// accumulated from earlier blocks (weighted by member count).
// ShiftWeighted requires the identity list to be current; call
// SetIdentityList first if the representative has moved.
func (c *Cluster) ShiftWeighted() error {
	if !c.isIdentityCurrent {
		return ErrStaleIdentityList
	}

	kHistSize := len(c.kHistMean)
	monoHistSize := len(c.monoHistMean)
	kSum := make([]float64, kHistSize)
	monoSum := make([]float64, monoHistSize)

	var n float64
	c.memberList = c.memberList[:0]

	for i, id := range c.identityList {
		if id < c.threshold {
			continue
		}
		n++
		c.memberList = append(c.memberList, i)

		kh := c.kHistList[i]
		for j := 0; j < kHistSize; j++ {
			kSum[j] += float64(kh[j])
		}
		mh := c.monoHistList[i]
		for j := 0; j < monoHistSize; j++ {
			monoSum[j] += float64(mh[j])
		}
	}

	if n >= 1.0 {
		if c.oldContribution > 1 {
			if c.kHistOld == nil || c.monoHistOld == nil {
				return errors.New("cluster: shift requires an old histogram but none was carried forward")
			}
			total := float64(c.oldContribution) + n
			oW := float64(c.oldContribution) / total
			nW := n / total
			nWByN := nW / n

			for j := 0; j < kHistSize; j++ {
				c.kHistMean[j] = int64(math.Round(nWByN*kSum[j] + oW*float64(c.kHistOld[j])))
			}
			for j := 0; j < monoHistSize; j++ {
				c.monoHistMean[j] = uint64(math.Round(nWByN*monoSum[j] + oW*float64(c.monoHistOld[j])))
			}
		} else {
			for j := 0; j < kHistSize; j++ {
				c.kHistMean[j] = int64(math.Round(kSum[j] / n))
			}
			for j := 0; j < monoHistSize; j++ {
				c.monoHistMean[j] = uint64(math.Round(monoSum[j] / n))
			}
		}
		c.hasShifted = true
	} else {
		c.hasShifted = false
	}

	c.contribution = int(n) + c.oldContribution
	return nil
}

// SetRepresentative replaces the cluster's mean histograms directly
// (used when a neighboring cluster's center turns out to be a better
// representative), marking the identity list stale unless isUpToDate.
func (c *Cluster) SetRepresentative(kHist []int64, monoHist []uint64, isUpToDate bool) {
	copy(c.kHistMean, kHist)
	copy(c.monoHistMean, monoHist)
	c.isIdentityCurrent = isUpToDate
}

// MergeSimple unions this cluster's member list with every cluster in
// others, and folds their contribution/oldContribution/assignment
// counters into this one.
func (c *Cluster) MergeSimple(others []*Cluster) {
	if len(others) == 0 {
		return
	}

	seen := make(map[int]struct{}, len(c.memberList))
	for _, m := range c.memberList {
		seen[m] = struct{}{}
	}

	for _, o := range others {
		c.contribution += o.contribution
		c.oldContribution += o.oldContribution
		c.assignment += o.assignment
		for _, m := range o.memberList {
			seen[m] = struct{}{}
		}
	}

	merged := make([]int, 0, len(seen))
	for m := range seen {
		merged = append(merged, m)
	}
	c.memberList = merged
}

// UpdateAccumulatedMean commits the current mean as the carried-over
// mean for the next block, and folds its contribution count into
// oldContribution.
func (c *Cluster) UpdateAccumulatedMean() {
	c.kHistOld = append(c.kHistOld[:0], c.kHistMean...)
	c.monoHistOld = append(c.monoHistOld[:0], c.monoHistMean...)
	c.oldContribution = c.contribution
}

// UpdateReferenceData points the cluster at a new reference block,
// marking the identity list stale (it was computed against the old
// block).
func (c *Cluster) UpdateReferenceData(kHistList [][]int64, monoHistList [][]uint64) {
	c.kHistList = kHistList
	c.monoHistList = monoHistList
	c.isIdentityCurrent = false
}

// SetIdentityList replaces the identity list with newList (the scores
// between this cluster's current representative and the reference
// block) and marks it current.
func (c *Cluster) SetIdentityList(newList []float64) {
	c.identityList = newList
	c.isIdentityCurrent = true
}

// KHistMean is the cluster's current k-mer histogram representative.
func (c *Cluster) KHistMean() []int64 { return c.kHistMean }

// MonoHistMean is the cluster's current monomer histogram representative.
func (c *Cluster) MonoHistMean() []uint64 { return c.monoHistMean }

// KHistOld is the k-mer histogram representative carried over from
// earlier blocks (nil until UpdateAccumulatedMean has run once).
func (c *Cluster) KHistOld() []int64 { return c.kHistOld }

// MonoHistOld is the monomer histogram representative carried over
// from earlier blocks.
func (c *Cluster) MonoHistOld() []uint64 { return c.monoHistOld }

// IdentityList is the identity score of every reference-block member
// against the current representative.
func (c *Cluster) IdentityList() []float64 { return c.identityList }

// Contribution is the running count of points that have shifted this
// mean, across this block and every earlier one.
func (c *Cluster) Contribution() int { return c.contribution }

// OldContribution is the member count baked into the carried-over mean.
func (c *Cluster) OldContribution() int { return c.oldContribution }

// Length estimates the represented sequence's length from the sum of
// its monomer histogram.
func (c *Cluster) Length() int { return sumUint64(c.monoHistMean) }

// OldLength is the same estimate for the carried-over representative.
func (c *Cluster) OldLength() int { return sumUint64(c.monoHistOld) }

func sumUint64(v []uint64) int {
	var s uint64
	for _, x := range v {
		s += x
	}
	return int(s)
}

// IncrementAssignment records one more point assigned to this cluster.
func (c *Cluster) IncrementAssignment() { c.assignment++ }

// Assignment is the number of points ever assigned to this cluster.
func (c *Cluster) Assignment() int { return c.assignment }

// IsIdentityCurrent reports whether the identity list reflects the
// current representative.
func (c *Cluster) IsIdentityCurrent() bool { return c.isIdentityCurrent }

// HasShifted reports whether the last ShiftWeighted call moved the
// representative (false means no reference-block member was within
// threshold).
func (c *Cluster) HasShifted() bool { return c.hasShifted }

// MemberList is the set of reference-block indices currently within
// threshold of this cluster's representative.
func (c *Cluster) MemberList() []int { return c.memberList }

// ClearMemberList empties the member list without affecting counters.
func (c *Cluster) ClearMemberList() { c.memberList = c.memberList[:0] }
