// Package meanshift drives the mean-shift clustering loop over a block of
// precomputed sequence histograms: seeding one cluster per sequence from an
// all-vs-all identity matrix, then repeatedly shifting, merging, and
// re-selecting representatives until the cluster count stabilizes.
package meanshift

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bioinformaticstoolsmith/identity/pkg/cluster"
	"github.com/bioinformaticstoolsmith/identity/pkg/predictor"
)

// ErrCanAssignRequired is returned by Run when more than one iteration is
// requested without allowing assignment bookkeeping, which the algorithm
// needs in order to detect convergence between iterations.
var ErrCanAssignRequired = errors.New("meanshift: canAssign must be true when itrNum > 1")

// ErrMergedGrewClusterList is an internal invariant violation: merging can
// only ever shrink (or preserve) the number of clusters.
var ErrMergedGrewClusterList = errors.New("meanshift: merged cluster list grew")

// ErrNotYetAssigned is returned by FindUnassigned before Run has ever
// performed an assignment pass.
var ErrNotYetAssigned = errors.New("meanshift: assignment has not run yet")

// MaxIterations is the hard cap on shift/merge iterations per block,
// matching the source's ms_itr ceiling.
const MaxIterations = 100

// Block is the minimal view over a block of sequence histograms that
// MeanShift needs: parallel slices indexed by sequence position.
type Block struct {
	Headers  []string
	KHist    [][]int64
	MonoHist [][]uint64
	Lengths  []int
}

func (b *Block) size() int { return len(b.Headers) }

// MeanShift clusters one block of sequences, holding the live cluster list
// and the reference data it was built against.
type MeanShift struct {
	pred      *predictor.Predictor
	threshold float64

	// mergeThreshold is the original, pre-relaxation threshold used only
	// by the merge step; threshold itself is lowered by the predictor's
	// error margin once clustering starts, widening what shift/assign
	// treat as a match.
	mergeThreshold float64
	errorMargin    float64
	isLowIdentity  bool

	block *Block

	clusterList []*cluster.Cluster

	assignList []int
	hasAssigned bool

	workerNum int
}

// New seeds a MeanShift over block: computes the full identity matrix and
// creates one cluster per sequence, then runs the shift/merge loop for up
// to itrNum iterations (capped at MaxIterations), removing empty clusters
// once it settles.
func New(pred *predictor.Predictor, block *Block, threshold float64, errorMargin float64, workerNum int, itrNum int) (*MeanShift, error) {
	if workerNum < 1 {
		workerNum = 1
	}
	if itrNum > MaxIterations {
		itrNum = MaxIterations
	}

	ms := &MeanShift{
		pred:           pred,
		threshold:      threshold - errorMargin,
		mergeThreshold: threshold,
		errorMargin:    errorMargin,
		isLowIdentity:  threshold <= 0.7,
		block:          block,
		workerNum:      workerNum,
	}

	if err := ms.initClusters(); err != nil {
		return nil, err
	}
	if err := ms.Run(itrNum, true); err != nil {
		return nil, err
	}
	ms.RemoveEmpty()
	return ms, nil
}

// initClusters computes the all-vs-all identity matrix for the block and
// seeds one cluster per sequence, row i becoming cluster i's identity list.
func (ms *MeanShift) initClusters() error {
	n := ms.block.size()
	ms.clusterList = make([]*cluster.Cluster, n)

	rows, err := ms.allVsAll(ms.block.KHist, ms.block.MonoHist, ms.block.Lengths)
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		ms.clusterList[i] = cluster.NewFromIndex(ms.block.KHist, ms.block.MonoHist, rows[i], ms.threshold, i)
	}
	return nil
}

// allVsAll scores every row of (kHist, monoHist, lengths) against the
// block's own reference data, returning one identity row per input index.
func (ms *MeanShift) allVsAll(kHist [][]int64, monoHist [][]uint64, lengths []int) ([][]float64, error) {
	m := len(kHist)
	n := ms.block.size()
	rows := make([][]float64, m)

	var wg sync.WaitGroup
	sem := make(chan struct{}, ms.workerNum)
	var firstErr error
	var mu sync.Mutex

	for i := 0; i < m; i++ {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			row := make([]float64, n)
			for j := 0; j < n; j++ {
				res, err := ms.pred.Score(kHist[i], ms.block.KHist[j], monoHist[i], ms.block.MonoHist[j], lengths[i], ms.block.Lengths[j])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				row[j] = res
			}
			rows[i] = row
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return rows, nil
}

// scoreOneVsMany scores a single (kHist, monoHist, length) representative
// against every entry of the given parallel slices.
func (ms *MeanShift) scoreOneVsMany(kHist []int64, monoHist []uint64, length int, otherK [][]int64, otherM [][]uint64, otherLen []int) ([]float64, error) {
	n := len(otherK)
	out := make([]float64, n)

	var wg sync.WaitGroup
	sem := make(chan struct{}, ms.workerNum)
	var firstErr error
	var mu sync.Mutex

	for j := 0; j < n; j++ {
		j := j
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := ms.pred.Score(kHist, otherK[j], monoHist, otherM[j], length, otherLen[j])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			out[j] = res
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Run executes the shift/merge/rep-select loop for up to itrNum
// iterations, stopping early once the cluster count has been stable for
// two consecutive iterations. When canAssign is true, each iteration also
// refreshes stale identity lists and a final assignment pass runs at the
// end; canAssign must be true whenever itrNum > 1.
func (ms *MeanShift) Run(itrNum int, canAssign bool) error {
	if itrNum > 1 && !canAssign {
		return ErrCanAssignRequired
	}

	oldClusterNumber := len(ms.clusterList)
	stableCount := 0

	for i := 0; i < itrNum; i++ {
		ms.shift()

		if ms.isLowIdentity {
			if err := ms.selectRepresentative(); err != nil {
				return err
			}
			if err := ms.mergeGreedy(); err != nil {
				return err
			}
		} else {
			if err := ms.mergeGreedy(); err != nil {
				return err
			}
			if err := ms.selectRepresentative(); err != nil {
				return err
			}
		}

		if canAssign {
			if err := ms.updateIdentityLists(); err != nil {
				return err
			}
		}

		newClusterNumber := len(ms.clusterList)
		if newClusterNumber == oldClusterNumber {
			stableCount++
		} else {
			stableCount = 0
		}
		if stableCount == 2 {
			break
		}
		oldClusterNumber = newClusterNumber
	}

	if canAssign {
		if err := ms.assign(); err != nil {
			return err
		}
	}
	return nil
}

// shift moves every cluster's representative toward the weighted mean of
// its current members, in parallel.
func (ms *MeanShift) shift() {
	var wg sync.WaitGroup
	sem := make(chan struct{}, ms.workerNum)
	for _, c := range ms.clusterList {
		c := c
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			// Clusters only ever reach here with a current identity list;
			// a stale one is a bug upstream, not a runtime condition to
			// recover from.
			_ = c.ShiftWeighted()
		}()
	}
	wg.Wait()
}

// selectRepresentative picks, for every cluster that shifted, whichever of
// its current members (or its prior representative) has the highest
// identity to the new synthetic mean, and adopts that as the cluster's
// representative histogram.
func (ms *MeanShift) selectRepresentative() error {
	var firstErr error
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, ms.workerNum)

	for _, c := range ms.clusterList {
		c := c
		if !c.HasShifted() {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			members := c.MemberList()
			m := len(members)
			kList := make([][]int64, m)
			mList := make([][]uint64, m)
			lList := make([]int, m)
			for x, idx := range members {
				kList[x] = ms.block.KHist[idx]
				mList[x] = ms.block.MonoHist[idx]
				lList[x] = ms.block.Lengths[idx]
			}

			v, err := ms.scoreOneVsMany(c.KHistMean(), c.MonoHistMean(), c.Length(), kList, mList, lList)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			h := -1.0
			if c.KHistOld() != nil && c.MonoHistOld() != nil {
				res, err := ms.pred.Score(c.KHistMean(), c.KHistOld(), c.MonoHistMean(), c.MonoHistOld(), c.Length(), c.OldLength())
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				h = res
			}

			max := h
			index := -1
			for e, score := range v {
				if score > max {
					max = score
					index = e
				}
			}

			if index >= 0 {
				c.SetRepresentative(kList[index], mList[index], false)
			} else {
				c.SetRepresentative(c.KHistOld(), c.MonoHistOld(), true)
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return nil
}

// mergeGreedy processes clusters in index order: each still-unmerged
// cluster collects every later unmerged cluster within mergeThreshold of
// its representative, then the one with the highest contribution among
// that set survives and absorbs the rest.
func (ms *MeanShift) mergeGreedy() error {
	s := len(ms.clusterList)
	merged := make([]*cluster.Cluster, 0, s)
	remaining := make([]bool, s)
	for i := range remaining {
		remaining[i] = true
	}

	for i := 0; i < s; i++ {
		if !remaining[i] {
			continue
		}
		remaining[i] = false
		c := ms.clusterList[i]
		merged = append(merged, c)

		var indexList []int
		for h := i + 1; h < s; h++ {
			if remaining[h] {
				indexList = append(indexList, h)
			}
		}
		r := len(indexList)
		if r == 0 {
			break
		}

		kList := make([][]int64, r)
		monoList := make([][]uint64, r)
		cLenList := make([]int, r)
		for y, idx := range indexList {
			other := ms.clusterList[idx]
			kList[y] = other.KHistMean()
			monoList[y] = other.MonoHistMean()
			cLenList[y] = other.Length()
		}

		idList, err := ms.scoreOneVsMany(c.KHistMean(), c.MonoHistMean(), c.Length(), kList, monoList, cLenList)
		if err != nil {
			return err
		}

		var similar []*cluster.Cluster
		for u, id := range idList {
			if id >= ms.mergeThreshold {
				similar = append(similar, ms.clusterList[indexList[u]])
				remaining[indexList[u]] = false
			}
		}

		if len(similar) > 0 {
			similar = append(similar, c)
			maxContribution := similar[0].Contribution()
			survivorIdx := 0
			for a := 1; a < len(similar); a++ {
				if w := similar[a].Contribution(); w > maxContribution {
					maxContribution = w
					survivorIdx = a
				}
			}
			survivor := similar[survivorIdx]
			rest := append(similar[:survivorIdx:survivorIdx], similar[survivorIdx+1:]...)
			survivor.MergeSimple(rest)
			merged[len(merged)-1] = survivor
		}
	}

	if len(ms.clusterList) < len(merged) {
		return fmt.Errorf("%w: %d vs %d", ErrMergedGrewClusterList, len(merged), len(ms.clusterList))
	}
	ms.clusterList = merged
	return nil
}

// updateIdentityLists recomputes a cluster's identity list against the
// whole block whenever its representative changed and the list went
// stale.
func (ms *MeanShift) updateIdentityLists() error {
	for _, c := range ms.clusterList {
		if c.IsIdentityCurrent() {
			continue
		}
		v, err := ms.scoreOneVsMany(c.KHistMean(), c.MonoHistMean(), c.Length(), ms.block.KHist, ms.block.MonoHist, ms.block.Lengths)
		if err != nil {
			return err
		}
		c.SetIdentityList(v)
	}
	return nil
}

// UpdateAccumulatedMean commits every cluster's current mean as its
// carried-over mean, ready for the next block.
func (ms *MeanShift) UpdateAccumulatedMean() {
	for _, c := range ms.clusterList {
		c.UpdateAccumulatedMean()
	}
}

// assign picks, for every in-block point, the cluster with the highest
// identity at or above threshold, and increments that cluster's
// assignment count.
func (ms *MeanShift) assign() error {
	n := ms.block.size()
	ms.assignList = make([]int, n)
	for i := range ms.assignList {
		ms.assignList[i] = -1
	}
	scoreList := make([]float64, n)
	for i := range scoreList {
		scoreList[i] = -1.0
	}

	for ci, c := range ms.clusterList {
		idList := c.IdentityList()
		for j := 0; j < n; j++ {
			if idList[j] >= ms.threshold && idList[j] > scoreList[j] {
				ms.assignList[j] = ci
				scoreList[j] = idList[j]
			}
		}
	}

	for _, ci := range ms.assignList {
		if ci > -1 {
			ms.clusterList[ci].IncrementAssignment()
		}
	}
	ms.hasAssigned = true
	return nil
}

// RemoveSingles drops every cluster whose contribution never exceeded 1,
// i.e. clusters that no other point ever shifted into.
func (ms *MeanShift) RemoveSingles() {
	kept := ms.clusterList[:0]
	for _, c := range ms.clusterList {
		if c.Contribution() > 1 {
			kept = append(kept, c)
		}
	}
	ms.clusterList = kept
}

// RemoveEmpty drops every cluster with no points ever assigned to it.
func (ms *MeanShift) RemoveEmpty() {
	kept := ms.clusterList[:0]
	for _, c := range ms.clusterList {
		if c.Assignment() > 0 {
			kept = append(kept, c)
		}
	}
	ms.clusterList = kept
}

// UpdateReferenceData swaps in a new block as the reference data, pointing
// every surviving cluster at it (marking their identity lists stale) and
// recomputing those lists immediately.
func (ms *MeanShift) UpdateReferenceData(block *Block) error {
	ms.block = block
	for _, c := range ms.clusterList {
		c.UpdateReferenceData(block.KHist, block.MonoHist)
	}
	return ms.updateIdentityLists()
}

// AddClusters scores each of others' representatives against the current
// block and injects them as new candidate centers, ready to take part in
// the next shift.
func (ms *MeanShift) AddClusters(others []*cluster.Cluster) error {
	for _, c := range others {
		idList, err := ms.scoreOneVsMany(c.KHistMean(), c.MonoHistMean(), c.Length(), ms.block.KHist, ms.block.MonoHist, ms.block.Lengths)
		if err != nil {
			return err
		}
		h := cluster.NewCarriedOver(ms.block.KHist, ms.block.MonoHist, idList, ms.threshold, c.KHistMean(), c.MonoHistMean(), c.Contribution(), c.Assignment())
		ms.clusterList = append(ms.clusterList, h)
	}
	return nil
}

// UnassignedData is a copy of every block point no cluster claimed, ready
// to seed a Reservoir.
type UnassignedData struct {
	Headers  []string
	KHist    [][]int64
	MonoHist [][]uint64
	Lengths  []int
}

// FindUnassigned returns copies of every block point whose assignment is
// still -1. Run (with canAssign true) must have executed at least once.
func (ms *MeanShift) FindUnassigned() (*UnassignedData, error) {
	if !ms.hasAssigned {
		return nil, ErrNotYetAssigned
	}

	u := &UnassignedData{}
	for j, ci := range ms.assignList {
		if ci != -1 {
			continue
		}
		u.Headers = append(u.Headers, ms.block.Headers[j])
		u.KHist = append(u.KHist, append([]int64(nil), ms.block.KHist[j]...))
		u.MonoHist = append(u.MonoHist, append([]uint64(nil), ms.block.MonoHist[j]...))
		u.Lengths = append(u.Lengths, ms.block.Lengths[j])
	}
	return u, nil
}

// CalcAllCenterVsAllCenter scores every cluster's representative against
// every other's, returning a dense row-major identity matrix sized by the
// number of surviving clusters.
func (ms *MeanShift) CalcAllCenterVsAllCenter() ([][]float64, error) {
	s := len(ms.clusterList)
	kList := make([][]int64, s)
	monoList := make([][]uint64, s)
	lenList := make([]int, s)
	for i, c := range ms.clusterList {
		kList[i] = c.KHistMean()
		monoList[i] = c.MonoHistMean()
		lenList[i] = c.Length()
	}

	return ms.allVsAllAmong(kList, monoList, lenList)
}

func (ms *MeanShift) allVsAllAmong(kHist [][]int64, monoHist [][]uint64, lengths []int) ([][]float64, error) {
	n := len(kHist)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, ms.workerNum)
	var firstErr error
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			for j := 0; j < n; j++ {
				if i == j {
					rows[i][j] = 1.0
					continue
				}
				res, err := ms.pred.Score(kHist[i], kHist[j], monoHist[i], monoHist[j], lengths[i], lengths[j])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				rows[i][j] = res
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return rows, nil
}

// ClusterList returns the clusters currently live in this block.
func (ms *MeanShift) ClusterList() []*cluster.Cluster { return ms.clusterList }
