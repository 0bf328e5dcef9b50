package meanshift

import (
	"errors"
	"fmt"
	"math"
)

// ErrIdenticalClusters is returned when the center-vs-center matrix shows
// two supposedly distinct clusters scoring a perfect identity, which
// cannot happen once merging has converged.
var ErrIdenticalClusters = errors.New("meanshift: two clusters score as identical")

// Evaluator computes cluster-quality metrics from the final
// center-vs-center identity matrix and the per-cluster membership
// records built during the final assignment pass.
type Evaluator struct {
	ava     [][]float64
	cluster []*ClusterInfo
	total   int
}

// NewEvaluator builds an Evaluator. ava is the square center-vs-center
// identity matrix, clusters the final non-empty ClusterInfo list, and
// total the number of sequences considered during assignment.
func NewEvaluator(ava [][]float64, clusters []*ClusterInfo, total int) *Evaluator {
	return &Evaluator{ava: ava, cluster: clusters, total: total}
}

// DaviesBouldin is the mean, over every cluster i, of the maximum over
// j≠i of (intra_i+intra_j)/(1-id(i,j)): lower is better separation.
func (e *Evaluator) DaviesBouldin() (float64, error) {
	n := len(e.cluster)
	if n == 0 {
		return math.Inf(1), nil
	}

	var sum float64
	for i := 0; i < n; i++ {
		max := -10000.0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if e.ava[i][j] >= 1.0 {
				return 0, fmt.Errorf("%w: clusters %d and %d score %f", ErrIdenticalClusters, i, j, e.ava[i][j])
			}
			d := (e.cluster[i].Intra() + e.cluster[j].Intra()) / (1.0 - e.ava[i][j])
			if d > max {
				max = d
			}
		}
		sum += max
	}
	return sum / float64(n), nil
}

// Dunn is (1 - the highest off-diagonal identity) divided by the largest
// per-cluster intra distance: higher is better.
func (e *Evaluator) Dunn() float64 {
	maxScore := -1.0
	for r := range e.ava {
		for c := range e.ava[r] {
			if r != c && e.ava[r][c] > maxScore {
				maxScore = e.ava[r][c]
			}
		}
	}
	minInter := 1.0 - maxScore

	maxIntra := -1.0
	for _, c := range e.cluster {
		if intra := c.Intra(); intra > maxIntra {
			maxIntra = intra
		}
	}

	if maxIntra <= 0 {
		return math.Inf(1)
	}
	return minInter / maxIntra
}

// Silhouette averages every member's silhouette value across all
// clusters: higher is better.
func (e *Evaluator) Silhouette() float64 {
	var s float64
	var c int
	for _, ci := range e.cluster {
		s += ci.Silhouette()
		c += ci.Size()
	}
	if c == 0 {
		return math.Inf(1)
	}
	return s / float64(c)
}

// ClusterRatio is the fraction of sequences that ended up in some
// cluster, i.e. coverage.
func (e *Evaluator) ClusterRatio() float64 {
	var clustered float64
	for _, c := range e.cluster {
		clustered += float64(c.Size())
	}
	return clustered / float64(e.total)
}

// Intra is 1 minus the mean per-cluster intra distance.
func (e *Evaluator) Intra() float64 {
	if len(e.cluster) == 0 {
		return 1
	}
	var sum float64
	for _, c := range e.cluster {
		sum += c.Intra()
	}
	return 1.0 - sum/float64(len(e.cluster))
}

// Inter is the mean, over every cluster, of its identity to the closest
// other cluster.
func (e *Evaluator) Inter() (float64, error) {
	rowNum := len(e.ava)
	var sum float64
	for r := 0; r < rowNum; r++ {
		maxID := -1.0
		for c := range e.ava[r] {
			if r != c && e.ava[r][c] > maxID {
				maxID = e.ava[r][c]
			}
		}
		if maxID < 0.0 || maxID > 1.0 {
			return 0, fmt.Errorf("meanshift: cannot determine inter-cluster score, max identity = %f", maxID)
		}
		sum += maxID
	}
	if rowNum == 0 {
		return 0, nil
	}
	return sum / float64(rowNum), nil
}

// Report bundles every evaluation metric plus the composite quality
// score for human consumption.
type Report struct {
	DaviesBouldin float64
	Dunn          float64
	Silhouette    float64
	Intra         float64
	Inter         float64
	Quality       float64
	Coverage      float64
}

// Evaluate computes every metric and the composite quality score
// (1/db · dunn · (1+sil)/2 · intra · (1-inter))^(1/5).
func (e *Evaluator) Evaluate() (Report, error) {
	db, err := e.DaviesBouldin()
	if err != nil {
		return Report{}, err
	}
	dunn := e.Dunn()
	sil := e.Silhouette()
	intra := e.Intra()
	inter, err := e.Inter()
	if err != nil {
		return Report{}, err
	}
	ratio := e.ClusterRatio()

	quality := math.Pow((1/db)*dunn*((1+sil)/2.0)*intra*(1-inter), 1.0/5.0)

	return Report{
		DaviesBouldin: db,
		Dunn:          dunn,
		Silhouette:    sil,
		Intra:         intra,
		Inter:         inter,
		Quality:       quality,
		Coverage:      ratio,
	}, nil
}
