package meanshift

import (
	"fmt"

	"github.com/bioinformaticstoolsmith/identity/pkg/cluster"
	"github.com/bioinformaticstoolsmith/identity/pkg/fasta"
	"github.com/bioinformaticstoolsmith/identity/pkg/kmer"
	"github.com/bioinformaticstoolsmith/identity/pkg/predictor"
	"github.com/bioinformaticstoolsmith/identity/pkg/scoring"
)

// ErrReservoirNotDrained is an internal invariant violation: the
// reservoir must be fully drained by the time a pass finishes.
var ErrReservoirNotDrained = fmt.Errorf("meanshift: reservoir is not empty at the end of a pass")

// LargeConfig bundles the fixed inputs driving a streaming, multi-pass
// clustering run over a file too big to hold as one in-memory block.
type LargeConfig struct {
	K          int
	Width      kmer.Width
	BlockSize  int
	VBlockSize int
	PassNum    int
	Threshold  float64

	// ErrorMargin is the predictor's error bound, used to relax the
	// clustering threshold during shift/assign and to decide "extended"
	// membership in the final assignment pass.
	ErrorMargin float64

	WorkerNum int

	CanAssignAll bool
	CanRelax     bool
	CanEvaluate  bool
}

// Large drives mean-shift clustering over a database file in multiple
// passes, using a Reservoir to carry unassigned sequences between blocks
// that are individually too small to see the whole structure.
type Large struct {
	cfg  LargeConfig
	pred *predictor.Predictor

	ms        *MeanShift
	reservoir *Reservoir

	dbPath string
	seqNum int
}

func toMeanShiftBlock(b *scoring.Block) *Block {
	return &Block{Headers: b.Headers, KHist: b.KHist, MonoHist: b.MonoHist, Lengths: b.Lengths}
}

// NewLarge opens dbPath and runs the full clustering sequence described
// by spec §4.12: an initial block clustered in isolation, then up to
// cfg.PassNum refinement passes that fold in reservoir-drained candidate
// centers, stopping early once a pass leaves the cluster count unchanged.
func NewLarge(cfg LargeConfig, pred *predictor.Predictor, dbPath string) (*Large, error) {
	if cfg.WorkerNum < 1 {
		cfg.WorkerNum = 1
	}

	l := &Large{cfg: cfg, pred: pred, reservoir: NewReservoir(17), dbPath: dbPath}
	if err := l.clusterReservoir(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Large) readBlock(reader *fasta.Reader) (*Block, error) {
	records, err := reader.Read()
	if err != nil {
		return nil, err
	}
	sb, err := scoring.Unpack(records, l.cfg.K, l.cfg.Width)
	if err != nil {
		return nil, err
	}
	return toMeanShiftBlock(sb), nil
}

func (l *Large) clusterReservoir() error {
	reader, err := fasta.NewReader(l.dbPath, l.cfg.BlockSize, 0, 0)
	if err != nil {
		return err
	}
	defer reader.Close()

	block, err := l.readBlock(reader)
	if err != nil {
		return err
	}
	l.seqNum += len(block.Headers)

	ms, err := New(l.pred, block, l.cfg.Threshold, l.cfg.ErrorMargin, l.cfg.WorkerNum, MaxIterations)
	if err != nil {
		return err
	}
	ms.RemoveSingles()
	l.ms = ms

	if !reader.IsStillReading() {
		return nil
	}

	l.ms.UpdateAccumulatedMean()
	var previousSingles []*cluster.Cluster
	canAddCenters := false

	u, err := l.ms.FindUnassigned()
	if err != nil {
		return err
	}
	l.reservoir.Add(u)

	for pass := 0; pass < l.cfg.PassNum; pass++ {
		clustNum := len(l.ms.ClusterList())

		blockSize := l.cfg.BlockSize
		if pass > 0 {
			blockSize = l.cfg.VBlockSize
			reader.SetBlockSize(blockSize)
		}

		isReading := reader.IsStillReading()
		isFull := l.reservoir.Size() > 0

		for isReading || isFull {
			if isReading {
				block, err = l.readBlock(reader)
				if err != nil {
					return err
				}
				l.seqNum += len(block.Headers)

				if err := l.ms.UpdateReferenceData(block); err != nil {
					return err
				}
				isReading = reader.IsStillReading()
			}

			if canAddCenters {
				if err := l.ms.AddClusters(previousSingles); err != nil {
					return err
				}
			}

			if isReading || canAddCenters {
				if err := l.ms.Run(1, pass == 0); err != nil {
					return err
				}
				l.ms.UpdateAccumulatedMean()

				if pass == 0 {
					u, err := l.ms.FindUnassigned()
					if err != nil {
						return err
					}
					l.reservoir.Add(u)

					n := l.cfg.VBlockSize
					if len(u.Headers) > 0 {
						n = l.cfg.BlockSize * l.cfg.BlockSize / len(u.Headers)
					}
					if n > l.cfg.VBlockSize {
						n = l.cfg.VBlockSize
					}
					reader.SetBlockSize(n)
				}
			}

			if l.reservoir.Size() > l.cfg.BlockSize || (!isReading && l.reservoir.Size() > 0) {
				drained := l.reservoir.Remove(l.cfg.BlockSize)
				singlesMs, err := New(l.pred, drained, l.cfg.Threshold, l.cfg.ErrorMargin, l.cfg.WorkerNum, MaxIterations)
				if err != nil {
					return err
				}
				singlesMs.RemoveSingles()

				if isReading {
					u, err := singlesMs.FindUnassigned()
					if err != nil {
						return err
					}
					l.reservoir.Add(u)
				}

				previousSingles = singlesMs.ClusterList()
				canAddCenters = true
			} else {
				canAddCenters = false
			}

			isReading = reader.IsStillReading()
			isFull = l.reservoir.Size() > 0
		}

		if canAddCenters {
			if err := l.ms.AddClusters(previousSingles); err != nil {
				return err
			}
			if err := l.ms.Run(1, false); err != nil {
				return err
			}
			l.ms.UpdateAccumulatedMean()
		}

		if l.reservoir.Size() > 0 {
			return fmt.Errorf("%w: size is %d", ErrReservoirNotDrained, l.reservoir.Size())
		}

		previousSingles = nil
		l.seqNum = 0
		canAddCenters = false

		if err := reader.Restart(); err != nil {
			return err
		}

		if pass > 0 && clustNum == len(l.ms.ClusterList()) {
			break
		}
	}

	return nil
}

// ClusterList returns the final representative clusters found across all
// passes.
func (l *Large) ClusterList() []*cluster.Cluster { return l.ms.ClusterList() }

// CalcAllCenterVsAllCenter scores every final cluster's representative
// against every other's.
func (l *Large) CalcAllCenterVsAllCenter() ([][]float64, error) {
	return l.ms.CalcAllCenterVsAllCenter()
}

// AssignResult is the outcome of a final assignment pass: every non-empty
// cluster (contiguously renumbered), any leftover singleton sequences
// that matched no cluster, and the total sequence count seen.
type AssignResult struct {
	Clusters []*ClusterInfo
	Singles  []*ClusterInfo
	Total    int
}

// Assign streams the database file once more, scores each sequence
// against every final cluster center, and classifies it as a member,
// extended member, outside point, or a fresh singleton, per spec §4.12's
// final-assignment rules.
func (l *Large) Assign() (AssignResult, error) {
	relaxThreshold := l.cfg.Threshold - l.cfg.ErrorMargin

	reader, err := fasta.NewReader(l.dbPath, l.cfg.VBlockSize, 0, 0)
	if err != nil {
		return AssignResult{}, err
	}
	defer reader.Close()

	clusterList := l.ms.ClusterList()
	clusterNum := len(clusterList)

	clusterInfoList := make([]*ClusterInfo, clusterNum)
	identifier := 0
	for i := range clusterInfoList {
		identifier++
		clusterInfoList[i] = NewClusterInfo(identifier)
	}

	var singleList []*ClusterInfo
	dataSize := 0

	for reader.IsStillReading() {
		block, err := l.readBlock(reader)
		if err != nil {
			return AssignResult{}, err
		}
		blockSize := len(block.Headers)
		dataSize += blockSize

		res := make([][]float64, clusterNum)
		for i, c := range clusterList {
			row, err := l.ms.scoreOneVsMany(c.KHistMean(), c.MonoHistMean(), c.Length(), block.KHist, block.MonoHist, block.Lengths)
			if err != nil {
				return AssignResult{}, err
			}
			res[i] = row
		}

		for i := 0; i < blockSize; i++ {
			max := -1.0
			index := -1
			for j := 0; j < clusterNum; j++ {
				if v := res[j][i]; v > max {
					max = v
					index = j
				}
			}

			secondBest := -1.0
			if l.cfg.CanEvaluate {
				for j := 0; j < clusterNum; j++ {
					if v := res[j][i]; v < max && v > secondBest {
						secondBest = v
					}
				}
			}

			switch {
			case max >= l.cfg.Threshold:
				clusterInfoList[index].AddMember(block.Headers[i], max, secondBest, Member)
			case l.cfg.CanRelax && max >= relaxThreshold:
				clusterInfoList[index].AddMember(block.Headers[i], max, secondBest, Extended)
			case l.cfg.CanAssignAll:
				clusterInfoList[index].AddMember(block.Headers[i], max, secondBest, Outside)
			default:
				identifier++
				single := NewClusterInfo(identifier)
				single.AddMember(block.Headers[i], 1.0, max, Member)
				singleList = append(singleList, single)
			}
		}
	}

	nonEmpty := clusterInfoList[:0]
	for _, ci := range clusterInfoList {
		if ci.Size() > 0 {
			nonEmpty = append(nonEmpty, ci)
		}
	}
	if len(nonEmpty) < clusterNum {
		for i, ci := range nonEmpty {
			ci.SetIdentifier(i + 1)
		}
	}

	return AssignResult{Clusters: nonEmpty, Singles: singleList, Total: dataSize}, nil
}
