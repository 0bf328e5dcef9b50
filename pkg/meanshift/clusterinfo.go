package meanshift

import (
	"fmt"
	"strings"
)

// Membership classifies how a member attached to its cluster in the final
// assignment pass.
type Membership int

const (
	// Member scored at or above the clustering threshold.
	Member Membership = iota
	// Extended scored below threshold but at or above the relaxed
	// (error-adjusted) threshold, and relaxed assignment is enabled.
	Extended
	// Outside scored below even the relaxed threshold, but assign-all is
	// enabled so it is still attached to its closest cluster.
	Outside
)

type member struct {
	header            string
	scoreWithCenter   float64
	scoreWithNeighbor float64
	membership        Membership
}

// ClusterInfo accumulates the final per-sequence assignment for one
// cluster: who belongs to it, their scores to the center and to the
// second-closest cluster, and which member turned out to be the best
// representative.
type ClusterInfo struct {
	identifier int
	members    []member
	repID      float64
	repIndex   int
}

// NewClusterInfo starts an empty cluster carrying the given display
// identifier.
func NewClusterInfo(identifier int) *ClusterInfo {
	return &ClusterInfo{identifier: identifier, repIndex: 0}
}

// AddMember records one sequence's assignment to this cluster. The member
// with the highest scoreWithCenter seen so far becomes the cluster's
// representative.
func (ci *ClusterInfo) AddMember(header string, scoreWithCenter, scoreWithNeighbor float64, membership Membership) {
	ci.members = append(ci.members, member{header, scoreWithCenter, scoreWithNeighbor, membership})
	if scoreWithCenter > ci.repID {
		ci.repID = scoreWithCenter
		ci.repIndex = len(ci.members) - 1
	}
}

// Size is the number of sequences assigned to this cluster.
func (ci *ClusterInfo) Size() int { return len(ci.members) }

// Identifier is this cluster's display number.
func (ci *ClusterInfo) Identifier() int { return ci.identifier }

// SetIdentifier overwrites the display number, used to renumber
// contiguously after empty clusters are dropped.
func (ci *ClusterInfo) SetIdentifier(id int) { ci.identifier = id }

// Center is the header of the member currently serving as representative.
func (ci *ClusterInfo) Center() string {
	if len(ci.members) == 0 {
		return ""
	}
	return ci.members[ci.repIndex].header
}

// Headers lists every member header, in assignment order.
func (ci *ClusterInfo) Headers() []string {
	out := make([]string, len(ci.members))
	for i, m := range ci.members {
		out[i] = m.header
	}
	return out
}

// Intra is the average distance (1 - score) from members to the center:
// Equation used by Davies-Bouldin and Dunn.
func (ci *ClusterInfo) Intra() float64 {
	if len(ci.members) == 0 {
		return 0
	}
	var sum float64
	for _, m := range ci.members {
		sum += 1.0 - m.scoreWithCenter
	}
	return sum / float64(len(ci.members))
}

// Silhouette sums each member's (distToNeighbor - distToCenter) /
// max(distToNeighbor, distToCenter); callers divide by total member count
// across every cluster to get the aggregate average.
func (ci *ClusterInfo) Silhouette() float64 {
	var s float64
	for _, m := range ci.members {
		distToC := 1.0 - m.scoreWithCenter
		distToN := 1.0 - m.scoreWithNeighbor
		max := distToC
		if distToN > max {
			max = distToN
		}
		s += (distToN - distToC) / max
	}
	return s
}

// String renders one line per member: identifier, header, score with
// center (4 decimals), and a membership tag (C for the representative, M
// for member, E for extended, O for outside).
func (ci *ClusterInfo) String() string {
	var b strings.Builder
	for j, m := range ci.members {
		tag := "M"
		if j == ci.repIndex {
			tag = "C"
		} else if m.membership == Extended {
			tag = "E"
		} else if m.membership == Outside {
			tag = "O"
		}
		fmt.Fprintf(&b, "%d\t%s\t%.4f\t%s\n", ci.identifier, m.header, m.scoreWithCenter, tag)
	}
	return b.String()
}
