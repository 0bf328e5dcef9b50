package meanshift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConnectedComponentsGroupsByThreshold(t *testing.T) {
	m := [][]float64{
		{1.0, 0.95, 0.1, 0.1},
		{0.95, 1.0, 0.1, 0.1},
		{0.1, 0.1, 1.0, 0.9},
		{0.1, 0.1, 0.9, 1.0},
	}
	labels, compNum, err := FindConnectedComponents(m, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 2, compNum)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[2], labels[3])
	assert.NotEqual(t, labels[0], labels[2])
}

func TestFindConnectedComponentsRejectsNonSquare(t *testing.T) {
	_, _, err := FindConnectedComponents([][]float64{{1.0, 0.5}}, 0.5)
	assert.ErrorIs(t, err, ErrSquareMatrixRequired)
}

func TestClusterInfoTracksRepresentativeAndIntra(t *testing.T) {
	ci := NewClusterInfo(1)
	ci.AddMember(">a", 0.95, 0.5, Member)
	ci.AddMember(">b", 0.99, 0.4, Member)
	ci.AddMember(">c", 0.90, 0.6, Extended)

	assert.Equal(t, 3, ci.Size())
	assert.Equal(t, ">b", ci.Center())

	wantIntra := ((1 - 0.95) + (1 - 0.99) + (1 - 0.90)) / 3.0
	assert.InDelta(t, wantIntra, ci.Intra(), 1e-9)

	str := ci.String()
	assert.Contains(t, str, "1\t>b\t0.9900\tC")
	assert.Contains(t, str, "\tE\n")
}

func TestEvaluatorComputesCoverageAndDunn(t *testing.T) {
	a := NewClusterInfo(1)
	a.AddMember(">a1", 0.95, 0.2, Member)
	a.AddMember(">a2", 0.97, 0.2, Member)

	b := NewClusterInfo(2)
	b.AddMember(">b1", 0.96, 0.2, Member)

	ava := [][]float64{
		{1.0, 0.2},
		{0.2, 1.0},
	}
	ev := NewEvaluator(ava, []*ClusterInfo{a, b}, 4)

	assert.InDelta(t, 0.75, ev.ClusterRatio(), 1e-9)

	report, err := ev.Evaluate()
	require.NoError(t, err)
	assert.Greater(t, report.Dunn, 0.0)
	assert.InDelta(t, 0.75, report.Coverage, 1e-9)
}

func TestEvaluatorRejectsIdenticalClusters(t *testing.T) {
	a := NewClusterInfo(1)
	a.AddMember(">a1", 0.95, 0.2, Member)
	b := NewClusterInfo(2)
	b.AddMember(">b1", 0.96, 0.2, Member)

	ava := [][]float64{
		{1.0, 1.0},
		{1.0, 1.0},
	}
	ev := NewEvaluator(ava, []*ClusterInfo{a, b}, 2)
	_, err := ev.DaviesBouldin()
	assert.ErrorIs(t, err, ErrIdenticalClusters)
}
