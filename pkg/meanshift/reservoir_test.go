package meanshift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservoirAddAndRemoveDrainsEveryItem(t *testing.T) {
	r := NewReservoir(1)
	r.Add(&UnassignedData{
		Headers:  []string{">a", ">b", ">c"},
		KHist:    [][]int64{{1}, {2}, {3}},
		MonoHist: [][]uint64{{1}, {2}, {3}},
		Lengths:  []int{1, 2, 3},
	})
	require.Equal(t, 3, r.Size())

	block := r.Remove(2)
	assert.Len(t, block.Headers, 2)
	assert.Equal(t, 1, r.Size())

	rest := r.Remove(10)
	assert.Len(t, rest.Headers, 1)
	assert.Equal(t, 0, r.Size())

	all := map[string]bool{}
	for _, h := range append(block.Headers, rest.Headers...) {
		all[h] = true
	}
	assert.True(t, all[">a"] && all[">b"] && all[">c"])
}

func TestReservoirRemoveCapsAtAvailableSize(t *testing.T) {
	r := NewReservoir(2)
	r.Add(&UnassignedData{
		Headers:  []string{">x"},
		KHist:    [][]int64{{1}},
		MonoHist: [][]uint64{{1}},
		Lengths:  []int{1},
	})
	b := r.Remove(50)
	assert.Len(t, b.Headers, 1)
	assert.Equal(t, 0, r.Size())
}
