package feature

import (
	"sort"
	"strconv"
	"strings"
)

// node is a sorted set of feature-column indices, the search state for
// best-first feature selection.
type node struct {
	list []int
}

func emptyNode() node { return node{} }

// key gives a stable map key for a node; Go's built-in map equality on a
// string stands in for the source's custom hash-combine over an int array.
func (n node) key() string {
	if len(n.list) == 0 {
		return ""
	}
	parts := make([]string, len(n.list))
	for i, v := range n.list {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (n node) size() int { return len(n.list) }

// del returns a new node with f removed, preserving sort order.
func (n node) del(f int) node {
	out := make([]int, 0, len(n.list)-1)
	for _, v := range n.list {
		if v != f {
			out = append(out, v)
		}
	}
	return node{out}
}

// add returns a new node with f inserted in sorted position.
func (n node) add(f int) node {
	out := make([]int, 0, len(n.list)+1)
	inserted := false
	for _, v := range n.list {
		if !inserted && v > f {
			out = append(out, f)
			inserted = true
		}
		out = append(out, v)
	}
	if !inserted {
		out = append(out, f)
	}
	return node{out}
}

// expand generates every node reachable by dropping one member, or adding
// one feature index in [0,fNum) not already present.
func (n node) expand(fNum int) []node {
	out := make([]node, 0, fNum)
	for _, v := range n.list {
		out = append(out, n.del(v))
	}

	present := make(map[int]bool, len(n.list))
	for _, v := range n.list {
		present[v] = true
	}
	for f := 0; f < fNum; f++ {
		if !present[f] {
			out = append(out, n.add(f))
		}
	}
	return out
}

func sortedCopy(idx []int) []int {
	out := append([]int(nil), idx...)
	sort.Ints(out)
	return out
}
