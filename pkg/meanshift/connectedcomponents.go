package meanshift

import "errors"

// ErrSquareMatrixRequired is returned when FindConnectedComponents is
// given a non-square matrix.
var ErrSquareMatrixRequired = errors.New("meanshift: FindConnectedComponents needs a square matrix")

// FindConnectedComponents labels every row/column of a square identity
// matrix with the index of the connected component it belongs to, where
// an edge exists between i and j whenever m[i][j] is at least threshold.
// It returns the per-index component labels (1-based) and the number of
// components found.
func FindConnectedComponents(m [][]float64, threshold float64) ([]int, int, error) {
	n := len(m)
	for _, row := range m {
		if len(row) != n {
			return nil, 0, ErrSquareMatrixRequired
		}
	}

	labels := make([]int, n)
	compNum := 0

	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}
		compNum++

		queue := []int{i}
		queued := make([]bool, n)
		queued[i] = true

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			labels[v] = compNum

			for j := 0; j < n; j++ {
				if !queued[j] && labels[j] == 0 && m[v][j] >= threshold {
					queue = append(queue, j)
					queued[j] = true
				}
			}
		}
	}

	return labels, compNum, nil
}
