package meanshift

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioinformaticstoolsmith/identity/pkg/kmer"
)

func writeLargeFasta(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "db.fasta")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLargeClustersAcrossMultipleBlocks(t *testing.T) {
	// Two duplicate pairs split across more than one block of size 2, so
	// the second pass must fold unassigned candidates back in.
	content := ">a\nACGTACGTACGT\n" +
		">b\nTTTTTTTTTTTT\n" +
		">c\nACGTACGTACGT\n" +
		">d\nTTTTTTTTTTTT\n"
	path := writeLargeFasta(t, content)

	width, err := kmer.SelectWidth(64)
	require.NoError(t, err)

	cfg := LargeConfig{
		K:           2,
		Width:       width,
		BlockSize:   2,
		VBlockSize:  2,
		PassNum:     3,
		Threshold:   0.99,
		ErrorMargin: 0.0,
		WorkerNum:   2,
	}

	large, err := NewLarge(cfg, exactPredictor(t), path)
	require.NoError(t, err)

	result, err := large.Assign()
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)

	seen := map[string]bool{}
	for _, c := range result.Clusters {
		for _, h := range c.Headers() {
			seen[h] = true
		}
	}
	for _, c := range result.Singles {
		for _, h := range c.Headers() {
			seen[h] = true
		}
	}
	assert.Len(t, seen, 4)
}
