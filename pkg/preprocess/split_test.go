package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIndicesRatios(t *testing.T) {
	p, err := splitIndices(100, nil, true)
	require.NoError(t, err)

	assert.Len(t, p.train, 70)
	assert.Len(t, p.val, 15)
	assert.Len(t, p.test, 15)

	seen := make(map[int]bool)
	for _, idx := range [][]int{p.train, p.val, p.test} {
		for _, i := range idx {
			assert.False(t, seen[i], "index %d appears in two partitions", i)
			seen[i] = true
		}
	}
	assert.Len(t, seen, 100)
}

func TestSplitIndicesTooFewRows(t *testing.T) {
	_, err := splitIndices(4, nil, true)
	assert.Error(t, err)
}

func TestSplitIndicesDeterministic(t *testing.T) {
	a, err := splitIndices(50, nil, true)
	require.NoError(t, err)
	b, err := splitIndices(50, nil, true)
	require.NoError(t, err)

	assert.Equal(t, a.train, b.train)
	assert.Equal(t, a.val, b.val)
	assert.Equal(t, a.test, b.test)
}

func TestSplitIndicesSequentialKeepsOrder(t *testing.T) {
	p, err := splitIndices(20, nil, false)
	require.NoError(t, err)

	// Sequential partitions are contiguous ranges in order.
	for i := 1; i < len(p.train); i++ {
		assert.Equal(t, p.train[i-1]+1, p.train[i])
	}
	assert.Equal(t, p.train[len(p.train)-1]+1, p.val[0])
	assert.Equal(t, p.val[len(p.val)-1]+1, p.test[0])
	assert.Equal(t, 19, p.test[len(p.test)-1])
}

func TestSplitIndicesStratifiedKeepsClassInTrain(t *testing.T) {
	labels := make([]string, 40)
	for i := range labels {
		labels[i] = "common"
	}
	labels[7] = "rare"
	labels[23] = "rare"

	p, err := splitIndices(len(labels), labels, true)
	require.NoError(t, err)

	trainHasRare := false
	for _, i := range p.train {
		if labels[i] == "rare" {
			trainHasRare = true
		}
	}
	assert.True(t, trainHasRare)
	assert.Equal(t, len(labels), len(p.train)+len(p.val)+len(p.test))
}
