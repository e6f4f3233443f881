package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(s Scan) []int {
	out := make([]int, len(s.Detections))
	for i, d := range s.Detections {
		out[i] = d.ID
	}
	return out
}

func TestGroupScans_IdenticalTimestamps(t *testing.T) {
	t.Parallel()
	dets := []Detection{
		{ID: 0, Time: 2},
		{ID: 1, Time: 1},
		{ID: 2, Time: 2},
		{ID: 3, Time: 1},
		{ID: 4, Time: 3},
	}
	scans := GroupScans(dets, 0)
	require.Len(t, scans, 3)
	assert.Equal(t, []int{1, 3}, ids(scans[0]))
	assert.Equal(t, []int{0, 2}, ids(scans[1]))
	assert.Equal(t, []int{4}, ids(scans[2]))
	for i, s := range scans {
		assert.Equal(t, i, s.Index)
	}
	assert.Equal(t, 2.0, scans[1].Time)
	// Input is untouched.
	assert.Equal(t, 0, dets[0].ID)
}

func TestGroupScans_Window(t *testing.T) {
	t.Parallel()
	dets := []Detection{
		{ID: 0, Time: 0},
		{ID: 1, Time: 0.05},
		{ID: 2, Time: 0.1},
		{ID: 3, Time: 0.15},
	}
	scans := GroupScans(dets, 0.1)
	require.Len(t, scans, 2)
	assert.Equal(t, []int{0, 1, 2}, ids(scans[0]))
	assert.Equal(t, []int{3}, ids(scans[1]))
	assert.Equal(t, 0.0, scans[0].Time)
}

func TestGroupScans_Empty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, GroupScans(nil, 0))
}
