package rx

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- BufferWithCount ---

func TestBufferWithCount(t *testing.T) {
	got, calls, err := record(t, BufferWithCount(Of(1, 2, 3, 4, 5), 3))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5}}, got)
	assert.Equal(t, 1, calls)
}

func TestBufferWithCount_ExactMultiple(t *testing.T) {
	got, err := BufferWithCount(Range(0, 4), 2).ToSlice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {2, 3}}, got)
}

func TestBufferWithCount_BatchesAreNotShared(t *testing.T) {
	got, err := BufferWithCount(Range(0, 4), 2).ToSlice(context.Background())
	require.NoError(t, err)
	got[0][0] = 99
	assert.Equal(t, []int{2, 3}, got[1])
}

func TestBufferWithCount_DownstreamStop(t *testing.T) {
	var produced int
	got, err := BufferWithCount(counted(100, &produced), 2).Take(1).ToSlice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}}, got)
	assert.Equal(t, 2, produced)
}

func TestBufferWithCount_Panics(t *testing.T) {
	mustPanicContains(t, "n > 0", func() { BufferWithCount(Of(1), 0) })
}

// --- GroupBy ---

func TestGroupBy(t *testing.T) {
	groups, calls, err := record(t, GroupBy(Of(1, 2, 3, 4, 5, 6), func(v int) int { return v % 2 }))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, groups, 2)

	contents := map[int][]int{}
	for _, g := range groups {
		vals, err := g.ToSlice(context.Background())
		require.NoError(t, err)
		contents[g.Key] = vals
	}
	assert.Equal(t, []int{1, 3, 5}, contents[1])
	assert.Equal(t, []int{2, 4, 6}, contents[0])
}

func TestGroupBy_FirstSeenOrder(t *testing.T) {
	words := Of("banana", "apple", "blueberry", "cherry", "avocado")
	groups, err := GroupBy(words, func(s string) byte { return s[0] }).ToSlice(context.Background())
	require.NoError(t, err)

	var keys []string
	for _, g := range groups {
		keys = append(keys, string(g.Key))
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestGroupBy_GroupsReplay(t *testing.T) {
	groups, err := GroupBy(Of("x1", "y1", "x2"), func(s string) string { return s[:1] }).ToSlice(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	for i := 0; i < 2; i++ {
		vals, err := groups[0].ToSlice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"x1", "x2"}, vals)
	}
	assert.Equal(t, "group", groups[0].Name())
}

func TestGroupBy_NotIncremental(t *testing.T) {
	ch := make(chan string, 3)
	ch <- "a"
	ch <- "b"
	ctx, cancel := context.WithCancel(context.Background())

	var emitted int
	done := make(chan error, 1)
	go func() {
		done <- GroupBy(FromChan(ch), strings.ToUpper).Subscribe(ctx, func(*Group[string, string]) {
			emitted++
		})
	}()
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Zero(t, emitted)
}

func TestGroupBy_DownstreamStop(t *testing.T) {
	groups, err := GroupBy(Range(0, 9), func(v int) int { return v % 3 }).Take(2).ToSlice(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, 0, groups[0].Key)
	assert.Equal(t, 1, groups[1].Key)
}

func TestGroupBy_Panics(t *testing.T) {
	mustPanicContains(t, "non-nil key function", func() { GroupBy[int, int](Of(1), nil) })
}
