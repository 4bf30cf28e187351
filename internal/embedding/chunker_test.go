package embedding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSlidingWindow(t *testing.T) {
	got := Chunk("ABCDEFGHIJ", 4, 2)
	require.Equal(t, []string{"ABCD", "CDEF", "EFGH", "GHIJ"}, got)

	// each adjacent pair overlaps by exactly 2 characters
	for i := 1; i < len(got); i++ {
		prev := got[i-1]
		assert.Equal(t, prev[len(prev)-2:], got[i][:2])
	}
}

func TestChunkShortInput(t *testing.T) {
	assert.Equal(t, []string{"AB"}, Chunk("AB", 4, 2))
	assert.Nil(t, Chunk("", 4, 2))
	assert.Nil(t, Chunk("ABC", 0, 0))
}

func TestChunkUnevenTail(t *testing.T) {
	got := Chunk("ABCDEFGHIJK", 4, 2)
	require.Equal(t, []string{"ABCD", "CDEF", "EFGH", "GHIJ", "IJK"}, got)
}

func TestChunkReconstructsInput(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{name: "exact_windows", text: "ABCDEFGHIJ", size: 4, overlap: 2},
		{name: "ragged_tail", text: strings.Repeat("xyz", 41), size: 17, overlap: 5},
		{name: "no_overlap", text: "ABCDEFGHIJ", size: 5, overlap: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := Chunk(tc.text, tc.size, tc.overlap)
			require.NotEmpty(t, chunks)

			// strip each chunk's leading overlap and concatenate
			var b strings.Builder
			b.WriteString(chunks[0])
			for _, c := range chunks[1:] {
				b.WriteString(c[tc.overlap:])
			}
			assert.Equal(t, tc.text, b.String())
		})
	}
}

func TestChunkOverlapClamped(t *testing.T) {
	// overlap >= size falls back to size/2 instead of looping forever
	got := Chunk("ABCDEFGHIJ", 4, 9)
	require.NotEmpty(t, got)
	assert.Equal(t, "ABCD", got[0])
}
