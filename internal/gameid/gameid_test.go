package gameid

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormat(t *testing.T) {
	t.Parallel()
	id := New()
	require.Len(t, id, 26)
	for _, c := range id {
		assert.Contains(t, alphabet, string(c))
	}
}

func TestNewUnique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewSortsByCreationTime(t *testing.T) {
	t.Parallel()
	first := New()
	time.Sleep(2 * time.Millisecond)
	second := New()
	assert.True(t, strings.Compare(first, second) < 0,
		"%s should sort before %s", first, second)
}

func TestEncodeBounds(t *testing.T) {
	t.Parallel()
	assert.Equal(t, strings.Repeat("0", 26), encode([16]byte{}))

	var all [16]byte
	for i := range all {
		all[i] = 0xff
	}
	assert.Equal(t, "7"+strings.Repeat("z", 25), encode(all))
}
