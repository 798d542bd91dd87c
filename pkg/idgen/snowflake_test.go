package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextID_UniqueAndIncreasing(t *testing.T) {
	Init(1)

	seen := make(map[int64]struct{}, 1000)
	prev := int64(0)
	for i := 0; i < 1000; i++ {
		id := NextID()
		require.Greater(t, id, prev)
		_, dup := seen[id]
		require.False(t, dup, "id=%d", id)
		seen[id] = struct{}{}
		prev = id
	}
}

func TestGenerateTransferNo(t *testing.T) {
	Init(1)

	no := GenerateTransferNo()
	assert.True(t, strings.HasPrefix(no, "TRF"))
	assert.Len(t, no, 3+14+8)

	assert.NotEqual(t, no, GenerateTransferNo())
}
