package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirst(t *testing.T) {
	v, ok := First([]string{"a", "b"})
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = First([]string(nil))
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestHead(t *testing.T) {
	assert.Equal(t, []int{1, 2}, Head([]int{1, 2, 3}, 2))
	assert.Equal(t, []int{1}, Head([]int{1}, 5))
	assert.Empty(t, Head([]int(nil), 3))
}
