package slices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []int{2, 4, 6}, Map([]int{1, 2, 3}, func(x int) int { return 2 * x }))
	assert.Equal(t, []int{}, Map([]int{}, func(x int) int { return x }))
}

func TestFilter(t *testing.T) {
	even := func(x int) bool { return x%2 == 0 }
	assert.Equal(t, []int{2, 4}, Filter([]int{1, 2, 3, 4}, even))
	assert.Nil(t, Filter([]int{1, 3}, even))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains([]int(nil), 1))
}
