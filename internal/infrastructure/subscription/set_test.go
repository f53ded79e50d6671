package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_CloseAll(t *testing.T) {
	set := NewSet()
	calls := 0
	set.Add(func() { calls++ })
	set.Add(func() { calls++ })
	set.Add(nil)

	assert.Equal(t, 2, set.Len())

	set.CloseAll()
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, set.Len())

	// A second close must not re-run cancelled listeners.
	set.CloseAll()
	assert.Equal(t, 2, calls)

	set.Add(func() { calls++ })
	set.CloseAll()
	assert.Equal(t, 3, calls)
}
