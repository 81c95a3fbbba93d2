package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 0, 3, 4))
	assert.Equal(t, "fallback", Coalesce("", "fallback"))
	assert.Equal(t, 0, Coalesce[int]())
	assert.Equal(t, float32(0), Coalesce[float32](0, 0))
}
