package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialGenerator(t *testing.T) {
	g := NewSequentialGenerator("")
	assert.Equal(t, "tx-0001", g.Generate())
	assert.Equal(t, "tx-0002", g.Generate())

	g = NewSequentialGenerator("lore")
	assert.Equal(t, "lore-0001", g.Generate())
}
