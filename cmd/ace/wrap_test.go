package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.Equal(t, "one two\n  three", wrap("one two three", 8, "  "))
	assert.Equal(t, "a b c", wrap("  a  b\nc ", 20, ""))
	assert.Equal(t, "", wrap("   ", 10, ""))
	assert.Equal(t, "supercalifragilistic\nx", wrap("supercalifragilistic x", 5, ""))
}
