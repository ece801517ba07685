package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodul/recite/internal/puzzle"
)

func TestRenderLayout(t *testing.T) {
	layout, err := testGenerator().Generate("天地玄黃宇宙洪荒")
	require.NoError(t, err)

	out := renderLayout(layout)
	for _, r := range "天地玄黃宇宙洪荒" {
		assert.Contains(t, out, string(r))
	}
	assert.Contains(t, out, "天地玄黃宇宙洪荒", "caption shows the segment")

	// One bordered line per grid row, plus borders and caption.
	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), layout.Size()+2)

	// Every cell character appears on the board.
	for _, row := range layout.Chars() {
		for _, ch := range row {
			assert.Contains(t, out, ch)
		}
	}
}

func TestRenderLayoutSmallGrid(t *testing.T) {
	gen := puzzle.NewGenerator(puzzle.NewLockedSource(1), puzzle.Options{Size: 3})
	layout, err := gen.Generate("道")
	require.NoError(t, err)
	assert.Contains(t, renderLayout(layout), "道")
}
