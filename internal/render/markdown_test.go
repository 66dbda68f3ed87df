package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocksSplitsOnBlankLines(t *testing.T) {
	md := "First paragraph.\n\nSecond paragraph\nstill the same block.\n\nThird."
	blocks := Blocks(md)

	require.Len(t, blocks, 3)
	assert.Equal(t, Paragraph, blocks[0].Kind)
	assert.Equal(t, "First paragraph.", blocks[0].Text)
	assert.Equal(t, "Second paragraph\nstill the same block.", blocks[1].Text)
}

func TestListStaysOneBlock(t *testing.T) {
	md := "Here are your options:\n\n- Growth stocks\n- Dividend payers\n- Index funds\n\nWhich sounds right?"
	blocks := Blocks(md)

	require.Len(t, blocks, 3)
	assert.Equal(t, Paragraph, blocks[0].Kind)
	assert.Equal(t, List, blocks[1].Kind)
	assert.Equal(t, "- Growth stocks\n- Dividend payers\n- Index funds", blocks[1].Text)
	assert.Equal(t, Paragraph, blocks[2].Kind)
}

func TestListSplitsFromAdjacentParagraph(t *testing.T) {
	// No blank line between the intro and the list: the list still forms
	// its own block so it animates as one unit.
	md := "Pick a risk level:\n1. Low - capital preservation\n2. Medium - balanced\n3. High - aggressive growth"
	blocks := Blocks(md)

	require.Len(t, blocks, 2)
	assert.Equal(t, Paragraph, blocks[0].Kind)
	assert.Equal(t, List, blocks[1].Kind)
	assert.Contains(t, blocks[1].Text, "1. Low")
	assert.Contains(t, blocks[1].Text, "3. High")
}

func TestBlocksStarAndBulletMarkers(t *testing.T) {
	blocks := Blocks("* one\n* two\n\n• three")
	require.Len(t, blocks, 2)
	assert.Equal(t, List, blocks[0].Kind)
	assert.Equal(t, List, blocks[1].Kind)
}

func TestBlocksEmptyInput(t *testing.T) {
	assert.Empty(t, Blocks(""))
	assert.Empty(t, Blocks("\n\n\n"))
}

func TestBlocksWindowsLineEndings(t *testing.T) {
	blocks := Blocks("a\r\n\r\nb")
	require.Len(t, blocks, 2)
	assert.Equal(t, "a", blocks[0].Text)
	assert.Equal(t, "b", blocks[1].Text)
}
