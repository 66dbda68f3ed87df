package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionsExtractsInDocumentOrder(t *testing.T) {
	src := `<html><body>
<div class="container">
  <div class="result-section"><h2>Top Picks</h2><p>AAPL, MSFT</p></div>
  <div class="filler">ignored</div>
  <div class="result-section extra"><h2>Risks</h2><p>Rate exposure</p></div>
</div>
</body></html>`

	sections := Sections(src)
	require.Len(t, sections, 2)
	assert.Contains(t, sections[0], "Top Picks")
	assert.Contains(t, sections[1], "Risks")
	assert.NotContains(t, sections[0], "Risks")
}

func TestSectionsFallbackWholeDocument(t *testing.T) {
	src := "<p>No sections here, just a report.</p>"
	sections := Sections(src)
	require.Len(t, sections, 1)
	assert.Equal(t, src, sections[0])
}

func TestTextRendersStructure(t *testing.T) {
	src := `<div>
<h2>Summary</h2>
<p>We screened <strong>42 candidates</strong> against your goals.</p>
<ul><li>AAPL</li><li>MSFT</li></ul>
</div>`

	out := Text(src)
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "42 candidates")
	assert.Contains(t, out, "• AAPL")
	assert.Contains(t, out, "• MSFT")
	// Block structure survives as line breaks.
	assert.NotContains(t, out, "<")
}

func TestTextDropsScriptAndStyle(t *testing.T) {
	src := `<div><script>alert("x")</script><style>.a{}</style><p>Visible</p></div>`
	out := Text(src)
	assert.Equal(t, "Visible", out)
}

func TestTextDecodesEntities(t *testing.T) {
	out := Text("<p>P&amp;G beats S&amp;P 500</p>")
	assert.Equal(t, "P&G beats S&P 500", out)
}

func TestTextCollapsesExcessWhitespace(t *testing.T) {
	out := Text("<div><p>a</p><p></p><p></p><p>b</p></div>")
	assert.NotContains(t, out, "\n\n\n")
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")
}
