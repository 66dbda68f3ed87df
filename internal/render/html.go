package render

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"finsense/internal/styles"
)

// resultSectionClass marks the top-level report sections in the backend's
// research HTML.
const resultSectionClass = "result-section"

var multiNewline = regexp.MustCompile(`\n{3,}`)

// Sections extracts the outer HTML of every result-section node, in
// document order. When the markup carries no such sections the whole block
// is returned as a single unit.
func Sections(src string) []string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return []string{src}
	}

	var sections []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, resultSectionClass) {
			var b strings.Builder
			if err := html.Render(&b, n); err == nil {
				sections = append(sections, b.String())
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(sections) == 0 {
		return []string{src}
	}
	return sections
}

// Text converts a fragment of report HTML into styled terminal text.
// Headings, bold runs and list items keep their structure; everything else
// collapses to paragraphs. Unknown tags are unwrapped, never echoed.
func Text(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}
	out := nodeText(doc)
	out = multiNewline.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func nodeText(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return collapseSpace(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return ""
		case "br":
			return "\n"
		case "strong", "b":
			return styles.ResultBoldStyle.Render(strings.TrimSpace(childrenText(n)))
		case "h1", "h2", "h3":
			return "\n" + styles.ResultHeadingStyle.Render(strings.TrimSpace(childrenText(n))) + "\n"
		case "h4", "h5", "h6":
			return "\n" + styles.ResultSubheadStyle.Render(strings.TrimSpace(childrenText(n))) + "\n"
		case "li":
			return styles.ResultBulletStyle.Render("• ") + strings.TrimSpace(childrenText(n)) + "\n"
		case "ul", "ol":
			return "\n" + childrenText(n) + "\n"
		case "p":
			return strings.TrimSpace(childrenText(n)) + "\n\n"
		case "div":
			return childrenText(n) + "\n"
		}
	}
	return childrenText(n)
}

func childrenText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, f := range strings.Fields(attr.Val) {
			if f == class {
				return true
			}
		}
	}
	return false
}

func collapseSpace(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	fields := strings.Fields(s)
	out := strings.Join(fields, " ")
	// Preserve boundary spacing between inline runs.
	if strings.HasPrefix(s, " ") || strings.HasPrefix(s, "\n") || strings.HasPrefix(s, "\t") {
		out = " " + out
	}
	if strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\t") {
		out += " "
	}
	return out
}
