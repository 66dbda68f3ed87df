// Package render turns backend text into terminal output: markdown-lite
// bot messages are split into block-level units for staged reveal, and
// research results HTML is converted to styled text section by section.
package render

import "strings"

type BlockKind int

const (
	Paragraph BlockKind = iota
	List
)

// Block is one reveal unit: a paragraph or a whole list. Consecutive list
// items stay together so a list always animates as a single container.
type Block struct {
	Kind BlockKind
	Text string
}

// Blocks splits markdown-lite text (bold, simple lists, paragraph breaks)
// into reveal units. Blank lines separate blocks; a run of list lines forms
// one list block regardless of surrounding paragraphs.
func Blocks(md string) []Block {
	var (
		blocks []Block
		lines  []string
		kind   BlockKind
		open   bool
	)

	flush := func() {
		if !open {
			return
		}
		blocks = append(blocks, Block{Kind: kind, Text: strings.Join(lines, "\n")})
		lines = nil
		open = false
	}

	for _, line := range strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case isListLine(trimmed):
			if open && kind != List {
				flush()
			}
			kind = List
			open = true
			lines = append(lines, line)
		default:
			if open && kind != Paragraph {
				flush()
			}
			kind = Paragraph
			open = true
			lines = append(lines, line)
		}
	}
	flush()
	return blocks
}

func isListLine(trimmed string) bool {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	// Numbered options ("1. Low - ...") animate with their list.
	if len(trimmed) > 2 && trimmed[0] >= '0' && trimmed[0] <= '9' {
		rest := strings.TrimLeft(trimmed, "0123456789")
		if strings.HasPrefix(rest, ". ") {
			return true
		}
	}
	return false
}
