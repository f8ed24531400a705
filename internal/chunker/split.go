// Package chunker splits long replies into Telegram-sized parts. Splitting
// and labeling are two explicit passes: Split computes raw parts, Label
// stamps "Part i/N:" prefixes once the total is known.
package chunker

import (
	"fmt"
	"strings"
)

// Part is one size-bounded fragment of an outbound reply.
type Part struct {
	Index int
	Total int
	Text  string
}

// Split cuts text into ordered raw parts of at most max bytes each.
// Each cut takes the largest prefix within the ceiling, preferring the last
// line break inside that prefix; the break itself is dropped from both
// sides. Without a line break the cut is forced at the ceiling.
// Concatenating the parts (re-inserting dropped breaks) reproduces text.
func Split(text string, max int) []string {
	if max < 1 {
		max = 1
	}
	if len(text) <= max {
		return []string{text}
	}

	var parts []string
	rest := text
	for len(rest) > max {
		prefix := rest[:max]
		cut := strings.LastIndexByte(prefix, '\n')
		if cut >= 0 {
			parts = append(parts, rest[:cut])
			rest = rest[cut+1:]
		} else {
			parts = append(parts, prefix)
			rest = rest[max:]
		}
	}
	parts = append(parts, rest)
	return parts
}

// Label stamps each raw part with its position out of the total. A single
// part carries no label; the reply fits in one message and needs no marker.
func Label(raw []string) []Part {
	total := len(raw)
	parts := make([]Part, total)
	for i, text := range raw {
		p := Part{Index: i + 1, Total: total, Text: text}
		if total > 1 {
			p.Text = fmt.Sprintf("Part %d/%d:\n%s", p.Index, total, text)
		}
		parts[i] = p
	}
	return parts
}
