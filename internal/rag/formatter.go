package rag

import (
	"fmt"
	"io"
	"strings"

	"github.com/mwiater/pdfrag/internal/util"
	"github.com/mwiater/pdfrag/internal/vectorindex"
)

// ContextText joins the matched chunk texts with newlines.
func ContextText(matches []vectorindex.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Metadata == nil {
			continue
		}
		parts = append(parts, m.Metadata.Text)
	}
	return strings.Join(parts, "\n")
}

// Sources lists the source of every match in rank order, duplicates included.
func Sources(matches []vectorindex.Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Metadata == nil {
			out = append(out, "")
			continue
		}
		out = append(out, m.Metadata.Source)
	}
	return out
}

// FormatSources writes one line per match with its score and, when
// preview > 0, the first preview characters of its text.
func FormatSources(w io.Writer, matches []vectorindex.Match, preview int) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matching chunks found.")
		return
	}
	for i, m := range matches {
		source, text := "", ""
		if m.Metadata != nil {
			source, text = m.Metadata.Source, m.Metadata.Text
		}
		fmt.Fprintf(w, "%d. %s (score: %.4f)\n", i+1, source, m.Score)
		if preview > 0 && text != "" {
			fmt.Fprintf(w, "   %s\n", util.TruncateRunes(strings.Join(strings.Fields(text), " "), preview))
		}
	}
}
