package detector

import (
	"fmt"
	"strings"

	"github.com/valpere/bhasha/internal/langid"
)

// buildPrompt asks a language model for a single catalog code. Example words
// come from the catalog so a custom catalog produces a matching prompt.
func buildPrompt(catalog *langid.Catalog, text string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Analyze this text and determine its primary language: %q\n\n", text))

	var codes []string
	for _, p := range catalog.Profiles() {
		codes = append(codes, fmt.Sprintf("%s (%s)", p.Code, p.Name))
	}
	sb.WriteString("Available language codes: ")
	sb.WriteString(strings.Join(codes, ", "))
	sb.WriteString("\n\nRules:\n")

	n := 1
	for _, p := range catalog.Profiles() {
		if len(p.Hints) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%d. If text contains %s words like %s, return %q\n",
			n, p.Name, quoteAll(p.Hints), p.Code))
		n++
	}
	sb.WriteString(fmt.Sprintf("%d. If text is mostly English, return %q\n", n, langid.DefaultLanguage))
	sb.WriteString(fmt.Sprintf("%d. Return ONLY the language code, no explanations.\n", n+1))

	return sb.String()
}

func quoteAll(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = fmt.Sprintf("%q", w)
	}
	return strings.Join(quoted, ", ")
}
