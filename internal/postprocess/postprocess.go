// Package postprocess turns raw LLM replies into something the detectors can
// use.
//
// Models asked for "only the language code" still wrap it in reasoning
// blocks, lead-in phrases, quotes, or markdown. Clean strips those; Code picks
// the language code out of what is left.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from text in three phases and returns the
// trimmed result:
//  1. Thinking / reasoning block removal
//  2. Lead-in removal ("Language code: ...")
//  3. Quote and markdown wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeLeadIns(text)
	text = removeWrapping(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// Go's RE2 has no backreferences, so each tag pair is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model ran out of tokens mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: lead-ins ---

// leadInPatterns are anchored at the start and require a colon or "is" to
// avoid eating a bare answer.
var leadInPatterns = []*regexp.Regexp{
	// "Here is / Here's the language code:"
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:detected )?language(?: code)?\s*:`),
	// "[The] [detected|primary] language [code] [is|:]"
	regexp.MustCompile(`(?i)^(?:the )?(?:detected |primary )?language(?: code)?(?:\s+is\b|\s*:)`),
	// "Sure / Certainly, ..."
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]?\s*`),
	// "Answer:" / "Code:"
	regexp.MustCompile(`(?i)^(?:answer|code|output)\s*:`),
}

func removeLeadIns(text string) string {
	for _, re := range leadInPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- Phase 3: wrapping ---

// removeWrapping strips one matching pair of outer quotes, backticks, or
// markdown emphasis, plus a trailing full stop.
func removeWrapping(text string) string {
	text = strings.TrimSuffix(strings.TrimSpace(text), ".")
	for _, pair := range [][2]string{
		{"**", "**"}, {"`", "`"}, {`"`, `"`}, {"'", "'"},
		{"«", "»"}, {"“", "”"}, {"‘", "’"},
	} {
		if len(text) >= len(pair[0])+len(pair[1]) &&
			strings.HasPrefix(text, pair[0]) && strings.HasSuffix(text, pair[1]) {
			text = strings.TrimSpace(text[len(pair[0]) : len(text)-len(pair[1])])
		}
	}
	return text
}

var wordRe = regexp.MustCompile(`[\p{L}\p{M}]+(?:[-_][A-Za-z0-9]+)?`)

// Code returns the first word of a cleaned reply that normalize maps to a
// language code, or "" when none does.
func Code(reply string, normalize func(string) (string, bool)) string {
	for _, word := range wordRe.FindAllString(Clean(reply), -1) {
		if code, ok := normalize(word); ok {
			return code
		}
	}
	return ""
}
