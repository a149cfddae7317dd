package postprocess

import (
	"strings"
	"testing"
)

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no thinking blocks",
			input:    "hi",
			expected: "hi",
		},
		{
			name:     "simple thinking block",
			input:    "<thinking>The words look Hindi</thinking>hi",
			expected: "hi",
		},
		{
			name:     "think block",
			input:    "<think>aap is Hindi</think>\nhi",
			expected: "hi",
		},
		{
			name:     "multiple blocks",
			input:    "<reasoning>First</reasoning>ta<reflection>Second</reflection>",
			expected: "ta",
		},
		{
			name:     "truncated thinking block",
			input:    "<thinking>The text contains",
			expected: "",
		},
		{
			name:     "truncated after answer",
			input:    "gu<think>because kem",
			expected: "gu",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeThinkingBlocks(tt.input)
			if result != tt.expected {
				t.Errorf("removeThinkingBlocks(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveLeadIns(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare code",
			input:    "hi",
			expected: "hi",
		},
		{
			name:     "language code colon",
			input:    "Language code: hi",
			expected: "hi",
		},
		{
			name:     "detected language is",
			input:    "The detected language is Hindi",
			expected: "Hindi",
		},
		{
			name:     "here's the language code",
			input:    "Here's the language code: ta",
			expected: "ta",
		},
		{
			name:     "sure prefix",
			input:    "Sure, mr",
			expected: "mr",
		},
		{
			name:     "answer prefix",
			input:    "Answer: te",
			expected: "te",
		},
		{
			name:     "lead-in not at start",
			input:    "hindi language",
			expected: "hindi language",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeLeadIns(tt.input)
			if result != tt.expected {
				t.Errorf("removeLeadIns(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveWrapping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "single char", input: "a", expected: "a"},
		{name: "lone quote", input: "\"", expected: "\""},
		{name: "double quotes", input: "\"hi\"", expected: "hi"},
		{name: "single quotes", input: "'ta'", expected: "ta"},
		{name: "backticks", input: "`gu`", expected: "gu"},
		{name: "bold", input: "**mr**", expected: "mr"},
		{name: "bold code", input: "**`mwr`**", expected: "mwr"},
		{name: "curly quotes", input: "“te”", expected: "te"},
		{name: "trailing full stop", input: "hi.", expected: "hi"},
		{name: "unmatched", input: "\"hi'", expected: "\"hi'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeWrapping(tt.input)
			if result != tt.expected {
				t.Errorf("removeWrapping(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "clean code",
			input:    "hi",
			expected: "hi",
		},
		{
			name:     "full pipeline",
			input:    "<thinking>Looks Tamil</thinking>Language code: \"ta\"",
			expected: "ta",
		},
		{
			name:     "whitespace",
			input:    "  \n mr \n",
			expected: "mr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Clean(tt.input)
			if result != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCode(t *testing.T) {
	known := map[string]string{"hi": "hi", "hindi": "hi", "ta": "ta", "mwr": "mwr", "hi-in": "hi"}
	normalize := func(s string) (string, bool) {
		code, ok := known[strings.ToLower(s)]
		return code, ok
	}

	tests := []struct {
		name     string
		reply    string
		expected string
	}{
		{name: "bare", reply: "hi", expected: "hi"},
		{name: "bold after lead-in", reply: "<think>hmm</think>Language: **ta**", expected: "ta"},
		{name: "language name", reply: "The primary language is Hindi.", expected: "hi"},
		{name: "region tag", reply: "hi-IN", expected: "hi"},
		{name: "backticks", reply: "`mwr`", expected: "mwr"},
		{name: "nothing recognised", reply: "I cannot tell", expected: ""},
		{name: "empty", reply: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.reply, normalize); got != tt.expected {
				t.Errorf("Code(%q) = %q, want %q", tt.reply, got, tt.expected)
			}
		})
	}
}
