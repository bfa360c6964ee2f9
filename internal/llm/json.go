package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON returns the first well-formed JSON object or array found in
// reply. Fenced code blocks are tried before the raw text.
func ExtractJSON(reply string) (string, error) {
	candidates := make([]string, 0, 2)
	for _, m := range codeBlockRe.FindAllStringSubmatch(reply, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, reply)

	for _, c := range candidates {
		if span, ok := firstJSONSpan(c); ok {
			return span, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoJSON, truncate(strings.TrimSpace(reply), 120))
}

// firstJSONSpan scans for '{' or '[' and returns the first balanced span that
// gjson accepts as valid JSON.
func firstJSONSpan(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		end := matchClose(s, i)
		if end < 0 {
			continue
		}
		span := s[i : end+1]
		if gjson.Valid(span) {
			return span, true
		}
	}
	return "", false
}

// matchClose finds the index of the bracket closing s[open], honouring JSON
// string literals. It returns -1 when the span never closes.
func matchClose(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
