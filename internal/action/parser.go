package action

import (
	"encoding/json"
	"strings"
)

const markerPrefix = "[ACTION:"

// SkippedDirective records a marker whose payload could not be used.
type SkippedDirective struct {
	Type   Type   `json:"type"`
	Offset int    `json:"offset"`
	Reason string `json:"reason"`
}

// ParseOutput is the detailed result of scanning one model reply.
type ParseOutput struct {
	Directives []Directive
	Skipped    []SkippedDirective
}

// Parse returns the well-formed directives in raw, in order of appearance.
// It never fails; a reply without markers yields an empty slice.
func Parse(raw string) []Directive {
	return ParseDetailed(raw).Directives
}

// ParseDetailed is Parse plus the list of markers dropped because their
// payload was missing, unterminated or not a JSON object.
func ParseDetailed(raw string) ParseOutput {
	out := ParseOutput{Directives: []Directive{}}

	pos := 0
	for pos < len(raw) {
		idx := strings.Index(raw[pos:], markerPrefix)
		if idx < 0 {
			break
		}
		start := pos + idx
		tokStart := start + len(markerPrefix)

		closing := strings.IndexByte(raw[tokStart:], ']')
		if closing < 0 {
			break
		}
		token := raw[tokStart : tokStart+closing]
		afterMarker := tokStart + closing + 1

		if !validTypeToken(token) {
			// Not a marker; a real one may start inside the bracketed text.
			pos = tokStart
			continue
		}
		typ := Type(token)

		open := skipSpace(raw, afterMarker)
		if open >= len(raw) || raw[open] != '{' {
			out.Skipped = append(out.Skipped, SkippedDirective{Type: typ, Offset: start, Reason: "no JSON object after marker"})
			pos = afterMarker
			continue
		}

		end, ok := matchObject(raw, open)
		if !ok {
			out.Skipped = append(out.Skipped, SkippedDirective{Type: typ, Offset: start, Reason: "unterminated JSON object"})
			pos = afterMarker
			continue
		}

		body := raw[open:end]
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &obj); err != nil {
			out.Skipped = append(out.Skipped, SkippedDirective{Type: typ, Offset: start, Reason: "invalid JSON: " + err.Error()})
			pos = afterMarker
			continue
		}

		out.Directives = append(out.Directives, Directive{Type: typ, Data: json.RawMessage(body)})
		pos = end
	}
	return out
}

func validTypeToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// matchObject returns the index just past the '}' matching the '{' at open.
// Braces inside string literals are ignored and backslash escapes honoured.
func matchObject(s string, open int) (int, bool) {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
