// Package xmltool recovers tool calls that a backend has mis-encoded as
// in-band XML-like markup inside ordinary text content, rather than as
// native structured tool-call deltas.
package xmltool

import (
	"encoding/json"
	"strings"
)

// Call is a tool call recovered from text.
type Call struct {
	Name      string
	Arguments string
}

// ContainsMarkup reports whether text carries any of the XML-tool-call
// markers, case-insensitively. It is the cheap pre-check the orchestrator
// uses to decide whether to start buffering at all.
func ContainsMarkup(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "<function=") ||
		strings.Contains(lower, "</function>") ||
		strings.Contains(lower, "<tool_call") ||
		strings.Contains(lower, "</tool_call>") ||
		strings.Contains(lower, "<parameter=")
}

// Extract scans text left to right for <function=NAME>...<parameter=KEY>VALUE
// </parameter>...</function> (or </tool_call>) blocks, removes each matched
// span, and returns the cleaned remainder plus the calls found in order.
//
// If text contains none of the markers at all, it is returned unchanged
// (trimmed) with no calls. A <function= with no matching closing tag is left
// in place untouched — the caller should keep buffering until more text
// arrives.
func Extract(text string) (string, []Call) {
	if !ContainsMarkup(text) {
		return strings.TrimSpace(text), nil
	}

	var calls []Call
	cleaned := text

	searchFrom := 0
	for {
		funcStart := indexFrom(cleaned, "<function=", searchFrom)
		if funcStart < 0 {
			break
		}

		nameStart := funcStart + len("<function=")
		nameEnd := strings.IndexByte(cleaned[nameStart:], '>')
		if nameEnd < 0 {
			break
		}
		nameEnd += nameStart
		name := cleaned[nameStart:nameEnd]

		contentStart := nameEnd + 1
		endTag, ok := findClosingTag(cleaned, contentStart)
		if !ok {
			// Incomplete call: stop trying from here, but keep scanning
			// past the name in case a later, complete call exists.
			searchFrom = nameEnd + 1
			continue
		}

		content := cleaned[contentStart:endTag.contentEnd]
		arguments := extractParameters(content)

		calls = append(calls, Call{Name: name, Arguments: arguments})

		cleaned = cleaned[:funcStart] + cleaned[endTag.tagEnd:]
		searchFrom = funcStart
	}

	return strings.TrimSpace(cleaned), calls
}

type closingTag struct {
	contentEnd int
	tagEnd     int
}

// findClosingTag locates the nearer of </function> or </tool_call> starting
// at from, returning the span of text before the tag and the offset just
// past it.
func findClosingTag(s string, from int) (closingTag, bool) {
	const closeFunc = "</function>"
	const closeToolCall = "</tool_call>"

	funcIdx := indexFrom(s, closeFunc, from)
	toolCallIdx := indexFrom(s, closeToolCall, from)

	switch {
	case funcIdx < 0 && toolCallIdx < 0:
		return closingTag{}, false
	case funcIdx < 0:
		return closingTag{contentEnd: toolCallIdx, tagEnd: toolCallIdx + len(closeToolCall)}, true
	case toolCallIdx < 0:
		return closingTag{contentEnd: funcIdx, tagEnd: funcIdx + len(closeFunc)}, true
	case funcIdx <= toolCallIdx:
		return closingTag{contentEnd: funcIdx, tagEnd: funcIdx + len(closeFunc)}, true
	default:
		return closingTag{contentEnd: toolCallIdx, tagEnd: toolCallIdx + len(closeToolCall)}, true
	}
}

// extractParameters parses zero or more <parameter=KEY>VALUE</parameter>
// pairs from content and serializes them as a JSON object.
func extractParameters(content string) string {
	params := make(map[string]string)
	paramStart := 0

	for {
		idx := indexFrom(content, "<parameter=", paramStart)
		if idx < 0 {
			break
		}
		nameStart := idx + len("<parameter=")
		nameEnd := strings.IndexByte(content[nameStart:], '>')
		if nameEnd < 0 {
			break
		}
		nameEnd += nameStart
		paramName := content[nameStart:nameEnd]

		valueStart := nameEnd + 1
		valueEnd := indexFrom(content, "</parameter>", valueStart)
		if valueEnd < 0 {
			break
		}
		value := strings.TrimSpace(content[valueStart:valueEnd])
		params[paramName] = value

		paramStart = valueEnd + len("</parameter>")
	}

	data, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}
	idx := strings.Index(s[from:], substr)
	if idx < 0 {
		return -1
	}
	return idx + from
}
