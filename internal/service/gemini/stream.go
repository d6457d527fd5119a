package gemini

import (
	"encoding/json"
	"strings"
)

const (
	// Anti-hijacking prefix on the first line of every reply.
	antiHijackPrefix = ")]}"
	// Tag identifying a streaming line as a reply chunk.
	replyWrapperTag = "wrb.fr"
	// Prefix marking a response-text candidate inside a decoded chunk.
	replyIDPrefix = "rc_"
)

// decodeStream extracts the answer text from the raw streaming reply body.
// The host resends progressively longer prefixes of the final answer across
// successive frames, so the result is a fold over all candidates keeping the
// longest. Lines that fail to parse are expected mid-stream and skipped; the
// second return value is false only when no candidate was found at all.
func decodeStream(body string) (string, bool) {
	var candidates []string
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if line == "" || strings.HasPrefix(line, antiHijackPrefix) {
			continue
		}
		// Bare digit lines are chunk length prefixes, not content.
		if isDigits(line) {
			continue
		}
		candidates = append(candidates, frameCandidates(line)...)
	}

	best := ""
	for _, candidate := range candidates {
		if len(candidate) > len(best) {
			best = candidate
		}
	}
	if best == "" {
		return "", false
	}
	return unescapeText(best), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// frameCandidates parses one line and returns the reply texts it carries.
// The expected shape is [["wrb.fr", _, "<inner json>"]] where the inner
// document holds candidate entries ["rc_*", ["<text>", ...], ...] at index 4.
// Any shape mismatch yields nothing.
func frameCandidates(line string) []string {
	var outer []any
	if err := json.Unmarshal([]byte(line), &outer); err != nil || len(outer) == 0 {
		return nil
	}

	wrapper, ok := outer[0].([]any)
	if !ok || len(wrapper) < 3 {
		return nil
	}
	if tag, ok := wrapper[0].(string); !ok || tag != replyWrapperTag {
		return nil
	}
	innerJSON, ok := wrapper[2].(string)
	if !ok || innerJSON == "" {
		return nil
	}

	var inner []any
	if err := json.Unmarshal([]byte(innerJSON), &inner); err != nil || len(inner) < 5 {
		return nil
	}
	content, ok := inner[4].([]any)
	if !ok {
		return nil
	}

	var texts []string
	for _, item := range content {
		entry, ok := item.([]any)
		if !ok || len(entry) < 2 {
			continue
		}
		id, ok := entry[0].(string)
		if !ok || !strings.HasPrefix(id, replyIDPrefix) {
			continue
		}
		parts, ok := entry[1].([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if text, ok := parts[0].(string); ok {
			texts = append(texts, text)
		}
	}
	return texts
}

// unescapeText reverses the JSON string escaping the host applies to reply
// text: \n, \", and \\ become newline, quote, and backslash. A single pass is
// the exact inverse of escapePrompt; unrecognized escapes pass through.
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
			i++
		case '"':
			b.WriteByte('"')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
