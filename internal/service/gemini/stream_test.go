package gemini

import (
	"encoding/json"
	"strings"
	"testing"
)

// frameLine builds one streaming line carrying the given candidate texts.
func frameLine(t *testing.T, texts ...string) string {
	t.Helper()

	content := make([]any, 0, len(texts))
	for _, text := range texts {
		content = append(content, []any{"rc_" + text[:1], []any{text}})
	}
	inner, err := json.Marshal([]any{1, 1, 1, 1, content})
	if err != nil {
		t.Fatalf("failed to build inner frame: %v", err)
	}
	outer, err := json.Marshal([]any{[]any{"wrb.fr", nil, string(inner)}})
	if err != nil {
		t.Fatalf("failed to build outer frame: %v", err)
	}
	return string(outer)
}

func TestDecodeStreamSingleFrame(t *testing.T) {
	body := "5\n" + `[["wrb.fr",null,"[1,1,1,1,[[\"rc_1\",[\"Hello\"]]]]"]]` + "\n"

	text, ok := decodeStream(body)
	if !ok {
		t.Fatal("expected a decoded text")
	}
	if text != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", text)
	}
}

func TestDecodeStreamLongestWins(t *testing.T) {
	body := strings.Join([]string{
		")]}'",
		"12",
		frameLine(t, "Hel"),
		"48",
		frameLine(t, "Hello world"),
	}, "\n")

	text, ok := decodeStream(body)
	if !ok {
		t.Fatal("expected a decoded text")
	}
	if text != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", text)
	}
}

func TestDecodeStreamOrderInvariant(t *testing.T) {
	lines := []string{frameLine(t, "Hel"), frameLine(t, "Hello"), frameLine(t, "He")}

	forward, _ := decodeStream(strings.Join(lines, "\n"))
	reversed, _ := decodeStream(strings.Join([]string{lines[2], lines[1], lines[0]}, "\n"))

	if forward != reversed {
		t.Fatalf("arrival order changed the result: %q vs %q", forward, reversed)
	}
	if forward != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", forward)
	}
}

func TestDecodeStreamIdempotent(t *testing.T) {
	body := frameLine(t, "partial") + "\n" + frameLine(t, "partial answer")

	first, ok1 := decodeStream(body)
	second, ok2 := decodeStream(body)
	if !ok1 || !ok2 || first != second {
		t.Fatalf("decoding twice diverged: %q vs %q", first, second)
	}
}

func TestDecodeStreamSubsetIsPrefix(t *testing.T) {
	lines := []string{frameLine(t, "An"), frameLine(t, "Answ"), frameLine(t, "Answer")}

	partial, _ := decodeStream(strings.Join(lines[:2], "\n"))
	full, _ := decodeStream(strings.Join(lines, "\n"))

	if !strings.HasPrefix(full, partial) {
		t.Fatalf("earlier stream point %q is not a prefix of %q", partial, full)
	}
}

func TestDecodeStreamSkipsMalformedLines(t *testing.T) {
	body := strings.Join([]string{
		"this is not json",
		`[["other.tag",null,"[]"]]`,
		`[["wrb.fr",null,"truncated`,
		frameLine(t, "ok"),
	}, "\n")

	text, ok := decodeStream(body)
	if !ok || text != "ok" {
		t.Fatalf("expected %q, got %q (ok=%v)", "ok", text, ok)
	}
}

func TestDecodeStreamEmpty(t *testing.T) {
	for _, body := range []string{"", ")]}'\n\n7\n", "not json at all"} {
		if text, ok := decodeStream(body); ok {
			t.Fatalf("expected absence for %q, got %q", body, text)
		}
	}
}

func TestDecodeStreamUnescapesText(t *testing.T) {
	line := frameLine(t, `line one\nline two \"quoted\" back\\slash`)

	text, ok := decodeStream(line)
	if !ok {
		t.Fatal("expected a decoded text")
	}
	want := "line one\nline two \"quoted\" back\\slash"
	if text != want {
		t.Fatalf("expected %q, got %q", want, text)
	}
}

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	prompts := []string{
		"plain",
		"line\nbreak",
		`say "hi"`,
		`back\slash`,
		`mix \" of \\ everything` + "\n" + `"`,
		`\n`,
		`\\\`,
		"\n\"\\",
	}

	for _, prompt := range prompts {
		if got := unescapeText(escapePrompt(prompt)); got != prompt {
			t.Fatalf("round trip broke for %q: got %q", prompt, got)
		}
	}
}
