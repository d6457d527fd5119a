package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// envelopeArity is the fixed length of the inner positional array. The host
// deserializes by position, so unused slots must stay null and the arity must
// never change.
const envelopeArity = 62

// Named slots carrying meaningful data. Everything else is reserved.
const (
	slotPrompt       = 0
	slotLocale       = 1
	slotClientMeta   = 2
	slotToken        = 3
	slotSessionToken = 4
	slotRequestUUID  = 59
)

// mediaDiscriminator marks an attached-media reference inside the prompt
// sub-array.
const mediaDiscriminator = 1

// payloadInput carries everything the encoder needs. SessionToken and
// RequestUUID are the only sources of per-call variation besides the prompt;
// supplying them explicitly keeps the encoding deterministic under test.
type payloadInput struct {
	Prompt       string
	Token        string
	Locale       string
	MediaRef     string
	SessionToken string
	RequestUUID  string
}

// newSessionToken returns an opaque 32-hex-digit identifier. It only has to
// be well-formed and unique per request; nothing server-side matches it.
func newSessionToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// newRequestUUID returns the upper-cased canonical request identifier.
func newRequestUUID() string {
	return strings.ToUpper(uuid.NewString())
}

// escapePrompt prepares the prompt for embedding as a JSON string literal.
// Backslash goes first so the escapes added for quotes and newlines are not
// themselves escaped.
func escapePrompt(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// buildEnvelope fills the fixed-arity positional frame. When a media
// reference is present the prompt sub-array grows one trailing element
// pairing the reference with the attached-media discriminator.
func buildEnvelope(in payloadInput) []any {
	envelope := make([]any, envelopeArity)

	promptPart := []any{escapePrompt(in.Prompt), 0, nil, nil, nil, nil, 0}
	if in.MediaRef != "" {
		promptPart = append(promptPart, nil, []any{[]any{[]any{in.MediaRef, mediaDiscriminator}, nil}})
	}

	envelope[slotPrompt] = promptPart
	envelope[slotLocale] = []any{in.Locale}
	envelope[slotClientMeta] = []any{"", "", "", nil, nil, nil, nil, nil, nil, ""}
	envelope[slotToken] = in.Token
	envelope[slotSessionToken] = in.SessionToken
	envelope[slotRequestUUID] = in.RequestUUID

	// Fixed values observed in captured traffic. Meaning unknown; only their
	// placement matters.
	envelope[6] = []any{0}
	envelope[7] = 1
	envelope[10] = 1
	envelope[11] = 0
	envelope[17] = []any{[]any{0}}
	envelope[18] = 0
	envelope[27] = 1
	envelope[30] = []any{4}
	envelope[41] = []any{2}
	envelope[53] = 0
	envelope[61] = []any{}

	return envelope
}

// marshalCompact serializes without HTML escaping or trailing whitespace so
// the bytes match what the web client produces.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// encodeForm produces the URL-encoded form body: the serialized envelope is
// escaped a second time because it travels as a string inside the outer
// two-element array held by the f.req field.
func encodeForm(in payloadInput) (url.Values, error) {
	raw, err := marshalCompact(buildEnvelope(in))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload envelope: %w", err)
	}

	escaped := strings.ReplaceAll(string(raw), `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)

	form := url.Values{}
	form.Set("f.req", `[null,"`+escaped+`"]`)
	form.Set("", "")
	return form, nil
}
