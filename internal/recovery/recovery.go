// Package recovery rebuilds JSON text from the corrupted values found in the
// OneTab Chrome extension's LevelDB store.
//
// The stored bytes interleave a filler 0x00 byte with the text and carry
// escapes that look like a debug dump of a byte string rather than JSON. The
// rewrite pipeline below was worked out against real exported profiles. It is
// lossy on purpose: bytes it cannot map back to text become Placeholder.
package recovery

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Placeholder marks a byte that could not be recovered.
const Placeholder = "\ufffd"

// escapedPlaceholder is the JSON escape form of Placeholder.
const escapedPlaceholder = `\ufffd`

// Step is a single text rewrite in the recovery pipeline.
type Step struct {
	Name  string
	Apply func(string) string
}

// Rule is a literal find/replace pair.
type Rule struct {
	Find    string
	Replace string
}

// Rules repairs multi-byte UTF-8 punctuation that the debug rendering split
// into \xHH escapes. Applied in order. Longer sequences must come before any
// rule matching one of their prefixes.
var Rules = []Rule{
	{`\xef\xbf\xbd`, escapedPlaceholder}, // U+FFFD already present in the source
	{`\xe2\x80\x98`, "‘"},
	{`\xe2\x80\x99`, "’"},
	{`\xe2\x80\x9c`, "“"},
	{`\xe2\x80\x9d`, "”"},
	{`\xe2\x80\x93`, "–"},
	{`\xe2\x80\x94`, "—"},
	{`\xe2\x80\xa2`, "•"},
	{`\xe2\x80\xa6`, "…"},
	{`\xc2\xa0`, " "},
	{`\xc2\xb7`, "·"},
	{`\xc2\xbb`, "»"},
	{`\xc2\xab`, "«"},
}

var hexEscape = regexp.MustCompile(`\\x[0-9a-fA-F]{2}`)

// Steps is the ordered recovery pipeline applied after the filler bytes are
// stripped and the remaining bytes rendered (see Render).
var Steps = []Step{
	{Name: "collapse backslashes", Apply: func(s string) string {
		return strings.ReplaceAll(s, `\\`, `\`)
	}},
	{Name: "substitution table", Apply: applyRules},
	{Name: "unescape single quote", Apply: func(s string) string {
		return strings.ReplaceAll(s, `\'`, `'`)
	}},
	{Name: "drop carriage returns", Apply: func(s string) string {
		return strings.ReplaceAll(s, `\r`, "")
	}},
	{Name: "mark unrecoverable bytes", Apply: func(s string) string {
		return hexEscape.ReplaceAllLiteralString(s, Placeholder)
	}},
	{Name: "unescape placeholder", Apply: func(s string) string {
		return strings.ReplaceAll(s, escapedPlaceholder, Placeholder)
	}},
}

func applyRules(s string) string {
	for _, r := range Rules {
		s = strings.ReplaceAll(s, r.Find, r.Replace)
	}
	return s
}

// StripFiller removes every 0x00 byte from raw.
func StripFiller(raw []byte) []byte {
	return bytes.ReplaceAll(raw, []byte{0}, nil)
}

// Render returns the body of a debug-style byte string literal for b.
// Printable ASCII passes through, backslash and single quote are escaped,
// tab/newline/CR use their short escapes and all other bytes become \xhh.
func Render(b []byte) string {
	const hex = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '\'':
			sb.WriteString(`\'`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			sb.WriteString(`\x`)
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0x0f])
		}
	}
	return sb.String()
}

// Clean runs Steps over rendered text.
func Clean(rendered string) string {
	s := rendered
	for _, step := range Steps {
		s = step.Apply(s)
	}
	return s
}

// Recover turns raw store bytes into JSON text. It returns a *MalformedError
// when the result is not valid JSON.
func Recover(raw []byte) (string, error) {
	rendered := Render(StripFiller(raw))
	text := Clean(rendered)

	var parsed json.RawMessage
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return text, newMalformedError(err, rendered, text)
	}
	return text, nil
}
