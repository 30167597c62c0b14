// Package meta extracts the YAML frontmatter header and body from raw
// prompt bytes and derives the listing preview.
package meta

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// PreviewLen is the maximum number of body bytes included in a preview.
const PreviewLen = 100

// Ellipsis is appended to every preview, regardless of body length.
const Ellipsis = "..."

// Result holds the output of extracting a prompt file.
type Result struct {
	Meta map[string]any
	Body string
}

// Extract splits raw into frontmatter metadata and body. It never fails on
// malformed input: a missing, unterminated, or syntactically invalid header
// yields an empty metadata map and the entire input as body. A missing or
// unreadable file is the caller's failure, not this function's.
func Extract(raw []byte) Result {
	m, body := splitHeader(raw)
	return Result{Meta: m, Body: body}
}

// splitHeader separates the YAML header (between leading --- delimiters)
// from the body. The delimiter must start at byte 0.
func splitHeader(raw []byte) (map[string]any, string) {
	const delim = "---"

	if !bytes.HasPrefix(raw, []byte(delim)) {
		return nil, string(raw)
	}

	rest := raw[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter.
		return nil, string(raw)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var m map[string]any
	if err := yaml.Unmarshal(yamlBlock, &m); err != nil {
		return nil, string(raw)
	}
	return m, body
}

// Preview returns the listing snippet for a body: the first PreviewLen
// bytes with newlines collapsed to spaces, trimmed, with Ellipsis appended
// unconditionally (even when the body is shorter than PreviewLen).
func Preview(body string) string {
	flat := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, body)
	flat = strings.TrimSpace(flat)
	if len(flat) > PreviewLen {
		// Back up so the cut never splits a multi-byte rune.
		n := PreviewLen
		for n > 0 && !utf8.RuneStart(flat[n]) {
			n--
		}
		flat = flat[:n]
	}
	return flat + Ellipsis
}
