package pgn

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`^\s*\[\s*([A-Za-z0-9_]+)\s+"((?:[^"\\]|\\.)*)"\s*\]\s*$`)

type TagPair struct {
	Key   string
	Value string
}

// Headers keeps tag pairs in the order they were read.
type Headers []TagPair

func (h Headers) Get(key string) string {
	for _, tag := range h {
		if tag.Key == key {
			return tag.Value
		}
	}
	return ""
}

func (h Headers) Has(key string) bool {
	for _, tag := range h {
		if tag.Key == key {
			return true
		}
	}
	return false
}

// Set replaces the value of key or appends a new tag pair.
func (h *Headers) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, TagPair{Key: key, Value: value})
}

func (h Headers) Map() map[string]string {
	m := make(map[string]string, len(h))
	for _, tag := range h {
		m[tag.Key] = tag.Value
	}
	return m
}

// ParseHeaders reads leading tag pair lines and returns them together with
// the remaining movetext. Lines that look like tags but do not parse are
// left in the movetext.
func ParseHeaders(text string) (Headers, string) {
	var headers Headers
	lines := strings.Split(text, "\n")

	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		match := tagPattern.FindStringSubmatch(line)
		if match == nil {
			break
		}
		headers.Set(match[1], unescape(match[2]))
	}

	return headers, strings.Join(lines[i:], "\n")
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Escape quotes a tag value for output.
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func IsTagLine(line string) bool {
	return tagPattern.MatchString(line)
}
