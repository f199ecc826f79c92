package utils

import (
	"strconv"
	"strings"
)

// StripFences removes a surrounding markdown code fence (```lang ... ```) and trims the result.
func StripFences(s string) string {
	out := strings.TrimSpace(s)
	if !strings.HasPrefix(out, "```") {
		return out
	}
	out = strings.TrimPrefix(out, "```")
	if nl := strings.Index(out, "\n"); nl >= 0 {
		// drop the info string, e.g. "json" or "python"
		out = out[nl+1:]
	} else {
		out = ""
	}
	out = strings.TrimSpace(out)
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

// ExtractJSONObject returns the outermost {...} span of s, or s unchanged when there is none.
func ExtractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// AddLineNumbers prefixes each line with its 1-based number.
func AddLineNumbers(code string) string {
	if code == "" {
		return ""
	}
	lines := strings.Split(code, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(": ")
		b.WriteString(line)
	}
	return b.String()
}

// Truncate shortens s to at most n bytes for log fields.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
