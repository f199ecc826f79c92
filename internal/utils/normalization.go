package utils

import "strings"

var languageAliases = map[string]string{
	"py":      "python",
	"python3": "python",
	"js":      "javascript",
	"node":    "javascript",
	"ts":      "typescript",
	"golang":  "go",
	"c++":     "cpp",
}

// NormalizeLanguage lowercases a code language and resolves common aliases
func NormalizeLanguage(language string) string {
	l := strings.ToLower(strings.TrimSpace(language))
	if canonical, ok := languageAliases[l]; ok {
		return canonical
	}
	return l
}

func NormalizeLevel(level string) string {
	return strings.ToLower(strings.TrimSpace(level))
}
