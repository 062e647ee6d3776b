package filter

import (
	"path/filepath"
	"strings"
)

// matchPattern checks if a URL path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// "/admin/*" matches "/admin" and everything below it, and "*.pdf"
// matches a file name in any directory.
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}

// allowedByPatterns applies ignore patterns first, then follow patterns.
// An empty follow list allows everything that was not ignored.
func allowedByPatterns(path string, ignore, follow []string) bool {
	if path == "" {
		path = "/"
	}
	for _, p := range ignore {
		if matchPattern(p, path) {
			return false
		}
	}
	if len(follow) == 0 {
		return true
	}
	for _, p := range follow {
		if matchPattern(p, path) {
			return true
		}
	}
	return false
}
