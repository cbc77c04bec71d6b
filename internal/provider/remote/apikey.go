package remote

import "strings"

// ValidateAPIKey checks the remote provider's key format: it must start
// with prefix, contain only alphanumerics and underscores after trimming,
// and its total length (prefix included) must be in [20, 100]. The prefix
// is parameterized per provider rather than hard-coded to a single
// vendor's token shape.
func ValidateAPIKey(key, prefix string) bool {
	key = strings.TrimSpace(key)
	if len(key) < 20 || len(key) > 100 {
		return false
	}
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	body := key[len(prefix):]
	if body == "" {
		return false
	}
	for _, r := range body {
		if !isAlnumOrUnderscore(r) {
			return false
		}
	}
	return true
}

func isAlnumOrUnderscore(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	default:
		return false
	}
}
