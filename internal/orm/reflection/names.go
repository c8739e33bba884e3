package reflection

import "regexp"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// isIdentifier reports whether s is a plain identifier. Relationship names
// must be identifiers, not arbitrary strings or expressions.
func isIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// toSnakeCase converts a type or relationship name to snake_case.
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				// Acronym runs split only before the last letter:
				// "APIKey" -> "api_key", "UserID" -> "user_id".
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}

// pluralize applies the naive English plural rules, the inverse of the
// singular derivation used for relationship names: "post" -> "posts",
// "story" -> "stories", "box" -> "boxes".
func pluralize(s string) string {
	if s == "" {
		return s
	}
	last := s[len(s)-1]
	switch {
	case last == 'y' && len(s) > 1 && !isVowel(s[len(s)-2]):
		return s[:len(s)-1] + "ies"
	case last == 's' || last == 'x' || last == 'z':
		return s + "es"
	case len(s) > 1 && (s[len(s)-2:] == "ch" || s[len(s)-2:] == "sh"):
		return s + "es"
	default:
		return s + "s"
	}
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// TableName returns the storage table name for a type name: snake_case,
// pluralized ("Post" -> "posts", "ReleaseNote" -> "release_notes").
func TableName(typeName string) string {
	return pluralize(toSnakeCase(typeName))
}
