package adblock

import "strings"

const (
	hostAnchor      = "||"
	boundaryMarker  = "^"
	exceptionPrefix = "@@"
	commentPrefix   = '!'
	optionsMarker   = '$'
)

// IsValidString reports whether s carries any content. The empty string is
// treated as absent input.
func IsValidString(s string) bool {
	return s != ""
}

// IsEmptyLine reports whether line is empty or consists only of whitespace.
func IsEmptyLine(line string) bool {
	return strings.TrimSpace(line) == ""
}

// IsCommentLine reports whether the untrimmed line starts with '!'.
func IsCommentLine(line string) bool {
	return len(line) > 0 && line[0] == commentPrefix
}

// IsValidRulePattern reports whether s is a host-anchored pattern: "||",
// a non-empty host, "^".
func IsValidRulePattern(s string) bool {
	if !strings.HasPrefix(s, hostAnchor) || !strings.HasSuffix(s, boundaryMarker) {
		return false
	}
	return len(s) > len(hostAnchor)+len(boundaryMarker)
}

// ValidateDomain reports whether d is made of ASCII letters, digits, '-' and
// '.', optionally starting with a single "*." segment. Further '*' segments are
// allowed so that patterns like "*.*.example.com" survive validation.
func ValidateDomain(d string) bool {
	if d == "" || strings.Contains(d, "..") {
		return false
	}
	if d[0] == '.' || d[len(d)-1] == '.' {
		return false
	}

	for i := 0; i < len(d); i++ {
		c := d[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '*':
		default:
			return false
		}
	}

	// 必须至少有一个非通配符字符
	return strings.Trim(d, "*.") != ""
}
