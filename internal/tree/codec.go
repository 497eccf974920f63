package tree

import (
	"net/url"
	"strings"
)

// EncodeSegment escapes a folder name for use as one URL path segment.
// "/" is escaped too, so a name never splits into two segments.
//
// Examples:
//   - EncodeSegment("Q1 Reports") → "Q1%20Reports"
//   - EncodeSegment("a/b") → "a%2Fb"
func EncodeSegment(name string) string {
	return url.PathEscape(name)
}

// DecodeSegment reverses EncodeSegment. Malformed escapes are returned as-is.
func DecodeSegment(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// BuildPath joins encoded names with "/". No names means the data room root ("").
func BuildPath(names []string) string {
	if len(names) == 0 {
		return ""
	}
	encoded := make([]string, len(names))
	for i, name := range names {
		encoded[i] = EncodeSegment(name)
	}
	return strings.Join(encoded, "/")
}

// ParsePath splits a path into decoded names, dropping empty segments so
// "", "/" and "/Reports/" normalize the same way.
func ParsePath(path string) []string {
	var names []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		names = append(names, DecodeSegment(seg))
	}
	return names
}
