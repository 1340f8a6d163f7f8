// Package glob compiles key patterns where '*' matches any run of characters
// (including none) into anchored regular expressions. Every other character
// matches itself literally, so keys containing regexp metacharacters such as
// '.', '+' or '[' need no escaping by the caller.
package glob

import (
	"regexp"
	"strings"
)

// Compile translates pattern into an anchored *regexp.Regexp.
// "users:list:*" matches every key under that prefix; "*" matches every key;
// a pattern without '*' matches exactly one key.
func Compile(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}

// Match reports whether key matches pattern. It compiles the pattern on
// every call; loops over many keys should Compile once instead.
func Match(pattern, key string) (bool, error) {
	re, err := Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(key), nil
}
