// Package keypath handles dotted key paths such as "accounts.accountInternalId".
package keypath

import (
	"fmt"
	"strings"
)

// Separator joins the segments of a key path
const Separator = "."

// Split splits a dotted key path into its segments.
func Split(path string) []string {
	return strings.Split(path, Separator)
}

// Validate reports whether path is a well-formed key path: non-empty and
// without empty segments.
func Validate(path string) error {
	if path == "" {
		return fmt.Errorf("key path is empty")
	}
	for i, seg := range Split(path) {
		if seg == "" {
			return fmt.Errorf("key path %q has an empty segment at position %d", path, i)
		}
	}
	return nil
}
