// Package fspath contains routines for canonical path manipulation.
//
// A canonical path is absolute, '/'-separated, contains no empty, "." or ".."
// segments and has no trailing separator except for the root "/" itself. Two
// paths denote the same location iff their canonical forms are byte-equal.
package fspath

import "strings"

// Normalize returns the canonical form of raw.
//
// Backslashes are treated as separators, empty and "." segments are dropped
// and ".." pops the previously retained segment. Excess ".." at the root is
// absorbed rather than being an error. Normalize is idempotent.
func Normalize(raw string) string {
	raw = strings.ReplaceAll(raw, `\`, "/")
	segments := make([]string, 0, strings.Count(raw, "/")+1)
	for _, segment := range strings.Split(raw, "/") {
		switch segment {
		case "", ".":
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, segment)
		}
	}
	return "/" + strings.Join(segments, "/")
}

// Join combines parts left to right and normalizes the result. A part that
// starts with a separator discards everything accumulated before it, so
// Join("/a", "/b") is "/b" not "/a/b".
func Join(parts ...string) string {
	combined := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if startsWithSeparator(part) || combined == "" {
			combined = part
		} else {
			combined += "/" + part
		}
	}
	return Normalize(combined)
}

// Split splits a canonical path into its parent directory and leaf name.
// The parent of a top level entry is "/"; the root splits into ("/", "").
func Split(p string) (dir, leaf string) {
	if p == "/" {
		return "/", ""
	}
	i := strings.LastIndex(p, "/")
	dir, leaf = p[:i], p[i+1:]
	if dir == "" {
		dir = "/"
	}
	return dir, leaf
}

// IsRoot reports whether the canonical path p is the root directory.
func IsRoot(p string) bool {
	return p == "/"
}

// EndsWithSeparator reports whether the raw, pre-normalization string ends
// with a path separator. Used to decide whether an unresolved destination
// names a directory or a file.
func EndsWithSeparator(raw string) bool {
	return strings.HasSuffix(raw, "/") || strings.HasSuffix(raw, `\`)
}

func startsWithSeparator(raw string) bool {
	return strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, `\`)
}
