// Package pathutil provides path manipulation for slash-separated volume paths.
package pathutil

import "strings"

// Normalize converts backslash separators to forward slashes. Nothing else
// is rewritten.
func Normalize(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// Base returns the last element of a slash-separated path.
// If path is empty or ".", it returns ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Rel maps an fs.ValidPath name to a path relative to the tree root, where
// the root itself is "".
func Rel(name string) string {
	if name == "." {
		return ""
	}
	return name
}

// DirPrefix converts a directory path to the prefix of its children.
// For "" and ".", returns "" (the root).
func DirPrefix(name string) string {
	if name == "" || name == "." {
		return ""
	}
	return name + "/"
}
