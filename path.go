package vdfs

import "github.com/meigma/vdfs/internal/pathutil"

// NormalizePath converts backslash separators to forward slashes.
//
// Nothing else is rewritten: empty segments, leading or trailing slashes
// and "."/".." elements are kept and will not match any stored name.
func NormalizePath(p string) string {
	return pathutil.Normalize(p)
}
