// Package classify decides whether a file is a time-tracking day file.
package classify

import (
	"path/filepath"
	"strings"
)

const (
	// Extension is the only extension a day file may carry.
	Extension = "md"
	// Pattern is the autocmd file pattern matching Extension.
	Pattern = "*." + Extension
)

// Classify reports whether docPath is a day file below root: both paths are
// canonicalised (absolute, symlinks resolved) and docPath must be root
// itself or nested under it, with the extension exactly "md".
//
// Classify never fails. Empty paths, missing files and a missing root all
// classify as false.
func Classify(docPath, root string) bool {
	if docPath == "" || root == "" {
		return false
	}
	doc, ok := canonical(docPath)
	if !ok {
		return false
	}
	base, ok := canonical(root)
	if !ok {
		return false
	}
	return within(doc, base) && HasExtension(doc)
}

func canonical(p string) (string, bool) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}
	return resolved, true
}

func within(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// HasExtension reports whether the final extension of p is exactly
// Extension. A dot-file such as ".md" has no extension.
func HasExtension(p string) bool {
	name := filepath.Base(p)
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return false
	}
	return name[dot+1:] == Extension
}
