package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// SourceSuffix marks assembly documents the server analyzes.
const SourceSuffix = ".calx"

func UriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return filepath.FromSlash(u.Path)
}

func PathToURI(absPath string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}
	return u.String()
}

// IsSourceURI reports whether uri names a .calx file.
func IsSourceURI(uri string) bool {
	return strings.HasSuffix(strings.ToLower(uri), SourceSuffix)
}
