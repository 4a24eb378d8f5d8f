// Package content holds the authored lessons shipped with primer.
package content

import (
	"embed"
	"io/fs"
	"os"
)

// FS contains the chapter directories and their lesson files
//
//go:embed */*.yaml
var FS embed.FS

// Open returns the content tree at path, or the embedded lessons when path
// is empty
func Open(path string) fs.FS {
	if path == "" {
		return FS
	}
	return os.DirFS(path)
}
