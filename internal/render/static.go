package render

import (
	"io/fs"
	"os"
	"path/filepath"
)

// copyStatic copies every file under dir into the output. A missing
// directory is ignored.
func copyStatic(dir string, w *writer) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		// #nosec G304 -- p comes from walking the configured static directory
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return w.writeFile(filepath.ToSlash(rel), data)
	})
}
