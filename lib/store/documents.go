package store

import (
	"fmt"
	"os"
	"path/filepath"

	"portalcrawl/lib/textutil"
)

// DocumentDir saves documents as <Root>/<key>/<name>. A document saved
// under an existing name replaces it.
type DocumentDir struct {
	Root string
}

func (d DocumentDir) SaveDocument(key, name string, body []byte) (string, error) {
	dir := filepath.Join(d.Root, textutil.SanitizeFilename(key, textutil.DefaultFilenameLength))
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}
	path := filepath.Join(dir, textutil.SanitizeFilename(name, textutil.DefaultFilenameLength))
	err = os.WriteFile(path, body, 0644)
	if err != nil {
		return "", fmt.Errorf("save document: %w", err)
	}
	return path, nil
}
