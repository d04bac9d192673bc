package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write renders the document as indented JSON at path, creating parent
// directories as needed.
func Write(path string, doc *Document) error {
	if path == "" {
		return fmt.Errorf("output path required")
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export document: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export document: %w", err)
	}
	return nil
}
