// Package files provides filesystem tools: reading, writing, searching
// and directory management rooted at a base directory.
package files

import (
	"encoding/json"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

// NewTools returns the filesystem tool set. Relative paths in tool
// arguments resolve against root; an empty root means the caller's
// working directory.
func NewTools(root string) []tools.ITool {
	return []tools.ITool{
		NewReadFile(root),
		NewReadFileLines(root),
		NewReadMultipleFiles(root),
		NewCreateFile(root),
		NewReplaceTextInFile(root),
		NewDeleteFile(root),
		NewListFiles(root),
		NewSearchText(root),
		NewSearchRegex(root),
		NewCreateDirectory(root),
		NewRemoveDirectory(root),
	}
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

func unmarshalInput[T any](input string) (*T, error) {
	var req T
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return nil, errors.WithMessage(err, "failed to unmarshal input")
	}
	return &req, nil
}
