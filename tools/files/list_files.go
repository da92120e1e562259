package files

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

// ListFilesRequest is the list_files tool input.
type ListFilesRequest struct {
	Directory string `json:"directory,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
	MaxDepth  int    `json:"max_depth,omitempty"`
}

// ListFilesResult is the list_files tool output.
type ListFilesResult struct {
	Success   bool     `json:"success"`
	Directory string   `json:"directory"`
	Files     []string `json:"files"`
	Count     int      `json:"count"`
}

var listFilesParams = []tools.Param{
	{Name: "directory", Type: tools.TypeString, Description: "Directory to list.", Default: "."},
	{Name: "pattern", Type: tools.TypeString, Description: "Glob pattern to match file names against.", Default: ""},
	{Name: "recursive", Type: tools.TypeBoolean, Description: "Descend into subdirectories.", Default: false},
	{Name: "max_depth", Type: tools.TypeInteger, Description: "Depth limit for recursive listing, 0 means unlimited.", Default: 0},
}

// ListFiles lists directory entries, optionally recursive and filtered
// by a glob pattern.
type ListFiles struct {
	root string
}

var _ tools.Tool[ListFilesRequest, ListFilesResult] = (*ListFiles)(nil)

func NewListFiles(root string) *ListFiles {
	return &ListFiles{root: root}
}

func (t *ListFiles) Name() string { return "list_files" }

func (t *ListFiles) Description() string {
	return "List files in a directory. Directory entries end with a path separator."
}

func (t *ListFiles) Permissions() tools.Permissions { return "r" }

func (t *ListFiles) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(listFilesParams)
}

func (t *ListFiles) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[ListFilesRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *ListFiles) Run(_ context.Context, req *ListFilesRequest) (*ListFilesResult, error) {
	dir := req.Directory
	if dir == "" {
		dir = "."
	}
	base := resolve(t.root, dir)

	var files []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator)) + 1

		if d.IsDir() {
			if !req.Recursive && depth >= 1 {
				if req.Pattern == "" || matchName(req.Pattern, d.Name()) {
					files = append(files, rel+string(filepath.Separator))
				}
				return filepath.SkipDir
			}
			if req.MaxDepth > 0 && depth >= req.MaxDepth {
				if req.Pattern == "" || matchName(req.Pattern, d.Name()) {
					files = append(files, rel+string(filepath.Separator))
				}
				return filepath.SkipDir
			}
			if req.Pattern == "" || matchName(req.Pattern, d.Name()) {
				files = append(files, rel+string(filepath.Separator))
			}
			return nil
		}
		if req.Pattern == "" || matchName(req.Pattern, d.Name()) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to list files")
	}

	return &ListFilesResult{
		Success:   true,
		Directory: dir,
		Files:     files,
		Count:     len(files),
	}, nil
}

func matchName(pattern, name string) bool {
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}
