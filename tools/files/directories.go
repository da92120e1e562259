package files

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

// CreateDirectoryRequest is the create_directory tool input.
type CreateDirectoryRequest struct {
	Path string `json:"path"`
}

// CreateDirectoryResult is the create_directory tool output.
type CreateDirectoryResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
}

// CreateDirectory creates a directory, with parents.
type CreateDirectory struct {
	root string
}

var _ tools.Tool[CreateDirectoryRequest, CreateDirectoryResult] = (*CreateDirectory)(nil)

func NewCreateDirectory(root string) *CreateDirectory {
	return &CreateDirectory{root: root}
}

func (t *CreateDirectory) Name() string { return "create_directory" }

func (t *CreateDirectory) Description() string {
	return "Create a directory, including missing parents."
}

func (t *CreateDirectory) Permissions() tools.Permissions { return "w" }

func (t *CreateDirectory) Parameters() *jsonschema.Schema {
	return tools.BuildParameters([]tools.Param{
		{Name: "path", Type: tools.TypeString, Description: "Path of the directory to create."},
	})
}

func (t *CreateDirectory) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[CreateDirectoryRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *CreateDirectory) Run(_ context.Context, req *CreateDirectoryRequest) (*CreateDirectoryResult, error) {
	if req.Path == "" {
		return nil, errors.New("invalid request: empty path")
	}
	path := resolve(t.root, req.Path)

	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return nil, errors.Newf("directory %q already exists", req.Path)
		}
		return nil, errors.Newf("%q exists and is not a directory", req.Path)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.WithMessage(err, "failed to create directory")
	}
	return &CreateDirectoryResult{Success: true, Path: req.Path}, nil
}

// RemoveDirectoryRequest is the remove_directory tool input.
type RemoveDirectoryRequest struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive,omitempty"`
}

// RemoveDirectoryResult is the remove_directory tool output.
type RemoveDirectoryResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
}

// RemoveDirectory removes a directory; non-empty directories require
// the recursive flag.
type RemoveDirectory struct {
	root string
}

var _ tools.Tool[RemoveDirectoryRequest, RemoveDirectoryResult] = (*RemoveDirectory)(nil)

func NewRemoveDirectory(root string) *RemoveDirectory {
	return &RemoveDirectory{root: root}
}

func (t *RemoveDirectory) Name() string { return "remove_directory" }

func (t *RemoveDirectory) Description() string {
	return "Remove a directory. Non-empty directories are removed only with recursive set."
}

func (t *RemoveDirectory) Permissions() tools.Permissions { return "w" }

func (t *RemoveDirectory) Parameters() *jsonschema.Schema {
	return tools.BuildParameters([]tools.Param{
		{Name: "path", Type: tools.TypeString, Description: "Path of the directory to remove."},
		{Name: "recursive", Type: tools.TypeBoolean, Description: "Remove contents as well.", Default: false},
	})
}

func (t *RemoveDirectory) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[RemoveDirectoryRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *RemoveDirectory) Run(_ context.Context, req *RemoveDirectoryRequest) (*RemoveDirectoryResult, error) {
	if req.Path == "" {
		return nil, errors.New("invalid request: empty path")
	}
	path := resolve(t.root, req.Path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to stat directory")
	}
	if !info.IsDir() {
		return nil, errors.Newf("%q is not a directory, use delete_file", req.Path)
	}

	if req.Recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to remove directory")
	}
	return &RemoveDirectoryResult{Success: true, Path: req.Path}, nil
}
