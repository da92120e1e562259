package files

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

// CreateFileRequest is the create_file tool input.
type CreateFileRequest struct {
	Path      string `json:"path"`
	Content   string `json:"content,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

// CreateFileResult is the create_file tool output.
type CreateFileResult struct {
	Success      bool   `json:"success"`
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
}

var createFileParams = []tools.Param{
	{Name: "path", Type: tools.TypeString, Description: "Path of the file to create."},
	{Name: "content", Type: tools.TypeString, Description: "Content to write.", Default: ""},
	{Name: "overwrite", Type: tools.TypeBoolean, Description: "Replace the file if it already exists.", Default: false},
}

// CreateFile writes a new file, creating parent directories as needed.
type CreateFile struct {
	root string
}

var _ tools.Tool[CreateFileRequest, CreateFileResult] = (*CreateFile)(nil)

func NewCreateFile(root string) *CreateFile {
	return &CreateFile{root: root}
}

func (t *CreateFile) Name() string { return "create_file" }

func (t *CreateFile) Description() string {
	return "Create a file with the given content. Fails if the file exists unless overwrite is set."
}

func (t *CreateFile) Permissions() tools.Permissions { return "w" }

func (t *CreateFile) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(createFileParams)
}

func (t *CreateFile) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[CreateFileRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *CreateFile) Run(_ context.Context, req *CreateFileRequest) (*CreateFileResult, error) {
	if req.Path == "" {
		return nil, errors.New("invalid request: empty path")
	}
	path := resolve(t.root, req.Path)

	if !req.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, errors.Newf("file %q already exists, pass overwrite to replace it", req.Path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.WithMessage(err, "failed to create parent directory")
	}
	if err := os.WriteFile(path, []byte(req.Content), 0o644); err != nil {
		return nil, errors.WithMessage(err, "failed to write file")
	}

	return &CreateFileResult{
		Success:      true,
		Path:         req.Path,
		BytesWritten: len(req.Content),
	}, nil
}
