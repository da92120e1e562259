package files

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

// DeleteFileRequest is the delete_file tool input.
type DeleteFileRequest struct {
	Path string `json:"path"`
}

// DeleteFileResult is the delete_file tool output.
type DeleteFileResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
}

var deleteFileParams = []tools.Param{
	{Name: "path", Type: tools.TypeString, Description: "Path of the file to delete."},
}

// DeleteFile removes a single file.
type DeleteFile struct {
	root string
}

var _ tools.Tool[DeleteFileRequest, DeleteFileResult] = (*DeleteFile)(nil)

func NewDeleteFile(root string) *DeleteFile {
	return &DeleteFile{root: root}
}

func (t *DeleteFile) Name() string { return "delete_file" }

func (t *DeleteFile) Description() string {
	return "Delete a file. Directories are not removed by this tool."
}

func (t *DeleteFile) Permissions() tools.Permissions { return "w" }

func (t *DeleteFile) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(deleteFileParams)
}

func (t *DeleteFile) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[DeleteFileRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *DeleteFile) Run(_ context.Context, req *DeleteFileRequest) (*DeleteFileResult, error) {
	if req.Path == "" {
		return nil, errors.New("invalid request: empty path")
	}
	path := resolve(t.root, req.Path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to stat file")
	}
	if info.IsDir() {
		return nil, errors.Newf("%q is a directory, use remove_directory", req.Path)
	}
	if err := os.Remove(path); err != nil {
		return nil, errors.WithMessage(err, "failed to delete file")
	}

	return &DeleteFileResult{Success: true, Path: req.Path}, nil
}
