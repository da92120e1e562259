package files

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

// ReplaceTextRequest is the replace_text_in_file tool input.
type ReplaceTextRequest struct {
	Path       string `json:"path"`
	OldText    string `json:"old_text"`
	NewText    string `json:"new_text"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

// ReplaceTextResult is the replace_text_in_file tool output.
type ReplaceTextResult struct {
	Success      bool   `json:"success"`
	Path         string `json:"path"`
	Replacements int    `json:"replacements"`
}

var replaceTextParams = []tools.Param{
	{Name: "path", Type: tools.TypeString, Description: "Path of the file to edit."},
	{Name: "old_text", Type: tools.TypeString, Description: "Exact text to replace."},
	{Name: "new_text", Type: tools.TypeString, Description: "Replacement text."},
	{Name: "replace_all", Type: tools.TypeBoolean, Description: "Replace every occurrence instead of requiring a unique match.", Default: false},
}

// ReplaceTextInFile performs exact text replacement in a file.
type ReplaceTextInFile struct {
	root string
}

var _ tools.Tool[ReplaceTextRequest, ReplaceTextResult] = (*ReplaceTextInFile)(nil)

func NewReplaceTextInFile(root string) *ReplaceTextInFile {
	return &ReplaceTextInFile{root: root}
}

func (t *ReplaceTextInFile) Name() string { return "replace_text_in_file" }

func (t *ReplaceTextInFile) Description() string {
	return "Replace exact text in a file. Without replace_all the old text must occur exactly once."
}

func (t *ReplaceTextInFile) Permissions() tools.Permissions { return "w" }

func (t *ReplaceTextInFile) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(replaceTextParams)
}

func (t *ReplaceTextInFile) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[ReplaceTextRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *ReplaceTextInFile) Run(_ context.Context, req *ReplaceTextRequest) (*ReplaceTextResult, error) {
	if req.Path == "" {
		return nil, errors.New("invalid request: empty path")
	}
	if req.OldText == "" {
		return nil, errors.New("invalid request: empty old_text")
	}
	path := resolve(t.root, req.Path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read file")
	}
	content := string(data)

	count := strings.Count(content, req.OldText)
	if count == 0 {
		return nil, errors.Newf("text not found in %q", req.Path)
	}
	if count > 1 && !req.ReplaceAll {
		return nil, errors.Newf("text occurs %d times in %q, pass replace_all or make old_text unique", count, req.Path)
	}

	replacements := 1
	if req.ReplaceAll {
		content = strings.ReplaceAll(content, req.OldText, req.NewText)
		replacements = count
	} else {
		content = strings.Replace(content, req.OldText, req.NewText, 1)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to stat file")
	}
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return nil, errors.WithMessage(err, "failed to write file")
	}

	return &ReplaceTextResult{
		Success:      true,
		Path:         req.Path,
		Replacements: replacements,
	}, nil
}
