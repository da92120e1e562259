package files

import (
	"bufio"
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

// DefaultMaxLines bounds read_file output when the model does not ask
// for a limit.
const DefaultMaxLines = 500

// ReadFileRequest is the read_file tool input.
type ReadFileRequest struct {
	Path     string `json:"path"`
	MaxLines int    `json:"max_lines,omitempty"`
}

// ReadFileResult is the read_file tool output.
type ReadFileResult struct {
	Success   bool   `json:"success"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	Lines     int    `json:"lines"`
	Truncated bool   `json:"truncated,omitempty"`
}

var readFileParams = []tools.Param{
	{Name: "path", Type: tools.TypeString, Description: "Path of the file to read."},
	{Name: "max_lines", Type: tools.TypeInteger, Description: "Maximum number of lines to return.", Default: DefaultMaxLines},
}

// ReadFile reads a text file, up to a line limit.
type ReadFile struct {
	root string
}

var _ tools.Tool[ReadFileRequest, ReadFileResult] = (*ReadFile)(nil)

func NewReadFile(root string) *ReadFile {
	return &ReadFile{root: root}
}

func (t *ReadFile) Name() string { return "read_file" }

func (t *ReadFile) Description() string {
	return "Read a text file and return its content, up to max_lines lines."
}

func (t *ReadFile) Permissions() tools.Permissions { return "r" }

func (t *ReadFile) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(readFileParams)
}

func (t *ReadFile) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[ReadFileRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *ReadFile) Run(_ context.Context, req *ReadFileRequest) (*ReadFileResult, error) {
	if req.Path == "" {
		return nil, errors.New("invalid request: empty path")
	}
	maxLines := req.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	f, err := os.Open(resolve(t.root, req.Path))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to open file")
	}
	defer f.Close()

	var content []byte
	lines := 0
	truncated := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if lines >= maxLines {
			truncated = true
			break
		}
		content = append(content, scanner.Bytes()...)
		content = append(content, '\n')
		lines++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithMessage(err, "failed to read file")
	}

	return &ReadFileResult{
		Success:   true,
		Path:      req.Path,
		Content:   string(content),
		Lines:     lines,
		Truncated: truncated,
	}, nil
}
