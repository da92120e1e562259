package files

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

// ReadFileLinesRequest is the read_file_lines tool input. Line numbers
// are 1-based; zero values mean the start or end of the file.
type ReadFileLinesRequest struct {
	Path     string `json:"path"`
	FromLine int    `json:"from_line,omitempty"`
	ToLine   int    `json:"to_line,omitempty"`
}

// ReadFileLinesResult is the read_file_lines tool output. FromLine and
// ToLine report the range actually returned.
type ReadFileLinesResult struct {
	Success    bool   `json:"success"`
	Path       string `json:"path"`
	Content    string `json:"content"`
	FromLine   int    `json:"from_line"`
	ToLine     int    `json:"to_line"`
	TotalLines int    `json:"total_lines"`
	LinesRead  int    `json:"lines_read"`
}

var readFileLinesParams = []tools.Param{
	{Name: "path", Type: tools.TypeString, Description: "Path of the file to read."},
	{Name: "from_line", Type: tools.TypeInteger, Description: "First line to return, 1-based. Defaults to the start of the file."},
	{Name: "to_line", Type: tools.TypeInteger, Description: "Last line to return, inclusive. Defaults to the end of the file."},
}

// ReadFileLines reads a 1-based line range from a text file.
type ReadFileLines struct {
	root string
}

var _ tools.Tool[ReadFileLinesRequest, ReadFileLinesResult] = (*ReadFileLines)(nil)

func NewReadFileLines(root string) *ReadFileLines {
	return &ReadFileLines{root: root}
}

func (t *ReadFileLines) Name() string { return "read_file_lines" }

func (t *ReadFileLines) Description() string {
	return "Read a range of lines from a text file. Line numbers are 1-based and inclusive."
}

func (t *ReadFileLines) Permissions() tools.Permissions { return "r" }

func (t *ReadFileLines) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(readFileLinesParams)
}

func (t *ReadFileLines) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[ReadFileLinesRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *ReadFileLines) Run(_ context.Context, req *ReadFileLinesRequest) (*ReadFileLinesResult, error) {
	if req.Path == "" {
		return nil, errors.New("invalid request: empty path")
	}
	if req.FromLine < 0 || req.ToLine < 0 {
		return nil, errors.New("invalid request: line numbers must be positive")
	}

	f, err := os.Open(resolve(t.root, req.Path))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to open file")
	}
	defer f.Close()

	// the whole file is scanned so total_lines can be reported and the
	// requested range validated against it
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithMessage(err, "failed to read file")
	}

	total := len(lines)
	from := req.FromLine
	if from == 0 {
		from = 1
	}
	to := req.ToLine
	if to == 0 {
		to = total
	}
	if total > 0 && from > total {
		return nil, errors.Newf("from_line (%d) is out of range, the file has %d lines", from, total)
	}
	if to > total {
		return nil, errors.Newf("to_line (%d) is out of range, the file has %d lines", to, total)
	}
	if from > to && total > 0 {
		return nil, errors.Newf("from_line (%d) cannot be greater than to_line (%d)", from, to)
	}

	var content string
	read := 0
	if total > 0 {
		selected := lines[from-1 : to]
		read = len(selected)
		content = strings.Join(selected, "\n") + "\n"
	}

	return &ReadFileLinesResult{
		Success:    true,
		Path:       req.Path,
		Content:    content,
		FromLine:   from,
		ToLine:     to,
		TotalLines: total,
		LinesRead:  read,
	}, nil
}
