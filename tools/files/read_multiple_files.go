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

// ReadMultipleFilesRequest is the read_multiple_files tool input. Paths
// is a comma-separated list.
type ReadMultipleFilesRequest struct {
	Paths    string `json:"paths"`
	MaxLines int    `json:"max_lines,omitempty"`
}

// FileReadResult is the per-file entry of a read_multiple_files call.
type FileReadResult struct {
	Path    string `json:"path"`
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Lines   int    `json:"lines,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReadMultipleFilesResult is the read_multiple_files tool output.
// Success is true when at least one file was read.
type ReadMultipleFilesResult struct {
	Success         bool             `json:"success"`
	Files           []FileReadResult `json:"files"`
	TotalFiles      int              `json:"total_files"`
	SuccessfulFiles int              `json:"successful_files"`
}

var readMultipleFilesParams = []tools.Param{
	{Name: "paths", Type: tools.TypeString, Description: "Comma-separated list of file paths to read."},
	{Name: "max_lines", Type: tools.TypeInteger, Description: "Maximum number of lines to return per file.", Default: DefaultMaxLines},
}

// ReadMultipleFiles reads several files in one call. A file that cannot
// be read fails its own entry without failing the batch.
type ReadMultipleFiles struct {
	root string
}

var _ tools.Tool[ReadMultipleFilesRequest, ReadMultipleFilesResult] = (*ReadMultipleFiles)(nil)

func NewReadMultipleFiles(root string) *ReadMultipleFiles {
	return &ReadMultipleFiles{root: root}
}

func (t *ReadMultipleFiles) Name() string { return "read_multiple_files" }

func (t *ReadMultipleFiles) Description() string {
	return "Read several text files in one call. Paths are comma-separated; each file reports its own success or error."
}

func (t *ReadMultipleFiles) Permissions() tools.Permissions { return "r" }

func (t *ReadMultipleFiles) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(readMultipleFilesParams)
}

func (t *ReadMultipleFiles) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[ReadMultipleFilesRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *ReadMultipleFiles) Run(_ context.Context, req *ReadMultipleFilesRequest) (*ReadMultipleFilesResult, error) {
	var paths []string
	for _, p := range strings.Split(req.Paths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, errors.New("invalid request: empty paths")
	}
	maxLines := req.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	res := &ReadMultipleFilesResult{
		Files:      make([]FileReadResult, 0, len(paths)),
		TotalFiles: len(paths),
	}
	for _, p := range paths {
		entry := FileReadResult{Path: p}
		content, lines, err := readLimited(resolve(t.root, p), maxLines)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Success = true
			entry.Content = content
			entry.Lines = lines
			res.SuccessfulFiles++
		}
		res.Files = append(res.Files, entry)
	}
	res.Success = res.SuccessfulFiles > 0
	return res, nil
}

func readLimited(path string, maxLines int) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var content []byte
	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() && lines < maxLines {
		content = append(content, scanner.Bytes()...)
		content = append(content, '\n')
		lines++
	}
	if err := scanner.Err(); err != nil {
		return "", 0, err
	}
	return string(content), lines, nil
}
