package system

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/pkg/proc"
	"github.com/codriver-ai/codriver/tools"
)

// RunPythonCodeRequest is the run_python_code tool input.
type RunPythonCodeRequest struct {
	Code             string `json:"code"`
	WorkingDirectory string `json:"working_directory,omitempty"`
	Timeout          int    `json:"timeout,omitempty"`
	CaptureOutput    *bool  `json:"capture_output,omitempty"`
	CaptureErrors    *bool  `json:"capture_errors,omitempty"`
	PythonExecutable string `json:"python_executable,omitempty"`
}

var runPythonCodeParams = []tools.Param{
	{Name: "code", Type: tools.TypeString, Description: "Python source to execute."},
	{Name: "working_directory", Type: tools.TypeString, Description: "Directory to run in.", Default: ""},
	{Name: "timeout", Type: tools.TypeInteger, Description: "Wall-clock limit in seconds.", Default: DefaultTimeoutSeconds},
	{Name: "capture_output", Type: tools.TypeBoolean, Description: "Capture stdout into the result.", Default: true},
	{Name: "capture_errors", Type: tools.TypeBoolean, Description: "Capture stderr into the result.", Default: true},
	{Name: "python_executable", Type: tools.TypeString, Description: "Interpreter to use instead of python3 from PATH.", Default: ""},
}

// RunPythonCode executes a python snippet in a subprocess.
type RunPythonCode struct {
	engine *proc.Engine
}

var _ tools.Tool[RunPythonCodeRequest, proc.Result] = (*RunPythonCode)(nil)

func NewRunPythonCode(engine *proc.Engine) *RunPythonCode {
	return &RunPythonCode{engine: engine}
}

func (t *RunPythonCode) Name() string { return "run_python_code" }

func (t *RunPythonCode) Description() string {
	return "Execute python code in a subprocess and return exit code, output and timing."
}

func (t *RunPythonCode) Permissions() tools.Permissions { return "x" }

func (t *RunPythonCode) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(runPythonCodeParams)
}

func (t *RunPythonCode) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[RunPythonCodeRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *RunPythonCode) Run(ctx context.Context, req *RunPythonCodeRequest) (*proc.Result, error) {
	if req.Code == "" {
		return nil, errors.New("invalid request: empty code")
	}
	python, err := pythonExecutable(req.PythonExecutable)
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "codriver-*.py")
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create temp file")
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(req.Code); err != nil {
		f.Close()
		return nil, errors.WithMessage(err, "failed to write code")
	}
	if err := f.Close(); err != nil {
		return nil, errors.WithMessage(err, "failed to write code")
	}

	return t.engine.Execute(ctx, proc.Request{
		Path:          python,
		Args:          []string{f.Name()},
		Dir:           req.WorkingDirectory,
		Timeout:       timeoutOf(req.Timeout),
		CaptureStdout: boolOrDefault(req.CaptureOutput, true),
		CaptureStderr: boolOrDefault(req.CaptureErrors, true),
	}), nil
}

// RunPythonFileRequest is the run_python_file tool input.
type RunPythonFileRequest struct {
	Path             string `json:"path"`
	Args             string `json:"args,omitempty"`
	WorkingDirectory string `json:"working_directory,omitempty"`
	Timeout          int    `json:"timeout,omitempty"`
	CaptureOutput    *bool  `json:"capture_output,omitempty"`
	CaptureErrors    *bool  `json:"capture_errors,omitempty"`
	PythonExecutable string `json:"python_executable,omitempty"`
}

var runPythonFileParams = []tools.Param{
	{Name: "path", Type: tools.TypeString, Description: "Python file to execute."},
	{Name: "args", Type: tools.TypeString, Description: "Space-separated arguments passed to the script.", Default: ""},
	{Name: "working_directory", Type: tools.TypeString, Description: "Directory to run in.", Default: ""},
	{Name: "timeout", Type: tools.TypeInteger, Description: "Wall-clock limit in seconds.", Default: DefaultTimeoutSeconds},
	{Name: "capture_output", Type: tools.TypeBoolean, Description: "Capture stdout into the result.", Default: true},
	{Name: "capture_errors", Type: tools.TypeBoolean, Description: "Capture stderr into the result.", Default: true},
	{Name: "python_executable", Type: tools.TypeString, Description: "Interpreter to use instead of python3 from PATH.", Default: ""},
}

// RunPythonFile executes a python script in a subprocess.
type RunPythonFile struct {
	engine *proc.Engine
}

var _ tools.Tool[RunPythonFileRequest, proc.Result] = (*RunPythonFile)(nil)

func NewRunPythonFile(engine *proc.Engine) *RunPythonFile {
	return &RunPythonFile{engine: engine}
}

func (t *RunPythonFile) Name() string { return "run_python_file" }

func (t *RunPythonFile) Description() string {
	return "Execute a python file in a subprocess and return exit code, output and timing."
}

func (t *RunPythonFile) Permissions() tools.Permissions { return "x" }

func (t *RunPythonFile) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(runPythonFileParams)
}

func (t *RunPythonFile) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[RunPythonFileRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *RunPythonFile) Run(ctx context.Context, req *RunPythonFileRequest) (*proc.Result, error) {
	if req.Path == "" {
		return nil, errors.New("invalid request: empty path")
	}
	python, err := pythonExecutable(req.PythonExecutable)
	if err != nil {
		return nil, err
	}

	args := []string{req.Path}
	if req.Args != "" {
		args = append(args, strings.Fields(req.Args)...)
	}

	return t.engine.Execute(ctx, proc.Request{
		Path:          python,
		Args:          args,
		Dir:           req.WorkingDirectory,
		Timeout:       timeoutOf(req.Timeout),
		CaptureStdout: boolOrDefault(req.CaptureOutput, true),
		CaptureStderr: boolOrDefault(req.CaptureErrors, true),
	}), nil
}
