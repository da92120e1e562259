package system

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/pkg/proc"
	"github.com/codriver-ai/codriver/tools"
)

// RunShellCommandRequest is the run_shell_command tool input.
type RunShellCommandRequest struct {
	Command          string `json:"command"`
	WorkingDirectory string `json:"working_directory,omitempty"`
	Timeout          int    `json:"timeout,omitempty"`
	CaptureOutput    *bool  `json:"capture_output,omitempty"`
	CaptureErrors    *bool  `json:"capture_errors,omitempty"`
}

var runShellCommandParams = []tools.Param{
	{Name: "command", Type: tools.TypeString, Description: "Shell command line, run with sh -c."},
	{Name: "working_directory", Type: tools.TypeString, Description: "Directory to run in.", Default: ""},
	{Name: "timeout", Type: tools.TypeInteger, Description: "Wall-clock limit in seconds.", Default: DefaultTimeoutSeconds},
	{Name: "capture_output", Type: tools.TypeBoolean, Description: "Capture stdout into the result.", Default: true},
	{Name: "capture_errors", Type: tools.TypeBoolean, Description: "Capture stderr into the result.", Default: true},
}

// RunShellCommand executes a command line through sh -c.
type RunShellCommand struct {
	engine *proc.Engine
}

var _ tools.Tool[RunShellCommandRequest, proc.Result] = (*RunShellCommand)(nil)

func NewRunShellCommand(engine *proc.Engine) *RunShellCommand {
	return &RunShellCommand{engine: engine}
}

func (t *RunShellCommand) Name() string { return "run_shell_command" }

func (t *RunShellCommand) Description() string {
	return "Run a shell command with sh -c and return exit code, output and timing."
}

func (t *RunShellCommand) Permissions() tools.Permissions { return "x" }

func (t *RunShellCommand) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(runShellCommandParams)
}

func (t *RunShellCommand) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[RunShellCommandRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *RunShellCommand) Run(ctx context.Context, req *RunShellCommandRequest) (*proc.Result, error) {
	if req.Command == "" {
		return nil, errors.New("invalid request: empty command")
	}

	return t.engine.Execute(ctx, proc.Request{
		Path:          "sh",
		Args:          []string{"-c", req.Command},
		Dir:           req.WorkingDirectory,
		Timeout:       timeoutOf(req.Timeout),
		CaptureStdout: boolOrDefault(req.CaptureOutput, true),
		CaptureStderr: boolOrDefault(req.CaptureErrors, true),
	}), nil
}
