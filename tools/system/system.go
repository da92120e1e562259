// Package system provides tools that run code on the local machine:
// python snippets and files, shell commands, and URL fetching.
package system

import (
	"encoding/json"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/pkg/proc"
	"github.com/codriver-ai/codriver/tools"
)

// DefaultTimeoutSeconds applies to executions when the model does not
// ask for a limit.
const DefaultTimeoutSeconds = 60

// NewTools returns the system tool set backed by the given engine.
func NewTools(engine *proc.Engine) []tools.ITool {
	return []tools.ITool{
		NewRunPythonCode(engine),
		NewRunPythonFile(engine),
		NewRunShellCommand(engine),
		NewGetURL(),
	}
}

func unmarshalInput[T any](input string) (*T, error) {
	var req T
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return nil, errors.WithMessage(err, "failed to unmarshal input")
	}
	return &req, nil
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func timeoutOf(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = DefaultTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// pythonExecutable resolves the interpreter to use: the explicit
// request value wins, otherwise python3 then python from PATH.
func pythonExecutable(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no python interpreter found in PATH")
}
