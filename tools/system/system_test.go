package system_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codriver-ai/codriver/pkg/proc"
	"github.com/codriver-ai/codriver/tools/system"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
}

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		if _, err := exec.LookPath("python"); err != nil {
			t.Skip("requires a python interpreter")
		}
	}
}

func TestNewTools(t *testing.T) {
	list := system.NewTools(proc.NewEngine())
	require.Len(t, list, 4)
	names := make([]string, 0, len(list))
	for _, tool := range list {
		names = append(names, tool.Name())
		assert.NotNil(t, tool.Parameters())
	}
	assert.Equal(t, []string{"run_python_code", "run_python_file", "run_shell_command", "get_url"}, names)
}

func TestRunShellCommand(t *testing.T) {
	requireShell(t)

	tool := system.NewRunShellCommand(proc.NewEngine())
	res, err := tool.Run(context.Background(), &system.RunShellCommandRequest{
		Command: `printf "out\n"; printf "err\n" >&2`,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.Stdout)
	assert.Equal(t, "out\n", *res.Stdout)
	require.NotNil(t, res.Stderr)
	assert.Equal(t, "err\n", *res.Stderr)

	_, err = tool.Run(context.Background(), &system.RunShellCommandRequest{})
	require.Error(t, err)
}

func TestRunShellCommandCall(t *testing.T) {
	requireShell(t)

	tool := system.NewRunShellCommand(proc.NewEngine())
	out, err := tool.Call(context.Background(), `{"command":"echo hi","capture_errors":false}`)
	require.NoError(t, err)

	var res proc.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	require.NotNil(t, res.Stdout)
	assert.Equal(t, "hi\n", *res.Stdout)
	assert.Nil(t, res.Stderr)
}

func TestRunPythonCode(t *testing.T) {
	requirePython(t)

	tool := system.NewRunPythonCode(proc.NewEngine())
	res, err := tool.Run(context.Background(), &system.RunPythonCodeRequest{
		Code: "print('hello')",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	require.NotNil(t, res.Stdout)
	assert.Equal(t, "hello\n", *res.Stdout)

	// failing code is reported in the result, not as an error
	res, err = tool.Run(context.Background(), &system.RunPythonCodeRequest{
		Code: "import sys; sys.exit(2)",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.ExitCode)

	_, err = tool.Run(context.Background(), &system.RunPythonCodeRequest{})
	require.Error(t, err)
}

func TestRunPythonFile(t *testing.T) {
	requirePython(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "script.py")
	require.NoError(t,
		writeScript(path, "import sys\nprint(' '.join(sys.argv[1:]))\n"))

	tool := system.NewRunPythonFile(proc.NewEngine())
	res, err := tool.Run(context.Background(), &system.RunPythonFileRequest{
		Path: path,
		Args: "a b",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.Stdout)
	assert.Equal(t, "a b\n", *res.Stdout)
}

func TestGetURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><script>bad()</script></head><body><h1>Title</h1><p>Hello <b>world</b></p></body></html>`))
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("plain text"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tool := system.NewGetURL().WithHTTPClient(srv.Client())

	res, err := tool.Run(context.Background(), &system.GetURLRequest{URL: srv.URL + "/page"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Content, "# Title")
	assert.Contains(t, res.Content, "**world**")
	assert.NotContains(t, res.Content, "bad()")

	res, err = tool.Run(context.Background(), &system.GetURLRequest{URL: srv.URL + "/plain"})
	require.NoError(t, err)
	assert.Equal(t, "plain text", res.Content)

	res, err = tool.Run(context.Background(), &system.GetURLRequest{URL: srv.URL + "/plain", MaxLength: 5})
	require.NoError(t, err)
	assert.Equal(t, "plain", res.Content)
	assert.True(t, res.Truncated)

	_, err = tool.Run(context.Background(), &system.GetURLRequest{URL: srv.URL + "/missing"})
	require.Error(t, err)

	_, err = tool.Run(context.Background(), &system.GetURLRequest{})
	require.Error(t, err)
}

func writeScript(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
