package tools_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codriver-ai/codriver/tools"
)

type fakeTool struct {
	name   string
	params []tools.Param
}

func (t *fakeTool) Name() string                    { return t.name }
func (t *fakeTool) Description() string             { return "fake " + t.name }
func (t *fakeTool) Permissions() tools.Permissions  { return "r" }
func (t *fakeTool) Parameters() *jsonschema.Schema  { return tools.BuildParameters(t.params) }
func (t *fakeTool) Call(context.Context, string) (string, error) {
	return "", nil
}

func TestRegistryRegister(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "read_file"}))
	require.NoError(t, reg.Register(&fakeTool{name: "create_file"}))

	err := reg.Register(&fakeTool{name: "read_file"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrAlreadyRegistered))

	// names are case-insensitive
	err = reg.Register(&fakeTool{name: "Read_File"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrAlreadyRegistered))

	err = reg.Register(&fakeTool{name: ""})
	require.Error(t, err)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"read_file", "create_file"}, reg.Names())
}

func TestRegistryResolve(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(&fakeTool{name: "read_file"})

	tool, err := reg.Resolve("read_file")
	require.NoError(t, err)
	assert.Equal(t, "read_file", tool.Name())

	tool, err = reg.Resolve("READ_FILE")
	require.NoError(t, err)
	assert.Equal(t, "read_file", tool.Name())

	_, err = reg.Resolve("unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrToolNotFound))
}

func TestRegistryDefinitions(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(
		&fakeTool{
			name: "read_file",
			params: []tools.Param{
				{Name: "path", Type: tools.TypeString, Description: "File path"},
				{Name: "max_lines", Type: tools.TypeInteger, Description: "Line limit", Default: 500},
			},
		},
		&fakeTool{
			name: "create_file",
			params: []tools.Param{
				{Name: "path", Type: tools.TypeString, Description: "File path"},
				{Name: "content", Type: tools.TypeString, Description: "File content"},
			},
		},
	)

	defs := reg.Definitions()
	require.Len(t, defs, 2)

	assert.Equal(t, "function", defs[0].Type)
	require.NotNil(t, defs[0].Function)
	assert.Equal(t, "read_file", defs[0].Function.Name)
	assert.Equal(t, []string{"path"}, defs[0].Function.Parameters.Required)

	assert.Equal(t, "create_file", defs[1].Function.Name)
	assert.Equal(t, []string{"path", "content"}, defs[1].Function.Parameters.Required)
}

func TestRegistryMustRegisterPanics(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(&fakeTool{name: "read_file"})
	assert.Panics(t, func() {
		reg.MustRegister(&fakeTool{name: "read_file"})
	})
}
