package tools_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codriver-ai/codriver/tools"
)

func TestBuildParameters(t *testing.T) {
	params := []tools.Param{
		{Name: "path", Type: tools.TypeString, Description: "File path"},
		{Name: "max_lines", Type: tools.TypeInteger, Description: "Maximum lines to read", Default: 500},
		{Name: "follow_symlinks", Type: tools.TypeBoolean, Description: "Follow symlinks", Default: false},
		{Name: "ratio", Type: tools.TypeNumber, Description: "Sampling ratio"},
	}

	schema := tools.BuildParameters(params)
	require.NotNil(t, schema)
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"path", "ratio"}, schema.Required)

	// properties keep declaration order
	var order []string
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		order = append(order, pair.Key)
	}
	assert.Equal(t, []string{"path", "max_lines", "follow_symlinks", "ratio"}, order)

	prop, ok := schema.Properties.Get("max_lines")
	require.True(t, ok)
	assert.Equal(t, "integer", prop.Type)
	assert.Equal(t, 500, prop.Default)

	prop, ok = schema.Properties.Get("follow_symlinks")
	require.True(t, ok)
	assert.Equal(t, "boolean", prop.Type)
	assert.Equal(t, false, prop.Default)
}

func TestBuildParametersInfersType(t *testing.T) {
	params := []tools.Param{
		{Name: "count", Default: 3},
		{Name: "threshold", Default: 0.5},
		{Name: "enabled", Default: true},
		{Name: "label", Default: "x"},
		{Name: "query"},
	}
	schema := tools.BuildParameters(params)

	expect := map[string]string{
		"count":     "integer",
		"threshold": "number",
		"enabled":   "boolean",
		"label":     "string",
		"query":     "string",
	}
	for name, typ := range expect {
		prop, ok := schema.Properties.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, prop.Type, name)
	}
	assert.Equal(t, []string{"query"}, schema.Required)
}

func TestParamRequired(t *testing.T) {
	assert.True(t, tools.Param{Name: "path"}.Required())
	assert.False(t, tools.Param{Name: "path", Default: "."}.Required())
	// a zero-value default still makes the parameter optional
	assert.False(t, tools.Param{Name: "flag", Default: false}.Required())
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, tools.TypeInteger, tools.TypeOf(42))
	assert.Equal(t, tools.TypeInteger, tools.TypeOf(int64(42)))
	assert.Equal(t, tools.TypeNumber, tools.TypeOf(1.5))
	assert.Equal(t, tools.TypeBoolean, tools.TypeOf(true))
	assert.Equal(t, tools.TypeString, tools.TypeOf("s"))
	assert.Equal(t, tools.TypeString, tools.TypeOf([]string{"s"}))
}

func TestPermissions(t *testing.T) {
	p := tools.Permissions("rwx")
	assert.True(t, p.Has(tools.PermissionRead))
	assert.True(t, p.Has(tools.PermissionWrite))
	assert.True(t, p.Has(tools.PermissionExecute))
	assert.False(t, p.Has(tools.PermissionNetwork))
}
