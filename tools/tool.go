package tools

import (
	"context"
	"strings"

	"github.com/invopop/jsonschema"
)

// Permission is a capability a tool requires from its host:
// read, write, execute, or network.
type Permission rune

const (
	PermissionRead    Permission = 'r'
	PermissionWrite   Permission = 'w'
	PermissionExecute Permission = 'x'
	PermissionNetwork Permission = 'n'
)

// Permissions is the set of capabilities a tool requires, e.g. "rw".
type Permissions string

// Has reports whether the set contains the given permission.
func (p Permissions) Has(perm Permission) bool {
	return strings.ContainsRune(string(p), rune(perm))
}

// ITool is a tool for the llm agent to interact with the local system.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Permissions returns the capabilities the tool requires.
	Permissions() Permissions
	// Parameters returns the JSON schema of the tool's arguments.
	Parameters() *jsonschema.Schema

	// Call executes the tool with the given JSON input and returns the result.
	Call(context.Context, string) (string, error)
}

// Callback receives tool lifecycle notifications.
type Callback interface {
	OnToolStart(context.Context, ITool, string)
	OnToolEnd(context.Context, ITool, string, string)
	OnToolError(context.Context, ITool, string, error)
}

// Tool is a typed tool with a structured request and response.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}
