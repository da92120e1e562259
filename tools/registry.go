package tools

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/codriver-ai/codriver/pkg/llms"
)

var (
	// ErrToolNotFound is returned when resolving a name no tool was registered under.
	ErrToolNotFound = errors.New("tool not found")
	// ErrAlreadyRegistered is returned when registering a name that is already taken.
	ErrAlreadyRegistered = errors.New("tool already registered")
)

// Registry holds the tools available to a chat session.
// Tool names are case-insensitive; definitions keep registration order.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]ITool
	order  []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]ITool),
	}
}

// Register adds a tool to the registry.
// A name that is already registered, compared case-insensitively,
// is rejected with ErrAlreadyRegistered.
func (r *Registry) Register(tool ITool) error {
	name := tool.Name()
	if name == "" {
		return errors.New("tool name is empty")
	}
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[key]; ok {
		return errors.WithMessagef(ErrAlreadyRegistered, "tool %q", name)
	}
	r.byName[key] = tool
	r.order = append(r.order, key)
	return nil
}

// MustRegister adds tools to the registry and panics on conflict.
// Intended for static tool tables assembled at startup.
func (r *Registry) MustRegister(list ...ITool) {
	for _, tool := range list {
		if err := r.Register(tool); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the tool registered under name, case-insensitively.
func (r *Registry) Resolve(name string) (ITool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, errors.WithMessagef(ErrToolNotFound, "tool %q", name)
	}
	return tool, nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []ITool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]ITool, 0, len(r.order))
	for _, key := range r.order {
		list = append(list, r.byName[key])
	}
	return list
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, key := range r.order {
		names = append(names, r.byName[key].Name())
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Definitions returns the function definitions of the registered tools,
// in registration order, in the shape providers expect.
func (r *Registry) Definitions() []llms.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llms.Tool, 0, len(r.order))
	for _, key := range r.order {
		tool := r.byName[key]
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return defs
}
