// Package tools — tool registry and the built-in tool set.
//
// A Tool is a name, a description, a JSON-Schema parameter block, and an
// Execute method that decodes its own arguments. Polymorphism is by
// registration: the registry dispatches by name and never panics outward.
package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/openclaw/internal/providers"
)

// Tool is a single capability the agent can invoke.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Registry collects tools and dispatches execution.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names fail loudly.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// MustRegister registers a tool and panics on name collision. For static
// startup wiring only.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names lists registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Schemas returns tool definitions in OpenAI function-calling format,
// in registration order.
func (r *Registry) Schemas() []providers.ToolDefinition {
	defs := make([]providers.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Execute runs a tool by name and returns its result string. It never
// returns an error: unknown tools, handler errors, and handler panics all
// become a result string beginning with "Error".
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result string) {
	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Error: Unknown tool '%s'", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = fmt.Sprintf("Error executing %s: %v", name, rec)
		}
	}()

	out, err := t.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %v", name, err)
	}
	return out
}

// stringArg extracts a string argument, "" when absent or mistyped.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
