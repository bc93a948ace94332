package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nextlevelbuilder/openclaw/internal/providers"
	"github.com/nextlevelbuilder/openclaw/internal/session"
	"github.com/nextlevelbuilder/openclaw/internal/tools"
)

// scriptedProvider replays a fixed sequence of responses and records every
// request. When repeatLast is set, the final response repeats forever.
type scriptedProvider struct {
	mu         sync.Mutex
	responses  []*providers.ChatResponse
	repeatLast bool
	requests   []providers.ChatRequest
}

func (p *scriptedProvider) Chat(_ context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	idx := len(p.requests) - 1
	if idx >= len(p.responses) {
		if p.repeatLast && len(p.responses) > 0 {
			return p.responses[len(p.responses)-1], nil
		}
		return nil, fmt.Errorf("unexpected LLM call %d", idx+1)
	}
	return p.responses[idx], nil
}

func (p *scriptedProvider) DefaultModel() string { return "scripted" }
func (p *scriptedProvider) Name() string         { return "scripted" }

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// fakeTool adapts a plain func to the tools.Tool interface.
type fakeTool struct {
	name string
	fn   func(args map[string]any) string
}

func (f fakeTool) Name() string        { return f.name }
func (f fakeTool) Description() string { return f.name }
func (f fakeTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (f fakeTool) Execute(_ context.Context, args map[string]any) (string, error) {
	return f.fn(args), nil
}

func toolCallResponse(finishReason string, calls ...providers.ToolCall) *providers.ChatResponse {
	return &providers.ChatResponse{ToolCalls: calls, FinishReason: finishReason}
}

func textResponse(text string) *providers.ChatResponse {
	return &providers.ChatResponse{Content: text, FinishReason: providers.FinishStop}
}

func call(id, name, arguments string) providers.ToolCall {
	return providers.ToolCall{
		ID:       id,
		Type:     "function",
		Function: providers.ToolFunction{Name: name, Arguments: arguments},
	}
}

func newTestLoop(t *testing.T, provider providers.Provider, registry *tools.Registry, maxTurns int) (*Loop, *session.Store) {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	loop := NewLoop(LoopConfig{
		Provider:     provider,
		Model:        "m",
		SystemPrompt: "sys",
		Sessions:     store,
		Tools:        registry,
		MaxTurns:     maxTurns,
	})
	return loop, store
}

// Text only: no tools registered, one LLM call, log holds user + assistant.
func TestLoopTextOnly(t *testing.T) {
	provider := &scriptedProvider{responses: []*providers.ChatResponse{textResponse("hi")}}
	loop, store := newTestLoop(t, provider, tools.NewRegistry(), 0)

	got, err := loop.Run(context.Background(), "k", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "hi" {
		t.Errorf("Run = %q, want %q", got, "hi")
	}

	log, _ := store.Load("k")
	if len(log) != 2 {
		t.Fatalf("log length = %d, want 2", len(log))
	}
	if log[0].Role != "user" || log[0].Content != "hello" {
		t.Errorf("log[0] = %+v", log[0])
	}
	if log[1].Role != "assistant" || log[1].Content != "hi" || len(log[1].ToolCalls) != 0 {
		t.Errorf("log[1] = %+v", log[1])
	}
}

// Single tool cycle under the "tool_use" finish reason spelling.
func TestLoopSingleToolCycle(t *testing.T) {
	registry := tools.NewRegistry()
	registry.MustRegister(fakeTool{name: "echo", fn: func(args map[string]any) string {
		text, _ := args["text"].(string)
		return "echoed: " + text
	}})

	provider := &scriptedProvider{responses: []*providers.ChatResponse{
		toolCallResponse(providers.FinishToolUse, call("c1", "echo", `{"text":"x"}`)),
		textResponse("done"),
	}}
	loop, store := newTestLoop(t, provider, registry, 0)

	got, err := loop.Run(context.Background(), "k", "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "done" {
		t.Errorf("Run = %q, want done", got)
	}
	if provider.callCount() != 2 {
		t.Errorf("LLM calls = %d, want 2", provider.callCount())
	}

	log, _ := store.Load("k")
	if len(log) != 4 {
		t.Fatalf("log length = %d, want 4: %+v", len(log), log)
	}
	if log[1].Role != "assistant" || len(log[1].ToolCalls) != 1 {
		t.Errorf("log[1] = %+v", log[1])
	}
	if log[2].Role != "tool" || log[2].ToolCallID != "c1" || log[2].Content != "echoed: x" {
		t.Errorf("log[2] = %+v", log[2])
	}
	if log[3].Role != "assistant" || log[3].Content != "done" {
		t.Errorf("log[3] = %+v", log[3])
	}
}

// Two tools in one assistant message execute and persist in declaration order.
func TestLoopParallelToolsDeclarationOrder(t *testing.T) {
	registry := tools.NewRegistry()
	registry.MustRegister(fakeTool{name: "echo", fn: func(args map[string]any) string {
		text, _ := args["text"].(string)
		return "echoed: " + text
	}})
	registry.MustRegister(fakeTool{name: "add", fn: func(args map[string]any) string {
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return fmt.Sprintf("%g", a+b)
	}})

	provider := &scriptedProvider{responses: []*providers.ChatResponse{
		toolCallResponse(providers.FinishToolCalls,
			call("c1", "echo", `{"text":"a"}`),
			call("c2", "add", `{"a":1,"b":2}`),
		),
		textResponse("both"),
	}}
	loop, store := newTestLoop(t, provider, registry, 0)

	got, err := loop.Run(context.Background(), "k", "go")
	if err != nil {
		t.Fatal(err)
	}
	if got != "both" {
		t.Errorf("Run = %q, want both", got)
	}

	log, _ := store.Load("k")
	if len(log) != 5 {
		t.Fatalf("log length = %d, want 5", len(log))
	}
	if log[2].ToolCallID != "c1" || log[2].Content != "echoed: a" {
		t.Errorf("first tool result = %+v", log[2])
	}
	if log[3].ToolCallID != "c2" || log[3].Content != "3" {
		t.Errorf("second tool result = %+v", log[3])
	}
}

// A model that never stops requesting tools hits the turn budget.
func TestLoopBudgetExhaustion(t *testing.T) {
	registry := tools.NewRegistry()
	registry.MustRegister(fakeTool{name: "noop", fn: func(map[string]any) string { return "ok" }})

	provider := &scriptedProvider{
		responses:  []*providers.ChatResponse{toolCallResponse(providers.FinishToolCalls, call("c", "noop", "{}"))},
		repeatLast: true,
	}
	loop, _ := newTestLoop(t, provider, registry, 3)

	got, err := loop.Run(context.Background(), "k", "go")
	if err != nil {
		t.Fatal(err)
	}
	if got != MaxTurnsSentinel {
		t.Errorf("Run = %q, want sentinel", got)
	}
	if provider.callCount() != 3 {
		t.Errorf("LLM calls = %d, want 3", provider.callCount())
	}
}

// A negative budget returns the sentinel without any LLM call; only the
// user message is persisted.
func TestLoopZeroBudget(t *testing.T) {
	provider := &scriptedProvider{}
	loop, store := newTestLoop(t, provider, tools.NewRegistry(), -1)

	got, err := loop.Run(context.Background(), "k", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if got != MaxTurnsSentinel {
		t.Errorf("Run = %q, want sentinel", got)
	}
	if provider.callCount() != 0 {
		t.Errorf("LLM calls = %d, want 0", provider.callCount())
	}

	log, _ := store.Load("k")
	if len(log) != 1 || log[0].Role != "user" {
		t.Errorf("log = %+v, want only the user message", log)
	}
}

// A pre-seeded orphan assistant tool-call tail is dropped before the LLM
// ever sees the history.
func TestLoopOrphanRecovery(t *testing.T) {
	provider := &scriptedProvider{responses: []*providers.ChatResponse{textResponse("hello")}}
	loop, store := newTestLoop(t, provider, tools.NewRegistry(), 0)

	seed := []providers.Message{
		{Role: "user", Content: "run ls"},
		{Role: "assistant", ToolCalls: []providers.ToolCall{call("orphan", "run_command", "{}")}},
	}
	for _, msg := range seed {
		if err := store.Append("k", msg); err != nil {
			t.Fatal(err)
		}
	}

	got, err := loop.Run(context.Background(), "k", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("Run = %q, want hello", got)
	}

	for _, msg := range provider.requests[0].Messages {
		for _, tc := range msg.ToolCalls {
			if tc.ID == "orphan" {
				t.Errorf("orphan tool call reached the LLM: %+v", msg)
			}
		}
	}
}

// Malformed tool arguments degrade to an empty object; the turn proceeds.
func TestLoopMalformedArguments(t *testing.T) {
	var seen map[string]any
	registry := tools.NewRegistry()
	registry.MustRegister(fakeTool{name: "probe", fn: func(args map[string]any) string {
		seen = args
		return "ok"
	}})

	provider := &scriptedProvider{responses: []*providers.ChatResponse{
		toolCallResponse(providers.FinishToolCalls, call("c1", "probe", `{not json`)),
		textResponse("fin"),
	}}
	loop, _ := newTestLoop(t, provider, registry, 0)

	got, err := loop.Run(context.Background(), "k", "go")
	if err != nil {
		t.Fatal(err)
	}
	if got != "fin" {
		t.Errorf("Run = %q, want fin", got)
	}
	if seen == nil || len(seen) != 0 {
		t.Errorf("tool args = %v, want empty map", seen)
	}
}

// The on-tool-use callback fires once per executed tool with its result.
func TestLoopOnToolUseCallback(t *testing.T) {
	registry := tools.NewRegistry()
	registry.MustRegister(fakeTool{name: "noop", fn: func(map[string]any) string { return "ok" }})

	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	type event struct {
		name, result string
	}
	var events []event

	provider := &scriptedProvider{responses: []*providers.ChatResponse{
		toolCallResponse(providers.FinishToolCalls, call("c1", "noop", "{}")),
		textResponse("done"),
	}}
	loop := NewLoop(LoopConfig{
		Provider:     provider,
		Model:        "m",
		SystemPrompt: "sys",
		Sessions:     store,
		Tools:        registry,
		OnToolUse: func(name string, args map[string]any, result string) {
			events = append(events, event{name, result})
		},
	})

	if _, err := loop.Run(context.Background(), "k", "go"); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].name != "noop" || events[0].result != "ok" {
		t.Errorf("events = %+v", events)
	}
}

// A finish reason without tool calls is final even under a tool spelling,
// and tool calls under a plain "stop" are final too.
func TestLoopToolDetectionRequiresBoth(t *testing.T) {
	registry := tools.NewRegistry()
	registry.MustRegister(fakeTool{name: "noop", fn: func(map[string]any) string {
		t.Error("tool executed for a final response")
		return ""
	}})

	provider := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "text despite finish reason", FinishReason: providers.FinishToolCalls},
	}}
	loop, _ := newTestLoop(t, provider, registry, 0)

	got, err := loop.Run(context.Background(), "k", "go")
	if err != nil {
		t.Fatal(err)
	}
	if got != "text despite finish reason" {
		t.Errorf("Run = %q", got)
	}
}
