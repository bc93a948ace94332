package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/openclaw/internal/session"
)

// NoQueryPlaceholder replaces a message that was nothing but an agent
// prefix, so the agent still gets a turn to respond.
const NoQueryPlaceholder = "(no query provided)"

// An Agent pairs a named personality with the loop that runs its turns.
// Prefix is the dispatch token ("/research"); agents without one are only
// reachable as the router's default or by name. Namespace scopes the
// agent's session keys so two agents never share a history.
type Agent struct {
	Name      string
	Prefix    string
	Namespace string
	Loop      *Loop
}

// Router dispatches incoming messages to agents by prefix and serialises
// turns per session so concurrent messages for the same session never
// interleave their histories.
type Router struct {
	agents       []*Agent
	byName       map[string]*Agent
	defaultAgent *Agent
	queue        *session.CommandQueue
}

func NewRouter() *Router {
	return &Router{
		byName: make(map[string]*Agent),
		queue:  session.NewCommandQueue(),
	}
}

// Register adds an agent. The first registered agent becomes the default;
// prefix matching follows registration order.
func (r *Router) Register(a *Agent) error {
	if a.Name == "" {
		return fmt.Errorf("agent name must not be empty")
	}
	if a.Namespace == "" {
		return fmt.Errorf("agent %q has no session namespace", a.Name)
	}
	if _, dup := r.byName[a.Name]; dup {
		return fmt.Errorf("agent %q already registered", a.Name)
	}
	for _, existing := range r.agents {
		if existing.Prefix != "" && strings.EqualFold(existing.Prefix, a.Prefix) {
			return fmt.Errorf("prefix %q already claimed by agent %q", a.Prefix, existing.Name)
		}
	}
	r.agents = append(r.agents, a)
	r.byName[a.Name] = a
	if r.defaultAgent == nil {
		r.defaultAgent = a
	}
	return nil
}

// SetDefault overrides which agent handles unprefixed messages.
func (r *Router) SetDefault(name string) error {
	a, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("unknown agent %q", name)
	}
	r.defaultAgent = a
	return nil
}

func (r *Router) DefaultAgent() *Agent { return r.defaultAgent }

func (r *Router) Agent(name string) (*Agent, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// AgentNames returns registered agent names in registration order.
func (r *Router) AgentNames() []string {
	names := make([]string, 0, len(r.agents))
	for _, a := range r.agents {
		names = append(names, a.Name)
	}
	return names
}

// Resolve picks the agent for a message. The leading whitespace-delimited
// token is compared case-insensitively against each registered prefix in
// registration order; on a match the prefix is stripped, and a message
// that was only a prefix becomes NoQueryPlaceholder. Anything else goes
// to the default agent with the text untouched.
func (r *Router) Resolve(text string) (*Agent, string) {
	trimmed := strings.TrimSpace(text)
	token := trimmed
	if idx := strings.IndexFunc(trimmed, func(c rune) bool { return c == ' ' || c == '\t' || c == '\n' }); idx != -1 {
		token = trimmed[:idx]
	}
	for _, a := range r.agents {
		if a.Prefix == "" || !strings.EqualFold(token, a.Prefix) {
			continue
		}
		query := strings.TrimSpace(trimmed[len(token):])
		if query == "" {
			query = NoQueryPlaceholder
		}
		return a, query
	}
	return r.defaultAgent, text
}

// SessionKey builds the canonical per-conversation key for an agent.
func SessionKey(a *Agent, channel, userID string) string {
	return fmt.Sprintf("%s:%s:%s", a.Namespace, channel, userID)
}

// Run routes one message: resolve the agent, lock the session, run the
// turn. Turns for different sessions proceed in parallel.
func (r *Router) Run(ctx context.Context, channel, userID, text string) (string, error) {
	agent, query := r.Resolve(text)
	if agent == nil {
		return "", fmt.Errorf("no agents registered")
	}
	return r.runLocked(ctx, agent, channel, userID, query)
}

// RunAgent routes a message to a named agent directly, bypassing prefix
// resolution. Heartbeats use this so their prompts are never re-parsed as
// dispatch commands.
func (r *Router) RunAgent(ctx context.Context, agentName, channel, userID, text string) (string, error) {
	agent, ok := r.byName[agentName]
	if !ok {
		return "", fmt.Errorf("unknown agent %q", agentName)
	}
	return r.runLocked(ctx, agent, channel, userID, text)
}

func (r *Router) runLocked(ctx context.Context, agent *Agent, channel, userID, text string) (string, error) {
	key := SessionKey(agent, channel, userID)
	unlock := r.queue.Lock(key)
	defer unlock()

	slog.Debug("running turn", "agent", agent.Name, "session", key)
	return agent.Loop.Run(ctx, key, text)
}

// ActiveSessions reports session keys with a turn currently in flight.
func (r *Router) ActiveSessions() []string {
	return r.queue.LockedKeys()
}
