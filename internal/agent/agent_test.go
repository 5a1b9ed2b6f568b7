package agent

import (
	"context"
	"fmt"
	"testing"

	"cs-instructor-backend/internal/memory"
	"cs-instructor-backend/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays canned replies, recording each prompt it saw.
type scriptedProvider struct {
	replies []string
	calls   int
	prompts []string
	err     error
}

func (p *scriptedProvider) Generate(_ context.Context, prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return "", p.err
	}
	if p.calls >= len(p.replies) {
		return "Final Answer: out of script", nil
	}
	reply := p.replies[p.calls]
	p.calls++
	return reply, nil
}

func (p *scriptedProvider) Available(_ context.Context) bool { return true }
func (p *scriptedProvider) Name() string                     { return "scripted" }

// echoTool records its input and returns a fixed observation.
type echoTool struct {
	name  string
	seen  []string
	reply string
}

func (t *echoTool) Name() string        { return t.name }
func (t *echoTool) Description() string { return "test tool" }
func (t *echoTool) Run(_ context.Context, input string) string {
	t.seen = append(t.seen, input)
	return t.reply
}

func newTestInstructor(provider *scriptedProvider, toolset ...tools.Tool) *Instructor {
	conversation := memory.NewConversationStore("test", memory.NewMemorySessionStore())
	return NewInstructor(provider, toolset, conversation, 10)
}

func TestQueryDirectAnswer(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"Final Answer: A slice is a view over an array."}}
	instructor := newTestInstructor(provider)

	answer, steps := instructor.Query(context.Background(), "What is a slice?")

	assert.Equal(t, "A slice is a view over an array.", answer)
	assert.Empty(t, steps)
	assert.Equal(t, 2, instructor.Conversation().TurnCount())
}

func TestQueryRunsToolThenAnswers(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"Thought: I should run it\nAction: execute_code\nAction Input: fmt.Println(2 + 2)",
		"Final Answer: The result is 4.",
	}}
	tool := &echoTool{name: "execute_code", reply: "4"}
	instructor := newTestInstructor(provider, tool)

	answer, steps := instructor.Query(context.Background(), "What is 2+2?")

	assert.Equal(t, "The result is 4.", answer)
	require.Len(t, steps, 1)
	assert.Equal(t, "execute_code", steps[0].Action)
	assert.Equal(t, "fmt.Println(2 + 2)", steps[0].ActionInput)
	assert.Equal(t, "4", steps[0].Observation)
	require.Len(t, tool.seen, 1)

	// The observation is fed back on the second iteration.
	require.Len(t, provider.prompts, 2)
	assert.Contains(t, provider.prompts[1], "Observation: 4")
}

func TestQueryMultiLineActionInput(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"Action: execute_code\nAction Input: x := 1\nfmt.Println(x)\nThought: waiting",
		"Final Answer: done",
	}}
	tool := &echoTool{name: "execute_code", reply: "1"}
	instructor := newTestInstructor(provider, tool)

	_, steps := instructor.Query(context.Background(), "run this")

	require.Len(t, steps, 1)
	assert.Equal(t, "x := 1\nfmt.Println(x)", steps[0].ActionInput)
}

func TestQueryUnknownTool(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"Action: launch_rocket\nAction Input: now",
		"Final Answer: sorry",
	}}
	instructor := newTestInstructor(provider, &echoTool{name: "execute_code"})

	_, steps := instructor.Query(context.Background(), "do it")

	require.Len(t, steps, 1)
	assert.Contains(t, steps[0].Observation, `Unknown tool "launch_rocket"`)
}

func TestQueryUnparseableReplyBecomesAnswer(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"Slices grow by reallocating."}}
	instructor := newTestInstructor(provider)

	answer, steps := instructor.Query(context.Background(), "Tell me about slices")

	assert.Equal(t, "Slices grow by reallocating.", answer)
	assert.Empty(t, steps)
}

func TestQueryIterationCap(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"Action: execute_code\nAction Input: 1",
		"Action: execute_code\nAction Input: 2",
		"Action: execute_code\nAction Input: 3",
		"Action: execute_code\nAction Input: 4",
		"Action: execute_code\nAction Input: 5",
		"Action: execute_code\nAction Input: 6",
	}}
	tool := &echoTool{name: "execute_code", reply: "ok"}
	instructor := newTestInstructor(provider, tool)

	answer, steps := instructor.Query(context.Background(), "loop forever")

	assert.Len(t, steps, maxIterations)
	assert.Contains(t, answer, "reasoning limit")
}

func TestQueryProviderFailureDegrades(t *testing.T) {
	provider := &scriptedProvider{err: fmt.Errorf("backend down")}
	instructor := newTestInstructor(provider)

	answer, _ := instructor.Query(context.Background(), "hello?")

	assert.Contains(t, answer, "I apologize")
	// Both turns are still recorded so history matches what was shown.
	assert.Equal(t, 2, instructor.Conversation().TurnCount())
}

func TestRegistrySessionLifecycle(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"Final Answer: hi"}}
	registry := NewRegistry(provider, nil, memory.NewMemorySessionStore(), 10)

	first, id := registry.GetOrCreate("")
	require.NotEmpty(t, id)

	again, sameID := registry.GetOrCreate(id)
	assert.Equal(t, id, sameID)
	assert.Same(t, first, again)

	_, ok := registry.Get("missing")
	assert.False(t, ok)

	assert.Contains(t, registry.ActiveSessions(), id)
}

func TestBuildPromptListsTools(t *testing.T) {
	toolset := []tools.Tool{
		&echoTool{name: "execute_code"},
		&echoTool{name: "search_information"},
	}

	prompt := buildPrompt(toolset, "No conversation history.", "What is recursion?", "")

	assert.Contains(t, prompt, "execute_code, search_information")
	assert.Contains(t, prompt, "Question: What is recursion?")
	assert.Contains(t, prompt, "No conversation history.")
}
