package agent

import (
	"context"
	"fmt"
	"strings"

	"cs-instructor-backend/internal/ai"
	"cs-instructor-backend/internal/logger"
	"cs-instructor-backend/internal/memory"
	"cs-instructor-backend/internal/tools"
	"cs-instructor-backend/models"
)

const (
	maxIterations = 5

	errorResponse = "I apologize, but I ran into a problem while working on your question. Please try rephrasing it or ask something else."
)

// Instructor answers one session's questions by running a reasoning loop over
// the model: generate, parse an action, invoke the tool, feed the observation
// back, until the model produces a final answer or the iteration cap hits.
type Instructor struct {
	provider     ai.LLMProvider
	toolset      []tools.Tool
	conversation *memory.ConversationStore
	window       int
}

func NewInstructor(provider ai.LLMProvider, toolset []tools.Tool, conversation *memory.ConversationStore, window int) *Instructor {
	if window <= 0 {
		window = 10
	}
	return &Instructor{
		provider:     provider,
		toolset:      toolset,
		conversation: conversation,
		window:       window,
	}
}

// Conversation exposes the session history for export and stats handlers.
func (a *Instructor) Conversation() *memory.ConversationStore { return a.conversation }

// Query runs the full flow for one student message: record the turn, run the
// loop, record the reply. Failures degrade to a canned apology that is still
// recorded, so the session history always matches what the student saw.
func (a *Instructor) Query(ctx context.Context, message string) (string, []models.ToolStep) {
	history := a.conversation.Render(a.window)
	a.conversation.AddUserMessage(message)

	answer, steps, err := a.runLoop(ctx, history, message)
	if err != nil {
		logger.Error("agent loop failed", "error", err.Error())
		answer = errorResponse
	}

	a.conversation.AddAssistantMessage(answer)
	return answer, steps
}

func (a *Instructor) runLoop(ctx context.Context, history, question string) (string, []models.ToolStep, error) {
	var steps []models.ToolStep
	var scratchpad strings.Builder

	for iteration := 0; iteration < maxIterations; iteration++ {
		prompt := buildPrompt(a.toolset, history, question, scratchpad.String())

		reply, err := a.provider.Generate(ctx, prompt)
		if err != nil {
			return "", steps, fmt.Errorf("generate: %w", err)
		}

		if answer, ok := parseFinalAnswer(reply); ok {
			return answer, steps, nil
		}

		action, input, ok := parseAction(reply)
		if !ok {
			// The model ignored the format; take its reply as the answer.
			return strings.TrimSpace(reply), steps, nil
		}

		observation := a.invoke(ctx, action, input)
		steps = append(steps, models.ToolStep{
			Action:      action,
			ActionInput: input,
			Observation: observation,
		})

		fmt.Fprintf(&scratchpad, "Thought: I should use %s\nAction: %s\nAction Input: %s\nObservation: %s\n", action, action, input, observation)
	}

	return "I could not reach a confident answer within my reasoning limit. Could you break the question into smaller parts?", steps, nil
}

func (a *Instructor) invoke(ctx context.Context, action, input string) string {
	for _, tool := range a.toolset {
		if tool.Name() == action {
			return tool.Run(ctx, input)
		}
	}
	return fmt.Sprintf("Unknown tool %q. Available tools: %s", action, a.toolNames())
}

func (a *Instructor) toolNames() string {
	names := make([]string, 0, len(a.toolset))
	for _, tool := range a.toolset {
		names = append(names, tool.Name())
	}
	return strings.Join(names, ", ")
}

// parseFinalAnswer extracts the text after the final-answer marker.
func parseFinalAnswer(reply string) (string, bool) {
	idx := strings.Index(reply, "Final Answer:")
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(reply[idx+len("Final Answer:"):]), true
}

// parseAction extracts the first Action/Action Input pair from a reply. The
// input runs until the next loop marker so multi-line code blocks survive.
func parseAction(reply string) (action, input string, ok bool) {
	lines := strings.Split(reply, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "Action:") {
			continue
		}
		action = strings.TrimSpace(strings.TrimPrefix(trimmed, "Action:"))

		for j := i + 1; j < len(lines); j++ {
			nextTrimmed := strings.TrimSpace(lines[j])
			if !strings.HasPrefix(nextTrimmed, "Action Input:") {
				continue
			}
			collected := []string{strings.TrimSpace(strings.TrimPrefix(nextTrimmed, "Action Input:"))}
			for _, rest := range lines[j+1:] {
				restTrimmed := strings.TrimSpace(rest)
				if strings.HasPrefix(restTrimmed, "Observation:") || strings.HasPrefix(restTrimmed, "Thought:") {
					break
				}
				collected = append(collected, rest)
			}
			input = strings.Trim(strings.TrimSpace(strings.Join(collected, "\n")), "`")
			input = strings.TrimPrefix(input, "go\n")
			break
		}
		return action, input, action != ""
	}
	return "", "", false
}
