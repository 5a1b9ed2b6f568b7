package agent

import (
	"fmt"
	"strings"

	"cs-instructor-backend/internal/tools"
)

const promptTemplate = `You are a patient and knowledgeable computer science lab instructor. You help students understand programming concepts, debug code, and learn by doing. Explain clearly, encourage experimentation, and prefer showing runnable examples over abstract descriptions.

You have access to the following tools:

%s

Use this format:

Question: the student's question
Thought: think about what to do next
Action: the tool to use, one of [%s]
Action Input: the input to the tool
Observation: the result of the tool
... (Thought/Action/Action Input/Observation can repeat)
Thought: I now know the final answer
Final Answer: the complete answer for the student

Previous conversation:
%s

Question: %s
%s`

// buildPrompt renders the instructor prompt for one loop iteration. The
// scratchpad carries the Thought/Action/Observation trail built so far.
func buildPrompt(toolset []tools.Tool, history, question, scratchpad string) string {
	descriptions := make([]string, 0, len(toolset))
	names := make([]string, 0, len(toolset))
	for _, tool := range toolset {
		descriptions = append(descriptions, fmt.Sprintf("%s: %s", tool.Name(), tool.Description()))
		names = append(names, tool.Name())
	}

	return fmt.Sprintf(promptTemplate,
		strings.Join(descriptions, "\n"),
		strings.Join(names, ", "),
		history,
		question,
		scratchpad)
}
