package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExplainEmptyInput(t *testing.T) {
	explainer := NewCodeExplainer()
	assert.Equal(t, "No code provided to explain.", explainer.Run(context.Background(), "  "))
}

func TestExplainGoFunction(t *testing.T) {
	explainer := NewCodeExplainer()

	code := `func add(a, b int) int {
	return a + b
}`
	out := explainer.Run(context.Background(), code)

	assert.Contains(t, out, "**Language**: Go")
	assert.Contains(t, out, "`add` is a function taking 2 parameter(s) and returning 1 value(s).")
}

func TestExplainGoErrorHandlingNote(t *testing.T) {
	explainer := NewCodeExplainer()

	code := `func read(path string) ([]byte, error) {
	data, err := load(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}`
	out := explainer.Run(context.Background(), code)
	assert.Contains(t, out, "Errors are checked explicitly")
}

func TestExplainPython(t *testing.T) {
	explainer := NewCodeExplainer()

	out := explainer.Run(context.Background(), "def greet(name):\n    print(name)")
	assert.Contains(t, out, "**Language**: Python")
	assert.Contains(t, out, "defines a function")
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "Go", detectLanguage("x := 1"))
	assert.Equal(t, "Python", detectLanguage("print('hi')"))
	assert.Equal(t, "JavaScript", detectLanguage("console.log('hi')"))
	assert.Equal(t, "Unknown", detectLanguage("SELECT 1"))
}
