package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleBasedProviderAlwaysAvailable(t *testing.T) {
	provider := NewRuleBasedProvider()
	assert.True(t, provider.Available(context.Background()))
	assert.Equal(t, "fallback", provider.Name())
}

func TestRuleBasedProviderAnswersTopics(t *testing.T) {
	provider := NewRuleBasedProvider()
	ctx := context.Background()

	greeting, err := provider.Generate(ctx, "hello there")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(greeting, "Final Answer:"))
	assert.Contains(t, greeting, "CS lab instructor")

	algos, err := provider.Generate(ctx, "explain sorting algorithms")
	require.NoError(t, err)
	assert.Contains(t, algos, "Quick Sort")

	other, err := provider.Generate(ctx, "what now")
	require.NoError(t, err)
	assert.Contains(t, other, "Please ask a more specific question")
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("big o complexity", "algorithm", "complexity"))
	assert.False(t, containsAny("plain text", "algorithm", "complexity"))
}
