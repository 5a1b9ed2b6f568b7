package tools

import "context"

// Tool is one capability the agent can invoke by name. Run always returns an
// observation string; failures are reported as text so the agent loop can
// feed them back to the model instead of aborting the query.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string) string
}
