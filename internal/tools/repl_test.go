package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunExpressionEcho(t *testing.T) {
	sandbox := NewSandbox(5 * time.Second)
	assert.Equal(t, "4", sandbox.Run(context.Background(), "2 + 2"))
}

func TestRunCapturesOutput(t *testing.T) {
	sandbox := NewSandbox(5 * time.Second)
	out := sandbox.Run(context.Background(), `fmt.Println("hello, class")`)
	assert.Equal(t, "hello, class", out)
}

func TestRunNoOutputSentinel(t *testing.T) {
	sandbox := NewSandbox(5 * time.Second)
	out := sandbox.Run(context.Background(), "x := 42")
	assert.Equal(t, "Code executed successfully (no output)", out)
}

func TestRunSyntaxError(t *testing.T) {
	sandbox := NewSandbox(5 * time.Second)
	out := sandbox.Run(context.Background(), "for { if }")
	assert.True(t, strings.HasPrefix(out, "Syntax Error:"), out)
}

func TestRunEmptyCode(t *testing.T) {
	sandbox := NewSandbox(5 * time.Second)
	out := sandbox.Run(context.Background(), "   ")
	assert.True(t, strings.HasPrefix(out, "Syntax Error:"), out)
}

func TestSecurityScreenBlocksSelectors(t *testing.T) {
	sandbox := NewSandbox(5 * time.Second)

	for _, snippet := range []string{
		`os.Getenv("HOME")`,
		`exec.Command("ls").Run()`,
		`net.Dial("tcp", "example.com:80")`,
		`syscall.Getpid()`,
	} {
		out := sandbox.Run(context.Background(), snippet)
		assert.True(t, strings.HasPrefix(out, "Security Error:"), "%s -> %s", snippet, out)
	}
}

func TestSecurityScreenBlocksImports(t *testing.T) {
	sandbox := NewSandbox(5 * time.Second)

	code := `import "os/exec"

func run() { exec.Command("ls") }`
	out := sandbox.Run(context.Background(), code)
	assert.True(t, strings.HasPrefix(out, "Security Error:"), out)
}

func TestSecurityScreenAllowsSafeCode(t *testing.T) {
	sandbox := NewSandbox(5 * time.Second)
	out := sandbox.Run(context.Background(), `strings.ToUpper("abc")`)
	assert.Equal(t, "ABC", out)
}

func TestStatePersistsAcrossCalls(t *testing.T) {
	sandbox := NewSandbox(5 * time.Second)
	ctx := context.Background()

	assert.Equal(t, "Code executed successfully (no output)", sandbox.Run(ctx, "count := 21"))
	assert.Equal(t, "42", sandbox.Run(ctx, "count * 2"))
}

func TestResetDropsState(t *testing.T) {
	sandbox := NewSandbox(5 * time.Second)
	ctx := context.Background()

	sandbox.Run(ctx, "lost := 1")
	sandbox.Reset()

	out := sandbox.Run(ctx, "lost + 1")
	assert.True(t, strings.HasPrefix(out, "Runtime Error:"), out)
}

func TestRunTimeout(t *testing.T) {
	sandbox := NewSandbox(100 * time.Millisecond)
	out := sandbox.Run(context.Background(), "for {}")
	assert.True(t, strings.HasPrefix(out, "Runtime Error:"), out)
}

func TestDeniedImportPath(t *testing.T) {
	assert.True(t, deniedImportPath("os/exec/exec"))
	assert.True(t, deniedImportPath("net/http/http"))
	assert.False(t, deniedImportPath("strings/strings"))
	assert.False(t, deniedImportPath("fmt/fmt"))
}
