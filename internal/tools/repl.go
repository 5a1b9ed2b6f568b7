package tools

import (
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"strings"
	"sync"
	"time"

	"cs-instructor-backend/internal/logger"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const noOutputMessage = "Code executed successfully (no output)"

// deniedPackages lists package names whose import or use fails the static
// screen. This is a best-effort filter for a teaching sandbox, not a security
// boundary: a determined user can get around an AST check, so the interpreter
// also runs with these packages stripped from its symbol table.
var deniedPackages = map[string]bool{
	"os":      true,
	"exec":    true,
	"syscall": true,
	"net":     true,
	"http":    true,
	"rpc":     true,
	"unsafe":  true,
	"plugin":  true,
	"ioutil":  true,
}

// Sandbox evaluates Go snippets with an embedded interpreter. Declarations
// persist across calls so students can build up state line by line, like a
// REPL. Stdout is captured per call; each run is bounded by a deadline.
type Sandbox struct {
	mu      sync.Mutex
	interp  *interp.Interpreter
	out     *switchWriter
	timeout time.Duration
}

func NewSandbox(timeout time.Duration) *Sandbox {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Sandbox{
		out:     &switchWriter{w: io.Discard},
		timeout: timeout,
	}
	s.interp = newInterpreter(s.out)
	return s
}

// newInterpreter builds an interpreter whose symbol table excludes the denied
// packages, so even code that slips past the static screen cannot reach them.
func newInterpreter(out io.Writer) *interp.Interpreter {
	i := interp.New(interp.Options{Stdout: out, Stderr: out})

	allowed := make(interp.Exports, len(stdlib.Symbols))
	for path, symbols := range stdlib.Symbols {
		if deniedImportPath(path) {
			continue
		}
		allowed[path] = symbols
	}
	if err := i.Use(allowed); err != nil {
		logger.Error("could not load interpreter symbols", "error", err.Error())
	}

	// Pre-import the packages students reach for constantly, so snippets can
	// use them without an import clause, REPL style.
	preamble := `import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)`
	if _, err := i.Eval(preamble); err != nil {
		logger.Warn("interpreter preamble failed", "error", err.Error())
	}
	return i
}

// deniedImportPath reports whether any segment of the import path names a
// denied package. Symbol table keys end with a repeated package name segment.
func deniedImportPath(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if deniedPackages[segment] {
			return true
		}
	}
	return false
}

func (s *Sandbox) Name() string { return "execute_code" }

func (s *Sandbox) Description() string {
	return "Execute a Go code snippet and return its output. Use this to run examples, test ideas, or demonstrate concepts. Input: Go code as plain text."
}

// Run parses, screens and executes a snippet. The result is always a string
// in one of four shapes: captured output, a no-output sentinel, or a
// "Syntax Error:" / "Security Error:" / "Runtime Error:" message.
func (s *Sandbox) Run(ctx context.Context, code string) (result string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Syntax Error: empty code"
	}

	parsed, isExpr, err := parseSnippet(code)
	if err != nil {
		return fmt.Sprintf("Syntax Error: %v", err)
	}
	if name := screenDenied(parsed); name != "" {
		return fmt.Sprintf("Security Error: use of '%s' is not allowed", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The interpreter can panic on constructs it does not support.
	defer func() {
		if r := recover(); r != nil {
			result = fmt.Sprintf("Runtime Error: %v", r)
		}
	}()

	var buf bytes.Buffer
	s.out.set(&buf)
	defer s.out.set(io.Discard)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	value, err := s.interp.EvalWithContext(ctx, code)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Sprintf("Runtime Error: execution exceeded the %s limit", s.timeout)
		}
		return fmt.Sprintf("Runtime Error: %v", err)
	}

	output := strings.TrimRight(buf.String(), "\n")
	if output != "" {
		return output
	}

	// A bare expression with no printed output evaluates like a REPL line.
	if isExpr && value.IsValid() {
		return fmt.Sprintf("%v", value)
	}
	return noOutputMessage
}

// Reset discards all interpreter state, giving the next call a fresh
// namespace.
func (s *Sandbox) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interp = newInterpreter(s.out)
}

// parseSnippet accepts the forms a REPL sees: a bare expression, a full file
// (possibly without the package clause), or a sequence of statements.
func parseSnippet(code string) (ast.Node, bool, error) {
	if expr, err := parser.ParseExpr(code); err == nil {
		return expr, true, nil
	}

	fset := token.NewFileSet()
	if file, err := parser.ParseFile(fset, "snippet.go", "package main\n\n"+code, 0); err == nil {
		return file, false, nil
	}

	wrapped := "package main\n\nfunc main() {\n" + code + "\n}"
	file, err := parser.ParseFile(fset, "snippet.go", wrapped, 0)
	if err != nil {
		return nil, false, err
	}
	return file, false, nil
}

// screenDenied walks the AST and returns the first denied package referenced
// by an import or a selector, or "" when the snippet is clean.
func screenDenied(node ast.Node) string {
	var found string
	ast.Inspect(node, func(n ast.Node) bool {
		if found != "" {
			return false
		}
		switch v := n.(type) {
		case *ast.ImportSpec:
			path := strings.Trim(v.Path.Value, `"`)
			if deniedImportPath(path) {
				found = path
				return false
			}
		case *ast.SelectorExpr:
			if ident, ok := v.X.(*ast.Ident); ok && deniedPackages[ident.Name] {
				found = ident.Name + "." + v.Sel.Name
				return false
			}
		}
		return true
	})
	return found
}

// switchWriter routes interpreter output to a per-call destination. The
// interpreter holds one writer for its lifetime, so the destination is
// swapped around each run instead.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
