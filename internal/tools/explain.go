package tools

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// CodeExplainer produces a structured explanation of a code snippet: detected
// language, a walkthrough of the notable lines, and teaching notes. It is
// deliberately rule-based so it works without a model backend; the agent
// weaves its output into a fuller answer.
type CodeExplainer struct{}

func NewCodeExplainer() *CodeExplainer { return &CodeExplainer{} }

func (e *CodeExplainer) Name() string { return "explain_code" }

func (e *CodeExplainer) Description() string {
	return "Explain what a piece of code does, line by line, with notes on style and common pitfalls. Input: the code as plain text."
}

func (e *CodeExplainer) Run(_ context.Context, code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "No code provided to explain."
	}

	language := detectLanguage(code)

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Language**: %s\n\n", language)

	sb.WriteString("**Walkthrough**:\n")
	if language == "Go" {
		sb.WriteString(explainGo(code))
	} else {
		sb.WriteString(explainByLine(code, language))
	}

	if notes := teachingNotes(code, language); len(notes) > 0 {
		sb.WriteString("\n**Notes**:\n")
		for _, note := range notes {
			fmt.Fprintf(&sb, "- %s\n", note)
		}
	}
	return sb.String()
}

func detectLanguage(code string) string {
	switch {
	case strings.Contains(code, "func ") || strings.Contains(code, ":=") ||
		strings.Contains(code, "package ") || strings.Contains(code, "fmt."):
		return "Go"
	case strings.Contains(code, "def ") || strings.Contains(code, "print(") ||
		strings.Contains(code, "import ") && strings.Contains(code, ":"):
		return "Python"
	case strings.Contains(code, "function ") || strings.Contains(code, "const ") ||
		strings.Contains(code, "console.log") || strings.Contains(code, "=>"):
		return "JavaScript"
	default:
		return "Unknown"
	}
}

// explainGo summarizes the declarations of a parsed snippet, falling back to
// the line walkthrough when the snippet does not parse as a file.
func explainGo(code string) string {
	src := code
	if !strings.Contains(code, "package ") {
		src = "package main\n\n" + code
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "snippet.go", src, 0)
	if err != nil {
		return explainByLine(code, "Go")
	}

	var sb strings.Builder
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			params := d.Type.Params.NumFields()
			results := 0
			if d.Type.Results != nil {
				results = d.Type.Results.NumFields()
			}
			fmt.Fprintf(&sb, "- `%s` is a function taking %d parameter(s) and returning %d value(s).\n",
				d.Name.Name, params, results)
		case *ast.GenDecl:
			switch d.Tok {
			case token.IMPORT:
				for _, spec := range d.Specs {
					if imp, ok := spec.(*ast.ImportSpec); ok {
						fmt.Fprintf(&sb, "- Imports %s for use in the snippet.\n", imp.Path.Value)
					}
				}
			case token.TYPE:
				for _, spec := range d.Specs {
					if ts, ok := spec.(*ast.TypeSpec); ok {
						fmt.Fprintf(&sb, "- Declares the type `%s`.\n", ts.Name.Name)
					}
				}
			case token.VAR, token.CONST:
				for _, spec := range d.Specs {
					if vs, ok := spec.(*ast.ValueSpec); ok {
						names := make([]string, len(vs.Names))
						for i, n := range vs.Names {
							names[i] = n.Name
						}
						fmt.Fprintf(&sb, "- Declares %s `%s`.\n", strings.ToLower(d.Tok.String()), strings.Join(names, ", "))
					}
				}
			}
		}
	}

	if sb.Len() == 0 {
		return explainByLine(code, "Go")
	}
	return sb.String()
}

// explainByLine annotates recognizable lines with what they do.
func explainByLine(code, language string) string {
	var sb strings.Builder
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if explanation := explainLine(trimmed, language); explanation != "" {
			fmt.Fprintf(&sb, "- `%s` %s\n", trimmed, explanation)
		}
	}
	if sb.Len() == 0 {
		return "- No individually notable lines; the snippet reads top to bottom.\n"
	}
	return sb.String()
}

func explainLine(line, language string) string {
	switch {
	case strings.HasPrefix(line, "for "):
		return "starts a loop."
	case strings.HasPrefix(line, "if "):
		return "branches on a condition."
	case strings.HasPrefix(line, "return"):
		return "returns from the enclosing function."
	case strings.Contains(line, ":="):
		return "declares a variable with an inferred type."
	case strings.HasPrefix(line, "func ") || strings.HasPrefix(line, "def ") || strings.HasPrefix(line, "function "):
		return "defines a function."
	case strings.Contains(line, "fmt.Print") || strings.Contains(line, "print(") || strings.Contains(line, "console.log"):
		return "prints output."
	case strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "from "):
		return "brings in an external package."
	case strings.HasPrefix(line, "go "):
		if language == "Go" {
			return "launches a goroutine to run concurrently."
		}
		return ""
	default:
		return ""
	}
}

// teachingNotes flags common pitfalls worth mentioning to a student.
func teachingNotes(code, language string) []string {
	var notes []string
	if language != "Go" {
		return notes
	}
	if strings.Contains(code, "err != nil") {
		notes = append(notes, "Errors are checked explicitly; Go has no exceptions.")
	}
	if strings.Contains(code, "err :=") && !strings.Contains(code, "err != nil") {
		notes = append(notes, "An error value is assigned but never checked; handle or return it.")
	}
	if strings.Contains(code, "panic(") {
		notes = append(notes, "panic is for unrecoverable states; prefer returning an error.")
	}
	if strings.Contains(code, "go func") && !strings.Contains(code, "sync.") && !strings.Contains(code, "chan") {
		notes = append(notes, "A goroutine without a channel or WaitGroup may outlive the caller.")
	}
	if strings.Contains(code, "range ") && strings.Contains(code, "&") {
		notes = append(notes, "Taking the address of a range variable is a classic aliasing trap before Go 1.22.")
	}
	return notes
}
