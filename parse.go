package minijs

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// Parse turns source text into a program AST. Parse failures come back as
// plain errors; they never reach the evaluator's exception machinery.
func Parse(name, src string) (*ast.Program, error) {
	return parse(name, src)
}

func ParseReader(name string, f io.Reader) (*ast.Program, error) {
	return parse(name, f)
}

func ParseFile(path string) (*ast.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(path, f)
}

func parse(name string, src interface{}) (*ast.Program, error) {
	program, err := parser.ParseFile(nil, name, src, 0)
	if err != nil {
		msg := err.Error()
		msg, found := strings.CutPrefix(msg, name)
		if found {
			msg, _ = strings.CutPrefix(msg, ": ")
		}
		return nil, fmt.Errorf("syntax error: %s", msg)
	}
	return program, nil
}
