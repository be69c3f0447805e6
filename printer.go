package minijs

import (
	"fmt"
	"io"
	"reflect"

	"github.com/dop251/goja/ast"
)

// PrintAST parses the source and writes an indented tree of its AST nodes,
// with each node's source offset range.
func PrintAST(w io.Writer, name string, rdr io.Reader) error {
	program, err := ParseReader(name, rdr)
	if err != nil {
		return err
	}

	p := &printer{w: w}
	p.visit(reflect.ValueOf(program))
	return nil
}

type printer struct {
	w      io.Writer
	indent int
}

// visit walks the node graph through reflection: any reachable value that
// implements ast.Node is printed, everything else is just traversed.
func (p *printer) visit(v reflect.Value) {
	if !v.IsValid() {
		return
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() || !v.CanInterface() {
			return
		}
		if node, isNode := v.Interface().(ast.Node); isNode {
			p.enter(node, v.Elem())
			return
		}
		p.visit(v.Elem())

	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			p.visit(v.Index(i))
		}

	case reflect.Struct:
		if v.CanAddr() && v.Addr().CanInterface() {
			if node, isNode := v.Addr().Interface().(ast.Node); isNode {
				p.enter(node, v)
				return
			}
		}
		p.visitFields(v)
	}
}

func (p *printer) enter(node ast.Node, elem reflect.Value) {
	for i := 0; i < p.indent; i++ {
		fmt.Fprint(p.w, "|   ")
	}
	fmt.Fprintf(p.w, "%s  [%d:%d]\n", reflect.TypeOf(node), node.Idx0(), node.Idx1())

	p.indent++
	for elem.Kind() == reflect.Ptr || elem.Kind() == reflect.Interface {
		if elem.IsNil() {
			p.indent--
			return
		}
		elem = elem.Elem()
	}
	if elem.Kind() == reflect.Struct {
		p.visitFields(elem)
	}
	p.indent--
}

func (p *printer) visitFields(v reflect.Value) {
	for i := 0; i < v.NumField(); i++ {
		p.visit(v.Field(i))
	}
}
