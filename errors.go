package minijs

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dop251/goja/ast"
)

// FaultKind classifies every abnormal condition the evaluator can surface.
// The kind travels with the thrown exception and ends up as the tag of the
// transcript diagnostic when the condition goes uncaught, so a harness can
// assert on the exact condition instead of matching message strings.
type FaultKind uint8

const (
	FaultUserThrown FaultKind = iota
	FaultReferenceNotFound
	FaultUninitializedAccess
	FaultStackOverflow
	FaultTypeFailure
	FaultSyntaxFailure
	FaultAggregateFailure
)

func (k FaultKind) String() string {
	switch k {
	case FaultUserThrown:
		return "user-thrown"
	case FaultReferenceNotFound:
		return "reference-not-found"
	case FaultUninitializedAccess:
		return "uninitialized-access"
	case FaultStackOverflow:
		return "stack-overflow"
	case FaultTypeFailure:
		return "type-failure"
	case FaultSyntaxFailure:
		return "syntax-failure"
	case FaultAggregateFailure:
		return "aggregate-failure"
	}
	return "unknown"
}

// errorName maps a fault kind to the `name` property of the exception object
// evaluated code observes in a catch clause.
func (k FaultKind) errorName() string {
	switch k {
	case FaultReferenceNotFound, FaultUninitializedAccess:
		return "ReferenceError"
	case FaultStackOverflow:
		return "RangeError"
	case FaultTypeFailure:
		return "TypeError"
	case FaultSyntaxFailure:
		return "SyntaxError"
	case FaultAggregateFailure:
		return "AggregateError"
	}
	return "Error"
}

// ReturnValue is how a return statement travels up through runStmt.
type ReturnValue struct{ Value }

func (rv ReturnValue) Error() string {
	return "(a value was returned)"
}

type BreakSignal struct{}

func (BreakSignal) Error() string { return "[break]" }

type ContinueSignal struct{}

func (ContinueSignal) Error() string { return "[continue]" }

// Exception is a value thrown by evaluated code (or by the evaluator on its
// behalf). It unwinds frames until a try handler catches it or the turn's
// stack empties.
type Exception struct {
	Kind  FaultKind
	Value Value

	context ProgramContext
}

func (exc *Exception) message() string {
	if str, isStr := exc.Value.(String); isStr {
		return string(str)
	}

	if obj, isObj := exc.Value.(*Object); isObj {
		msgValue, err := obj.GetProperty(NameStr("message"), nil)
		if err != nil {
			return fmt.Sprintf("while getting error's `message` property: %s", err)
		}
		if msgStr, isStr := msgValue.(String); isStr {
			return string(msgStr)
		}
	}

	return "(neither string nor object)"
}

func (exc *Exception) Error() string {
	msg := exc.message()

	lines := make([]string, 1+len(exc.context.stack))
	lines[0] = fmt.Sprintf("uncaught exception [%s]: %s", exc.Kind, msg)
	for i, item := range exc.context.stack {
		lines[1+i] = fmt.Sprintf(" at offset %d %s", item.offset, reflect.TypeOf(item.node).String())
	}
	return strings.Join(lines, "\n")
}

// ProgramContext tracks the chain of AST nodes currently being evaluated,
// for exception reports.
type ProgramContext struct {
	stack []ContextItem
}

type ContextItem struct {
	node   ast.Node
	offset int
}

func (pctx *ProgramContext) Push(node ast.Node) {
	if node == nil {
		return
	}
	pctx.stack = append(pctx.stack, ContextItem{
		node:   node,
		offset: int(node.Idx0()),
	})
}

func (pctx *ProgramContext) Pop(nodeCheck ast.Node) {
	if nodeCheck == nil {
		return
	}

	sl := len(pctx.stack)
	if sl == 0 {
		panic("bug: ProgramContext.Pop but stack already empty")
	}
	if nodeCheck != pctx.stack[sl-1].node {
		panic("bug: nodeCheck != stack top")
	}
	pctx.stack = pctx.stack[:sl-1]
}

func (pctx *ProgramContext) snapshot() ProgramContext {
	cp := make([]ContextItem, len(pctx.stack))
	copy(cp, pctx.stack)
	return ProgramContext{stack: cp}
}

// makeException wraps a user-thrown value.
func (vm *VM) makeException(excValue Value) error {
	return &Exception{
		Kind:    FaultUserThrown,
		Value:   excValue,
		context: vm.synCtx.snapshot(),
	}
}

// throwKind raises one of the evaluator's own conditions as a catchable
// exception carrying the taxonomy kind.
func (vm *VM) throwKind(kind FaultKind, message string) error {
	return &Exception{
		Kind:    kind,
		Value:   vm.newErrorValue(kind.errorName(), message),
		context: vm.synCtx.snapshot(),
	}
}

// newErrorValue builds the plain exception object evaluated code sees.
func (vm *VM) newErrorValue(name, message string) *Object {
	exc := NewObject(ProtoError)
	if err := exc.SetProperty(NameStr("name"), String(name), vm); err != nil {
		panic("SetProperty must not fail here")
	}
	if err := exc.SetProperty(NameStr("message"), String(message), vm); err != nil {
		panic("SetProperty must not fail here")
	}
	return exc
}
