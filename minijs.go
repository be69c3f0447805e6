// Package minijs is an embeddable evaluator for a JavaScript subset. It
// models the parts of the language runtime that matter for reasoning about
// execution order: lexical scope with hoisting, a bounded call stack, the
// five this-binding shapes, promises, and a deterministic event loop whose
// output is captured on a transcript instead of being printed.
package minijs

import (
	"io"

	"github.com/dop251/goja/ast"
	"github.com/rs/zerolog"
)

const DefaultMaxDepth = 1000

type VM struct {
	globalObject *Object
	globalScope  *Scope
	curScope     *Scope
	stack        *CallStack
	loop         *EventLoop
	transcript   *Transcript
	synCtx       ProgramContext
	log          zerolog.Logger
	forceStrict  bool
}

type Options struct {
	// MaxDepth bounds the number of function frames; 0 means the default.
	MaxDepth int
	// ForceStrict makes every program run as if it began with "use strict".
	ForceStrict bool
	Logger      *zerolog.Logger
}

func NewVM() *VM {
	return NewVMWith(Options{})
}

func NewVMWith(opts Options) *VM {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	vm := &VM{
		stack:       NewCallStack(maxDepth),
		loop:        newEventLoop(log),
		transcript:  NewTranscript(),
		log:         log,
		forceStrict: opts.ForceStrict,
	}
	vm.globalObject = createGlobalObject(vm)
	vm.globalScope = newScope(objectEnv{vm.globalObject})
	vm.curScope = vm.globalScope

	// the global frame sits at the bottom of the stack for the VM's whole
	// life; it is not charged against MaxDepth
	if err := vm.stack.Push(&Frame{Scope: vm.globalScope, This: vm.globalObject}); err != nil {
		panic("bug: pushing the global frame must not fail")
	}
	return vm
}

func (vm *VM) Global() *Object         { return vm.globalObject }
func (vm *VM) Transcript() *Transcript { return vm.transcript }
func (vm *VM) Loop() *EventLoop        { return vm.loop }
func (vm *VM) Stack() *CallStack       { return vm.stack }

func (vm *VM) RunScriptFile(path string) error {
	program, err := ParseFile(path)
	if err != nil {
		return err
	}
	return vm.RunProgram(program)
}

func (vm *VM) RunScriptReader(name string, r io.Reader) error {
	program, err := ParseReader(name, r)
	if err != nil {
		return err
	}
	return vm.RunProgram(program)
}

// RunString runs the synchronous portion of a script: statements execute to
// completion, but scheduled tasks stay queued until RunToCompletion or the
// stepping primitives run them.
func (vm *VM) RunString(name, src string) error {
	program, err := Parse(name, src)
	if err != nil {
		return err
	}
	return vm.RunProgram(program)
}

// Run executes a script and then the event loop until no work remains.
func (vm *VM) Run(name, src string) error {
	if err := vm.RunString(name, src); err != nil {
		return err
	}
	return vm.RunToCompletion()
}

func (vm *VM) RunProgram(program *ast.Program) error {
	// top-level vars and function declarations bubble up to the global
	// object; let/const stay confined to this program's scope
	programScope := newScope(newDirectEnv())
	programScope.parent = vm.globalScope
	programScope.isSetStrict = vm.forceStrict || hasUseStrict(program.Body)

	if err := vm.hoistVarScope(programScope, program.Body); err != nil {
		return vm.diagnoseRunError(err)
	}

	saveScope := vm.curScope
	vm.curScope = programScope
	defer func() { vm.curScope = saveScope }()

	return vm.diagnoseRunError(vm.runStmts(program.Body))
}

// diagnoseRunError records an uncaught exception on the transcript. The
// error is still returned so embedders can inspect it.
func (vm *VM) diagnoseRunError(err error) error {
	if err == nil {
		return nil
	}
	switch err := err.(type) {
	case *Exception:
		vm.diagnoseException(err)
		return err
	case ReturnValue, BreakSignal, ContinueSignal:
		return vm.diagnoseRunError(vm.throwKind(FaultSyntaxFailure, "illegal statement outside of a function or loop"))
	default:
		return err
	}
}

func (vm *VM) diagnoseException(exc *Exception) {
	vm.transcript.Diagnose(exc.Kind.String(), exc.message())
	vm.log.Warn().Str("kind", exc.Kind.String()).Str("message", exc.message()).Msg("uncaught exception")
}

// DrainMicrotasks runs queued microtasks until the queue is empty.
func (vm *VM) DrainMicrotasks() error {
	return vm.loop.DrainMicrotasks()
}

// RunNextMacrotask runs the single next-due macrotask, then drains the
// microtasks it produced. It reports false when no macrotask was pending.
func (vm *VM) RunNextMacrotask() (bool, error) {
	ran, err := vm.loop.RunNextMacrotask()
	if err != nil || !ran {
		return ran, err
	}
	return true, vm.loop.DrainMicrotasks()
}

// RunToCompletion alternates the two queues until no work remains, then
// diagnoses any rejection that never got a handler.
func (vm *VM) RunToCompletion() error {
	if err := vm.loop.DrainMicrotasks(); err != nil {
		return err
	}
	for {
		ran, err := vm.RunNextMacrotask()
		if err != nil {
			return err
		}
		if !ran {
			break
		}
	}
	vm.loop.reportUnhandled(vm)
	return nil
}
