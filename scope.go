package minijs

import "fmt"

type DeclKind uint8

const (
	DeclVar DeclKind = iota
	DeclLet
	DeclConst
	DeclFunction
	DeclParam
)

func (k DeclKind) String() string {
	switch k {
	case DeclVar:
		return "var"
	case DeclLet:
		return "let"
	case DeclConst:
		return "const"
	case DeclFunction:
		return "function"
	case DeclParam:
		return "param"
	}
	return "unknown"
}

// Binding is one name slot in a scope. A let/const binding exists from the
// moment its scope is hoisted but stays uninitialized until its declaration
// statement runs; reading or writing it before then is a distinct failure
// from an undeclared name.
type Binding struct {
	Kind        DeclKind
	Value       Value
	initialized bool
}

type lookupStatus uint8

const (
	lookupFound lookupStatus = iota
	lookupMissing
	lookupUninitialized
)

// Scope is one link of the lexical chain. The chain is fixed at definition
// time: inner scopes see outer ones, never the reverse, and resolution stops
// at the first match.
type Scope struct {
	parent      *Scope
	isSetStrict bool
	env         Environment
	doNotDelete map[Name]struct{}

	// true on a function body's wrapper scope: var and function declarations
	// stop bubbling here. Arrows are function scopes too; they only lack a
	// this of their own.
	isFunctionScope bool

	// names of var/function declarations that bubbled through this scope on
	// their way to the enclosing function scope; a lexical declaration of
	// the same name here is a collision
	bubbledVars map[Name]struct{}

	// non-nil iff this scope owns a call's this. Arrow invocations leave it
	// nil, which is exactly what makes their this resolution lexical.
	call *ScopeCall
}

type ScopeCall struct {
	this Value
}

type Environment interface {
	declare(scope *Scope, kind DeclKind, name Name, value Value) error
	lookup(scope *Scope, name Name) (Value, lookupStatus)
	// set walks outward from scope; from stays the innermost scope the
	// assignment was evaluated in, so strict-mode checks see the whole chain.
	set(scope, from *Scope, name Name, value Value, vm *VM) error
	initializeOwn(name Name, value Value) bool
	deleteVar(scope *Scope, name Name) bool
}

func newScope(env Environment) *Scope {
	return &Scope{
		env:         env,
		doNotDelete: make(map[Name]struct{}),
	}
}

func (s *Scope) declare(kind DeclKind, name Name, value Value) error {
	return s.env.declare(s, kind, name, value)
}

func (s *Scope) lookup(name Name) (Value, lookupStatus) {
	return s.env.lookup(s, name)
}

func (s *Scope) set(name Name, value Value, vm *VM) error {
	return s.env.set(s, s, name, value, vm)
}

// initializeLexical flips a hoisted let/const/class binding to initialized
// at its declaration's source position.
func (s *Scope) initializeLexical(name Name, value Value) {
	for scope := s; scope != nil; scope = scope.parent {
		if scope.env.initializeOwn(name, value) {
			return
		}
	}
	panic(fmt.Sprintf("bug: initializing lexical binding that was never hoisted: %s", name))
}

func isStrict(s *Scope) bool {
	for ; s != nil; s = s.parent {
		if s.isSetStrict {
			return true
		}
	}
	return false
}

// thisOfScope walks outward to the nearest scope that owns a this. Arrow
// wrapper scopes never own one, so arrows resolve to their defining
// function's this.
func thisOfScope(vm *VM, scope *Scope) Value {
	for ; scope != nil; scope = scope.parent {
		if scope.call != nil {
			return scope.call.this
		}
	}
	return vm.globalObject
}

// directEnv is the map-backed environment used by function and block scopes.
type directEnv map[Name]*Binding

func newDirectEnv() directEnv {
	return make(directEnv)
}

func (denv directEnv) declare(scope *Scope, kind DeclKind, name Name, value Value) error {
	if kind == DeclVar || kind == DeclFunction {
		if existing, found := denv[name]; found && (existing.Kind == DeclLet || existing.Kind == DeclConst) {
			return fmt.Errorf("identifier %s has already been declared", name)
		}
		if !scope.isFunctionScope && scope.parent != nil {
			// var and function declarations belong to the nearest function
			// scope; remember they passed through here
			if scope.bubbledVars == nil {
				scope.bubbledVars = make(map[Name]struct{})
			}
			scope.bubbledVars[name] = struct{}{}
			return scope.parent.env.declare(scope.parent, kind, name, value)
		}
	}

	existing, alreadyDefined := denv[name]
	switch {
	case !alreadyDefined:
		if _, bubbled := scope.bubbledVars[name]; bubbled && (kind == DeclLet || kind == DeclConst) {
			return fmt.Errorf("identifier %s has already been declared", name)
		}
		denv[name] = &Binding{
			Kind:        kind,
			Value:       value,
			initialized: kind != DeclLet && kind != DeclConst,
		}
	case kind == DeclFunction:
		// a later function declaration wins over an earlier binding
		existing.Kind = DeclFunction
		existing.Value = value
		existing.initialized = true
	case kind == DeclVar || kind == DeclParam:
		// duplicate var: the already-assigned value is preserved
	default:
		return fmt.Errorf("identifier %s has already been declared", name)
	}
	return nil
}

func (denv directEnv) lookup(scope *Scope, name Name) (Value, lookupStatus) {
	if binding, defined := denv[name]; defined {
		if !binding.initialized {
			return nil, lookupUninitialized
		}
		return binding.Value, lookupFound
	}
	if scope.parent != nil {
		return scope.parent.env.lookup(scope.parent, name)
	}
	return nil, lookupMissing
}

func (denv directEnv) set(scope, from *Scope, name Name, value Value, vm *VM) error {
	if vm == nil {
		panic("bug: vm not passed (required to raise reference errors)")
	}

	if binding, defined := denv[name]; defined {
		if !binding.initialized {
			return vm.throwKind(FaultUninitializedAccess,
				fmt.Sprintf("cannot access '%s' before initialization", name))
		}
		if binding.Kind == DeclConst {
			return vm.throwKind(FaultTypeFailure,
				fmt.Sprintf("assignment to constant variable %s", name))
		}
		binding.Value = value
		return nil
	}
	if parent := scope.parent; parent != nil {
		return parent.env.set(parent, from, name, value, vm)
	}
	return vm.throwKind(FaultReferenceNotFound, fmt.Sprintf("%s is not defined", name))
}

func (denv directEnv) initializeOwn(name Name, value Value) bool {
	binding, defined := denv[name]
	if !defined {
		return false
	}
	binding.Value = value
	binding.initialized = true
	return true
}

func (denv directEnv) deleteVar(scope *Scope, name Name) bool {
	if _, dnd := scope.doNotDelete[name]; dnd {
		return false
	}
	if _, defined := denv[name]; defined {
		delete(denv, name)
		return true
	}
	if scope.parent != nil {
		return scope.parent.env.deleteVar(scope.parent, name)
	}
	return false
}

// objectEnv backs the global scope with the global object itself: global
// var and function declarations become properties of it.
type objectEnv struct{ *Object }

func (oenv objectEnv) declare(_ *Scope, kind DeclKind, name Name, value Value) error {
	if kind == DeclFunction || !oenv.HasOwnProperty(name) {
		return oenv.SetProperty(name, value, nil)
	}
	return nil
}

func (oenv objectEnv) lookup(scope *Scope, name Name) (Value, lookupStatus) {
	for object := oenv.Object; object != nil; object = object.Prototype {
		if descriptor, isThere := object.getOwnPropertyDescriptor(name); isThere {
			value, err := oenv.resolveDescriptor(descriptor, nil)
			if err != nil {
				panic("bug: unexpected error in global lookup")
			}
			return value, lookupFound
		}
	}
	if scope.parent != nil {
		return scope.parent.env.lookup(scope.parent, name)
	}
	return nil, lookupMissing
}

func (oenv objectEnv) set(scope, from *Scope, name Name, value Value, vm *VM) error {
	if isStrict(from) && !oenv.hasProperty(name) {
		return vm.throwKind(FaultReferenceNotFound,
			fmt.Sprintf("assignment to undeclared variable %s", name))
	}
	// Sloppy-mode fallback: assigning an undeclared name creates it here, on
	// the global object. This is the "global pollution" path; it is the one
	// deliberate exception to lexical declaration.
	return oenv.SetProperty(name, value, vm)
}

func (oenv objectEnv) initializeOwn(name Name, value Value) bool {
	return oenv.SetProperty(name, value, nil) == nil
}

func (oenv objectEnv) deleteVar(scope *Scope, name Name) bool {
	if _, dnd := scope.doNotDelete[name]; dnd {
		return false
	}
	return oenv.DeleteProperty(name)
}
