package minijs

import (
	"fmt"

	"github.com/dop251/goja/ast"
)

type Value interface {
	Kind() Kind
}

type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindNumber
	KindBoolean
	KindString
	KindObject
	KindFunction
)

type Undefined struct{}

func (v Undefined) Kind() Kind { return KindUndefined }

type Null struct{}

func (v Null) Kind() Kind { return KindNull }

type Number float64

func (v Number) Kind() Kind { return KindNumber }

type Boolean bool

func (v Boolean) Kind() Kind { return KindBoolean }

type String string

func (v String) Kind() Kind { return KindString }

type Name string

func NameStr(s string) Name { return Name(s) }

func (n Name) String() string { return string(n) }

// Object is the single reference type: plain objects, arrays, functions,
// promises and boxed primitives are all Objects with the relevant part set.
type Object struct {
	Prototype   *Object
	descriptors map[Name]*Descriptor

	arrayPart   []Value
	funcPart    *FunctionPart
	promisePart *PromiseRecord
	primitive   Value // boxed primitive for wrapper objects
}

type FunctionPart struct {
	isStrict     bool
	isArrow      bool
	isClassCtor  bool
	native       NativeFunc
	params       []Name
	body         ast.Node // *ast.BlockStatement, or *ast.ExpressionBody for arrows
	lexicalScope *Scope
	name         Name
	superCtor    *Object // parent constructor, for super(...) in class constructors
}

type NativeFunc func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error)

type CallFlags struct {
	IsNew bool
}

type Descriptor struct {
	get, set     *Object
	value        Value
	configurable bool
	enumerable   bool
	writable     bool
}

func (o *Object) Kind() Kind {
	if o.funcPart != nil {
		return KindFunction
	}
	return KindObject
}

func NewObject(proto *Object) *Object {
	return &Object{
		Prototype:   proto,
		descriptors: make(map[Name]*Descriptor),
	}
}

func NewArray(items ...Value) *Object {
	obj := NewObject(ProtoArray)
	obj.arrayPart = make([]Value, 0, max(len(items), 8))
	obj.arrayPart = append(obj.arrayPart, items...)
	return obj
}

func NewNativeFunction(name Name, params []Name, cb NativeFunc) *Object {
	obj := NewObject(ProtoFunction)
	obj.funcPart = &FunctionPart{
		isStrict: true,
		native:   cb,
		params:   params,
		name:     name,
	}
	return obj
}

// IsFunction reports whether the value is callable.
func IsFunction(v Value) bool {
	obj, isObj := v.(*Object)
	return isObj && obj.funcPart != nil
}

// ArrayValues exposes the array part (nil for non-arrays).
func (o *Object) ArrayValues() []Value { return o.arrayPart }

// PromiseRecordOf returns the promise record backing a promise object.
func (o *Object) PromiseRecordOf() *PromiseRecord { return o.promisePart }

func (o *Object) resolveDescriptor(descriptor *Descriptor, vm *VM) (Value, error) {
	if descriptor.get == nil {
		return descriptor.value, nil
	}
	if vm == nil {
		panic("bug: looking up described value but vm not passed")
	}
	return descriptor.get.Invoke(vm, o, nil, CallFlags{})
}

func (o *Object) getOwnPropertyDescriptor(name Name) (*Descriptor, bool) {
	d, ok := o.descriptors[name]
	return d, ok
}

func (o *Object) GetOwnProperty(name Name, vm *VM) (Value, error) {
	descriptor, isThere := o.descriptors[name]
	if !isThere {
		return Undefined{}, nil
	}
	return o.resolveDescriptor(descriptor, vm)
}

func (o *Object) HasOwnProperty(name Name) bool {
	_, isThere := o.descriptors[name]
	return isThere
}

func (o *Object) hasProperty(name Name) bool {
	for object := o; object != nil; object = object.Prototype {
		if object.HasOwnProperty(name) {
			return true
		}
	}
	return false
}

// GetProperty walks the prototype chain; a missing property is undefined.
func (o *Object) GetProperty(name Name, vm *VM) (Value, error) {
	if name == "length" && o.arrayPart != nil {
		return Number(len(o.arrayPart)), nil
	}

	for object := o; object != nil; object = object.Prototype {
		descriptor, isThere := object.getOwnPropertyDescriptor(name)
		if isThere {
			return o.resolveDescriptor(descriptor, vm)
		}
	}
	return Undefined{}, nil
}

// SetProperty honors a setter anywhere on the chain; otherwise it writes an
// own property of the receiver.
func (o *Object) SetProperty(name Name, value Value, vm *VM) error {
	if value == nil {
		panic("bug: property value can't be nil")
	}

	for object := o; object != nil; object = object.Prototype {
		descriptor, isThere := object.getOwnPropertyDescriptor(name)
		if !isThere {
			continue
		}
		if descriptor.set != nil {
			_, err := descriptor.set.Invoke(vm, o, []Value{value}, CallFlags{})
			return err
		}
		if object == o {
			descriptor.value = value
			return nil
		}
		break
	}

	o.descriptors[name] = &Descriptor{
		value:        value,
		configurable: true,
		enumerable:   true,
		writable:     true,
	}
	return nil
}

func (o *Object) getOrDefineProperty(name Name) *Descriptor {
	ds, isThere := o.getOwnPropertyDescriptor(name)
	if !isThere {
		ds = o.DefineProperty(name, Descriptor{value: Undefined{}})
	}
	return ds
}

func (o *Object) DefineProperty(name Name, descriptor Descriptor) *Descriptor {
	descriptor.writable = true
	descriptor.configurable = true
	descriptor.enumerable = true
	dp := &descriptor
	o.descriptors[name] = dp
	return dp
}

func (o *Object) DeleteProperty(name Name) bool {
	_, wasThere := o.descriptors[name]
	delete(o.descriptors, name)
	return wasThere
}

func (o *Object) GetIndex(ndx int) (Value, error) {
	if o.arrayPart != nil {
		if ndx < 0 || ndx >= len(o.arrayPart) {
			return Undefined{}, nil
		}
		return o.arrayPart[ndx], nil
	}
	return o.GetProperty(NameStr(fmt.Sprint(ndx)), nil)
}

func (o *Object) SetIndex(ndx int, value Value) {
	if o.arrayPart != nil {
		for len(o.arrayPart) < ndx+1 {
			o.arrayPart = append(o.arrayPart, Undefined{})
		}
		o.arrayPart[ndx] = value
		return
	}
	if err := o.SetProperty(NameStr(fmt.Sprint(ndx)), value, nil); err != nil {
		panic("bug: error in SetIndex")
	}
}

// Invoke runs the callee: resolves this per the function's own mode, pushes
// a frame (overflow-checked), hoists the body's bindings, executes, pops.
func (callee *Object) Invoke(vm *VM, this Value, args []Value, flags CallFlags) (ret Value, err error) {
	fp := callee.funcPart
	if fp == nil {
		return Undefined{}, vm.throwKind(FaultTypeFailure, "callee is not a function")
	}
	if fp.isClassCtor && !flags.IsNew {
		return Undefined{}, vm.throwKind(FaultTypeFailure,
			fmt.Sprintf("class constructor %s cannot be invoked without new", fp.name))
	}

	if fp.isArrow {
		// lexical this: the arrow never owns one
		this = thisOfScope(vm, fp.lexicalScope)
	} else if !flags.IsNew && !fp.isStrict {
		// sloppy-mode this-substitution
		_, isUnd := this.(Undefined)
		_, isNul := this.(Null)
		if isUnd || isNul {
			this = vm.globalObject
		}
		this, err = vm.coerceToObject(this)
		if err != nil {
			return Undefined{}, err
		}
	}

	if fp.native != nil {
		// native callees run on the Go stack; no frame, no depth charge
		for len(args) < len(fp.params) {
			args = append(args, Undefined{})
		}
		return fp.native(vm, this, args, flags)
	}

	wrapper := newScope(newDirectEnv())
	wrapper.parent = fp.lexicalScope
	wrapper.isSetStrict = fp.isStrict
	wrapper.isFunctionScope = true
	if !fp.isArrow {
		wrapper.call = &ScopeCall{this: this}
	}

	frame := &Frame{Scope: wrapper, This: this, Callee: callee}
	if pushErr := vm.stack.Push(frame); pushErr != nil {
		return Undefined{}, vm.throwKind(FaultStackOverflow, pushErr.Error())
	}
	defer vm.stack.Pop(frame)

	saveScope := vm.curScope
	vm.curScope = wrapper
	defer func() { vm.curScope = saveScope }()

	// the function's own name is visible (and fixed) within the body
	if fp.name != "" {
		wrapper.declare(DeclFunction, fp.name, callee) //nolint:errcheck // function scope, cannot collide
	}

	for len(args) < len(fp.params) {
		args = append(args, Undefined{})
	}
	for i, name := range fp.params {
		wrapper.declare(DeclParam, name, args[i]) //nolint:errcheck
	}

	if !fp.isArrow {
		wrapper.declare(DeclVar, NameStr("arguments"), NewArray(args...)) //nolint:errcheck
	}

	body := newScope(newDirectEnv())
	body.parent = wrapper
	vm.curScope = body

	ret = Undefined{}
	switch node := fp.body.(type) {
	case *ast.BlockStatement:
		if err = vm.hoistVarScope(body, node.List); err != nil {
			return
		}
		err = vm.runStmts(node.List)
	case *ast.ExpressionBody:
		ret, err = vm.evalExpr(node.Expression)
	default:
		panic(fmt.Sprintf("invalid function body node: %#v", fp.body))
	}

	if retWrapper, isReturn := err.(ReturnValue); isReturn {
		ret = retWrapper.Value
		err = nil
	}
	return
}

// Root prototypes. Their methods are installed in global.go's init.
var (
	ProtoObject   = NewObject(nil)
	ProtoFunction = newChildProto()
	ProtoNumber   = newChildProto()
	ProtoBoolean  = newChildProto()
	ProtoString   = newChildProto()
	ProtoArray    = newChildProto()
	ProtoError    = newChildProto()
	ProtoPromise  = newChildProto()
)

func newChildProto() *Object {
	return NewObject(ProtoObject)
}
