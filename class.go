package minijs

import (
	"fmt"

	"github.com/dop251/goja/ast"
)

// evalClassLiteral builds a class: a constructor function whose "prototype"
// carries the methods, chained to the superclass's prototype when one is
// given. Class bodies are always strict.
func (vm *VM) evalClassLiteral(lit *ast.ClassLiteral) (*Object, error) {
	var superCtor *Object
	protoParent := ProtoObject

	if lit.SuperClass != nil {
		superVal, err := vm.evalExpr(lit.SuperClass)
		if err != nil {
			return nil, err
		}
		superObj, isObj := superVal.(*Object)
		if !isObj || superObj.funcPart == nil {
			return nil, vm.throwKind(FaultTypeFailure, "class extends value is not a constructor")
		}
		superCtor = superObj

		superProtoVal, err := superCtor.GetProperty(NameStr("prototype"), vm)
		if err != nil {
			return nil, err
		}
		if superProto, isObj := superProtoVal.(*Object); isObj {
			protoParent = superProto
		}
	}

	proto := NewObject(protoParent)

	className := Name("")
	if lit.Name != nil {
		className = Name(lit.Name.Name)
	}

	ctor, err := vm.buildClassConstructor(lit, className, superCtor)
	if err != nil {
		return nil, err
	}
	ctor.funcPart.superCtor = superCtor

	// static members inherit through the constructor chain
	if superCtor != nil {
		ctor.Prototype = superCtor
	}

	ctor.DefineProperty(NameStr("prototype"), Descriptor{value: proto})
	if err := proto.SetProperty(NameStr("constructor"), ctor, vm); err != nil {
		return nil, err
	}
	if className != "" {
		if err := ctor.SetProperty(NameStr("name"), String(className), vm); err != nil {
			return nil, err
		}
	}

	for _, element := range lit.Body {
		method, isMethod := element.(*ast.MethodDefinition)
		if !isMethod {
			return nil, vm.throwKind(FaultSyntaxFailure,
				fmt.Sprintf("unsupported class member: %T", element))
		}
		if isConstructorMember(method) {
			continue
		}

		key, err := vm.propertyKey(method.Key, method.Computed)
		if err != nil {
			return nil, err
		}
		fn, err := vm.makeFunction(vm.curScope, method.Body.ParameterList, method.Body.Body,
			funcFlags{forceStrict: true})
		if err != nil {
			return nil, err
		}
		fn.funcPart.name = key

		target := proto
		if method.Static {
			target = ctor
		}

		switch method.Kind {
		case ast.PropertyKindMethod:
			if err := target.SetProperty(key, fn, vm); err != nil {
				return nil, err
			}
		case ast.PropertyKindGet:
			target.getOrDefineProperty(key).get = fn
		case ast.PropertyKindSet:
			target.getOrDefineProperty(key).set = fn
		default:
			return nil, vm.throwKind(FaultSyntaxFailure,
				fmt.Sprintf("unsupported class method kind: %s", method.Kind))
		}
	}

	return ctor, nil
}

func (vm *VM) buildClassConstructor(lit *ast.ClassLiteral, className Name, superCtor *Object) (*Object, error) {
	for _, element := range lit.Body {
		method, isMethod := element.(*ast.MethodDefinition)
		if !isMethod || !isConstructorMember(method) {
			continue
		}
		ctor, err := vm.makeFunction(vm.curScope, method.Body.ParameterList, method.Body.Body,
			funcFlags{forceStrict: true, isClassCtor: true})
		if err != nil {
			return nil, err
		}
		ctor.funcPart.name = className
		return ctor, nil
	}

	// no explicit constructor: the default one forwards to the superclass
	ctor := NewNativeFunction(className, nil,
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			if superCtor != nil {
				return superCtor.Invoke(vm, this, args, CallFlags{IsNew: true})
			}
			return Undefined{}, nil
		})
	ctor.funcPart.isClassCtor = true
	return ctor, nil
}

func isConstructorMember(method *ast.MethodDefinition) bool {
	if method.Static || method.Computed {
		return false
	}
	switch key := method.Key.(type) {
	case *ast.Identifier:
		return key.Name == "constructor"
	case *ast.StringLiteral:
		return key.Value == "constructor"
	}
	return false
}
