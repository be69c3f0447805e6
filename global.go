package minijs

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

func createGlobalObject(vm *VM) *Object {
	G := NewObject(ProtoObject)

	consString := addPrimitiveWrapperConstructor(
		G, "String", ProtoString,
		func(vm *VM, v Value) (Value, error) {
			s, err := vm.coerceToString(v)
			return s, err
		},
	)

	consBoolean := addPrimitiveWrapperConstructor(
		G, "Boolean", ProtoBoolean,
		func(vm *VM, v Value) (Value, error) {
			return vm.coerceToBoolean(v), nil
		},
	)

	consNumber := addPrimitiveWrapperConstructor(
		G, "Number", ProtoNumber,
		func(vm *VM, v Value) (Value, error) {
			n, err := vm.coerceToNumber(v)
			return n, err
		},
	)

	consObject := NewNativeFunction("Object", []Name{"value"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			value := argOr(args, 0)

			var constructor *Object
			switch spec := value.(type) {
			case Boolean:
				constructor = consBoolean
			case Number:
				constructor = consNumber
			case String:
				constructor = consString
			case *Object:
				return spec, nil
			case Undefined, Null:
				return NewObject(ProtoObject), nil
			default:
				panic(fmt.Sprintf("unexpected minijs.Value: %#v", value))
			}
			return constructor.Invoke(vm, Undefined{}, args[:1], CallFlags{IsNew: true})
		})
	mustSet(G, "Object", consObject)

	consArray := NewNativeFunction("Array", nil,
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			return NewArray(args...), nil
		})
	consArray.DefineProperty(NameStr("prototype"), Descriptor{value: ProtoArray})
	mustSet(G, "Array", consArray)

	addErrorConstructor(G, "Error", ProtoError)
	for _, name := range []string{"TypeError", "RangeError", "ReferenceError", "SyntaxError", "AggregateError"} {
		proto := NewObject(ProtoError)
		mustSet(proto, "name", String(name))
		addErrorConstructor(G, Name(name), proto)
	}

	printFn := NewNativeFunction("print", []Name{"value"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			vm.printValues(args)
			return Undefined{}, nil
		})
	mustSet(G, "print", printFn)

	console := NewObject(ProtoObject)
	mustSet(console, "log", NewNativeFunction("log", []Name{"value"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			vm.printValues(args)
			return Undefined{}, nil
		}))
	mustSet(G, "console", console)

	mustSet(G, "setTimeout", NewNativeFunction("setTimeout", []Name{"callback", "delay"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			callback, err := vm.requireCallable(argOr(args, 0), "setTimeout callback")
			if err != nil {
				return nil, err
			}
			delayRank := 0
			if num, isNum := argOr(args, 1).(Number); isNum {
				delayRank = int(num)
			}
			id := vm.loop.ScheduleMacrotask(delayRank, vm.guardedTask(callback))
			return Number(id), nil
		}))

	mustSet(G, "queueMicrotask", NewNativeFunction("queueMicrotask", []Name{"callback"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			callback, err := vm.requireCallable(argOr(args, 0), "queueMicrotask callback")
			if err != nil {
				return nil, err
			}
			vm.loop.EnqueueMicrotask(vm.guardedTask(callback))
			return Undefined{}, nil
		}))

	installPromiseConstructor(G)

	mathObj := NewObject(ProtoObject)
	for name, f := range map[Name]func(float64) float64{
		"floor": math.Floor, "ceil": math.Ceil, "abs": math.Abs,
		"sqrt": math.Sqrt, "trunc": math.Trunc, "round": math.Round,
	} {
		f := f
		mustSet(mathObj, name, NewNativeFunction(name, []Name{"x"},
			func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
				n, err := vm.coerceToNumber(argOr(args, 0))
				if err != nil {
					return nil, err
				}
				return Number(f(float64(n))), nil
			}))
	}
	mustSet(mathObj, "max", mathExtremum(math.Inf(-1), math.Max))
	mustSet(mathObj, "min", mathExtremum(math.Inf(+1), math.Min))
	mustSet(G, "Math", mathObj)

	mustSet(G, "NaN", Number(math.NaN()))
	mustSet(G, "Infinity", Number(math.Inf(+1)))
	mustSet(G, "globalThis", G)

	return G
}

func mustSet(obj *Object, name Name, value Value) {
	if err := obj.SetProperty(name, value, nil); err != nil {
		panic("SetProperty must not fail here")
	}
}

func addPrimitiveWrapperConstructor(
	globalObj *Object,
	name Name,
	prototype *Object,
	coercer func(vm *VM, v Value) (Value, error),
) *Object {
	constructor := NewNativeFunction(name, []Name{"primitiveValue"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			prim, err := coercer(vm, argOr(args, 0))
			if err != nil {
				return Undefined{}, err
			}

			if flags.IsNew {
				// discard this, wrap into a fresh boxed object
				obj := NewObject(prototype)
				obj.primitive = prim
				return obj, nil
			}
			return prim, nil
		})
	constructor.DefineProperty(NameStr("prototype"), Descriptor{value: prototype})
	mustSet(globalObj, name, constructor)
	return constructor
}

func addErrorConstructor(globalObj *Object, name Name, proto *Object) {
	constructor := NewNativeFunction(name, []Name{"message"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			var obj *Object
			if thisObj, isObj := this.(*Object); isObj && flags.IsNew {
				obj = thisObj
			} else {
				obj = NewObject(proto)
			}
			if msg := argOr(args, 0); !isNullish(msg) {
				msgStr, err := vm.coerceToString(msg)
				if err != nil {
					return nil, err
				}
				if err := obj.SetProperty(NameStr("message"), msgStr, vm); err != nil {
					return nil, err
				}
			}
			return obj, nil
		})
	constructor.DefineProperty(NameStr("prototype"), Descriptor{value: proto})
	mustSet(proto, "constructor", constructor)
	mustSet(globalObj, name, constructor)
}

func mathExtremum(identity float64, pick func(a, b float64) float64) *Object {
	name := Name("max")
	if math.IsInf(identity, +1) {
		name = "min"
	}
	return NewNativeFunction(name, nil,
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			acc := identity
			for _, arg := range args {
				n, err := vm.coerceToNumber(arg)
				if err != nil {
					return nil, err
				}
				if math.IsNaN(float64(n)) {
					return Number(math.NaN()), nil
				}
				acc = pick(acc, float64(n))
			}
			return Number(acc), nil
		})
}

func installPromiseConstructor(globalObj *Object) {
	consPromise := NewNativeFunction("Promise", []Name{"executor"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			if !flags.IsNew {
				return nil, vm.throwKind(FaultTypeFailure, "Promise constructor requires new")
			}
			executor, err := vm.requireCallable(argOr(args, 0), "Promise executor")
			if err != nil {
				return nil, err
			}

			promObj, rec := vm.newPromise()
			resolveFn := NewNativeFunction("resolve", []Name{"value"},
				func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
					return Undefined{}, rec.resolve(vm, argOr(args, 0))
				})
			rejectFn := NewNativeFunction("reject", []Name{"reason"},
				func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
					return Undefined{}, rec.reject(vm, argOr(args, 0), FaultUserThrown)
				})

			// the executor runs synchronously; a throw rejects the promise
			if _, err := executor.Invoke(vm, Undefined{}, []Value{resolveFn, rejectFn}, CallFlags{}); err != nil {
				exc, isExc := err.(*Exception)
				if !isExc {
					return nil, err
				}
				if rejErr := rec.reject(vm, exc.Value, exc.Kind); rejErr != nil {
					return nil, rejErr
				}
			}
			return promObj, nil
		})
	consPromise.DefineProperty(NameStr("prototype"), Descriptor{value: ProtoPromise})
	mustSet(ProtoPromise, "constructor", consPromise)

	mustSet(consPromise, "resolve", NewNativeFunction("resolve", []Name{"value"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			return vm.PromiseResolve(argOr(args, 0))
		}))
	mustSet(consPromise, "reject", NewNativeFunction("reject", []Name{"reason"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			return vm.PromiseReject(argOr(args, 0))
		}))

	combinators := map[Name]func(vm *VM, items []Value) (*Object, error){
		"all":        (*VM).PromiseAll,
		"race":       (*VM).PromiseRace,
		"any":        (*VM).PromiseAny,
		"allSettled": (*VM).PromiseAllSettled,
	}
	for name, combine := range combinators {
		combine := combine
		mustSet(consPromise, name, NewNativeFunction(name, []Name{"items"},
			func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
				arr, isObj := argOr(args, 0).(*Object)
				if !isObj || arr.arrayPart == nil {
					return nil, vm.throwKind(FaultTypeFailure, "argument must be an array")
				}
				items := make([]Value, len(arr.arrayPart))
				copy(items, arr.arrayPart)
				return combine(vm, items)
			}))
	}

	mustSet(globalObj, "Promise", consPromise)
}

// guardedTask wraps a scheduled evaluated-code callback: an uncaught
// exception becomes a transcript diagnostic instead of stopping the loop.
func (vm *VM) guardedTask(callback *Object) func() error {
	return func() error {
		_, err := callback.Invoke(vm, Undefined{}, nil, CallFlags{})
		if exc, isExc := err.(*Exception); isExc {
			vm.diagnoseException(exc)
			return nil
		}
		return err
	}
}

func (vm *VM) printValues(args []Value) {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = vm.displayValue(arg)
	}
	line := strings.Join(parts, " ")
	vm.transcript.Print(line)
	vm.log.Debug().Str("line", line).Msg("print")
}

// displayValue renders a value for the transcript. Object keys are sorted
// so the rendering is deterministic.
func (vm *VM) displayValue(v Value) string {
	return vm.displayDepth(v, 0)
}

func (vm *VM) displayDepth(v Value, depth int) string {
	switch v := v.(type) {
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Boolean:
		if v {
			return "true"
		}
		return "false"
	case Number:
		return jsNumberString(float64(v))
	case String:
		if depth > 0 {
			return "'" + string(v) + "'"
		}
		return string(v)
	case *Object:
		return vm.displayObject(v, depth)
	default:
		panic(fmt.Sprintf("unexpected minijs.Value: %#v", v))
	}
}

func (vm *VM) displayObject(obj *Object, depth int) string {
	if depth >= 3 {
		return "..."
	}

	switch {
	case obj.funcPart != nil:
		name := string(obj.funcPart.name)
		if name == "" {
			return "[Function (anonymous)]"
		}
		return "[Function: " + name + "]"

	case obj.promisePart != nil:
		switch obj.promisePart.state {
		case PromisePending:
			return "Promise { <pending> }"
		case PromiseRejected:
			return "Promise { <rejected> " + vm.displayDepth(obj.promisePart.value, depth+1) + " }"
		default:
			return "Promise { " + vm.displayDepth(obj.promisePart.value, depth+1) + " }"
		}

	case obj.arrayPart != nil:
		parts := make([]string, len(obj.arrayPart))
		for i, item := range obj.arrayPart {
			parts[i] = vm.displayDepth(item, depth+1)
		}
		return "[ " + strings.Join(parts, ", ") + " ]"

	case obj.isErrorLike():
		name, _ := obj.GetProperty(NameStr("name"), nil)
		message, _ := obj.GetProperty(NameStr("message"), nil)
		nameStr, isNameStr := name.(String)
		if !isNameStr {
			nameStr = "Error"
		}
		if msgStr, isStr := message.(String); isStr && msgStr != "" {
			return string(nameStr) + ": " + string(msgStr)
		}
		return string(nameStr)

	default:
		keys := make([]string, 0, len(obj.descriptors))
		for name := range obj.descriptors {
			keys = append(keys, string(name))
		}
		sort.Strings(keys)

		parts := make([]string, len(keys))
		for i, key := range keys {
			value, err := obj.GetOwnProperty(Name(key), vm)
			if err != nil {
				value = Undefined{}
			}
			parts[i] = key + ": " + vm.displayDepth(value, depth+1)
		}
		if len(parts) == 0 {
			return "{}"
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}
}

func (o *Object) isErrorLike() bool {
	for proto := o.Prototype; proto != nil; proto = proto.Prototype {
		if proto == ProtoError {
			return true
		}
	}
	return false
}

// Prototype methods for the built-in roots. Installed once; natives receive
// the vm at call time.
func init() {
	mustSet(ProtoObject, "toString", NewNativeFunction("toString", nil,
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			return String("[object Object]"), nil
		}))
	mustSet(ProtoObject, "hasOwnProperty", NewNativeFunction("hasOwnProperty", []Name{"key"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			obj, err := vm.coerceToObject(this)
			if err != nil {
				return nil, err
			}
			key, err := vm.coerceToString(argOr(args, 0))
			if err != nil {
				return nil, err
			}
			return Boolean(obj.HasOwnProperty(Name(key))), nil
		}))

	installFunctionProtoMethods()
	installArrayProtoMethods()
	installWrapperProtoMethods()

	mustSet(ProtoError, "name", String("Error"))
	mustSet(ProtoError, "message", String(""))
	mustSet(ProtoError, "toString", NewNativeFunction("toString", nil,
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			obj, err := vm.coerceToObject(this)
			if err != nil {
				return nil, err
			}
			return String(vm.displayObject(obj, 0)), nil
		}))

	installPromiseProtoMethods()
}

func installFunctionProtoMethods() {
	requireFn := func(vm *VM, this Value) (*Object, error) {
		fn, isObj := this.(*Object)
		if !isObj || fn.funcPart == nil {
			return nil, vm.throwKind(FaultTypeFailure, "receiver is not a function")
		}
		return fn, nil
	}

	mustSet(ProtoFunction, "call", NewNativeFunction("call", []Name{"thisArg"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			fn, err := requireFn(vm, this)
			if err != nil {
				return nil, err
			}
			return fn.Invoke(vm, argOr(args, 0), args[min(1, len(args)):], CallFlags{})
		}))

	mustSet(ProtoFunction, "apply", NewNativeFunction("apply", []Name{"thisArg", "args"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			fn, err := requireFn(vm, this)
			if err != nil {
				return nil, err
			}
			var callArgs []Value
			if arr, isObj := argOr(args, 1).(*Object); isObj && arr.arrayPart != nil {
				callArgs = arr.arrayPart
			} else if !isNullish(argOr(args, 1)) {
				return nil, vm.throwKind(FaultTypeFailure, "second argument to apply must be an array")
			}
			return fn.Invoke(vm, argOr(args, 0), callArgs, CallFlags{})
		}))

	mustSet(ProtoFunction, "bind", NewNativeFunction("bind", []Name{"thisArg"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			fn, err := requireFn(vm, this)
			if err != nil {
				return nil, err
			}
			boundThis := argOr(args, 0)
			preArgs := make([]Value, 0)
			if len(args) > 1 {
				preArgs = append(preArgs, args[1:]...)
			}

			bound := NewNativeFunction("bound "+fn.funcPart.name, nil,
				func(vm *VM, _ Value, callArgs []Value, flags CallFlags) (Value, error) {
					full := make([]Value, 0, len(preArgs)+len(callArgs))
					full = append(full, preArgs...)
					full = append(full, callArgs...)
					return fn.Invoke(vm, boundThis, full, CallFlags{})
				})
			return bound, nil
		}))
}

func installArrayProtoMethods() {
	requireArr := func(vm *VM, this Value) (*Object, error) {
		arr, isObj := this.(*Object)
		if !isObj || arr.arrayPart == nil {
			return nil, vm.throwKind(FaultTypeFailure, "receiver is not an array")
		}
		return arr, nil
	}

	mustSet(ProtoArray, "push", NewNativeFunction("push", []Name{"value"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			arr, err := requireArr(vm, this)
			if err != nil {
				return nil, err
			}
			arr.arrayPart = append(arr.arrayPart, args...)
			return Number(len(arr.arrayPart)), nil
		}))

	join := NewNativeFunction("join", []Name{"separator"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			arr, err := requireArr(vm, this)
			if err != nil {
				return nil, err
			}
			sep := ","
			if sepVal, isStr := argOr(args, 0).(String); isStr {
				sep = string(sepVal)
			}
			parts := make([]string, len(arr.arrayPart))
			for i, item := range arr.arrayPart {
				if isNullish(item) {
					continue
				}
				str, err := vm.coerceToString(item)
				if err != nil {
					return nil, err
				}
				parts[i] = string(str)
			}
			return String(strings.Join(parts, sep)), nil
		})
	mustSet(ProtoArray, "join", join)
	mustSet(ProtoArray, "toString", join)

	mustSet(ProtoArray, "indexOf", NewNativeFunction("indexOf", []Name{"value"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			arr, err := requireArr(vm, this)
			if err != nil {
				return nil, err
			}
			for i, item := range arr.arrayPart {
				if vm.strictEqual(item, argOr(args, 0)) {
					return Number(i), nil
				}
			}
			return Number(-1), nil
		}))

	mustSet(ProtoArray, "forEach", NewNativeFunction("forEach", []Name{"callback"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			arr, err := requireArr(vm, this)
			if err != nil {
				return nil, err
			}
			callback, err := vm.requireCallable(argOr(args, 0), "forEach callback")
			if err != nil {
				return nil, err
			}
			for i, item := range arr.arrayPart {
				if _, err := callback.Invoke(vm, Undefined{}, []Value{item, Number(i), arr}, CallFlags{}); err != nil {
					return nil, err
				}
			}
			return Undefined{}, nil
		}))

	mustSet(ProtoArray, "map", NewNativeFunction("map", []Name{"callback"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			arr, err := requireArr(vm, this)
			if err != nil {
				return nil, err
			}
			callback, err := vm.requireCallable(argOr(args, 0), "map callback")
			if err != nil {
				return nil, err
			}
			out := NewArray()
			for i, item := range arr.arrayPart {
				mapped, err := callback.Invoke(vm, Undefined{}, []Value{item, Number(i), arr}, CallFlags{})
				if err != nil {
					return nil, err
				}
				out.arrayPart = append(out.arrayPart, mapped)
			}
			return out, nil
		}))
}

func installWrapperProtoMethods() {
	// boxed primitives unwrap through valueOf/toString
	for _, proto := range []*Object{ProtoNumber, ProtoBoolean, ProtoString} {
		proto := proto
		mustSet(proto, "valueOf", NewNativeFunction("valueOf", nil,
			func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
				obj, isObj := this.(*Object)
				if !isObj || obj.primitive == nil {
					return nil, vm.throwKind(FaultTypeFailure, "receiver is not a boxed primitive")
				}
				return obj.primitive, nil
			}))
		mustSet(proto, "toString", NewNativeFunction("toString", nil,
			func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
				obj, isObj := this.(*Object)
				if !isObj || obj.primitive == nil {
					return nil, vm.throwKind(FaultTypeFailure, "receiver is not a boxed primitive")
				}
				return vm.coerceToString(obj.primitive)
			}))
	}
}

func installPromiseProtoMethods() {
	requireRec := func(vm *VM, this Value) (*PromiseRecord, error) {
		obj, isObj := this.(*Object)
		if !isObj || obj.promisePart == nil {
			return nil, vm.throwKind(FaultTypeFailure, "receiver is not a promise")
		}
		return obj.promisePart, nil
	}
	fnOrNil := func(v Value) *Object {
		if obj, isObj := v.(*Object); isObj && obj.funcPart != nil {
			return obj
		}
		return nil
	}

	mustSet(ProtoPromise, "then", NewNativeFunction("then", []Name{"onFulfilled", "onRejected"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			rec, err := requireRec(vm, this)
			if err != nil {
				return nil, err
			}
			return rec.Register(vm, fnOrNil(argOr(args, 0)), fnOrNil(argOr(args, 1))), nil
		}))

	mustSet(ProtoPromise, "catch", NewNativeFunction("catch", []Name{"onRejected"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			rec, err := requireRec(vm, this)
			if err != nil {
				return nil, err
			}
			return rec.Register(vm, nil, fnOrNil(argOr(args, 0))), nil
		}))

	mustSet(ProtoPromise, "finally", NewNativeFunction("finally", []Name{"callback"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			rec, err := requireRec(vm, this)
			if err != nil {
				return nil, err
			}
			callback := fnOrNil(argOr(args, 0))
			if callback == nil {
				return rec.Register(vm, nil, nil), nil
			}
			return vm.promiseFinally(rec, callback), nil
		}))
}
