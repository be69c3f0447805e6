package minijs

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

func (vm *VM) coerceToObject(value Value) (*Object, error) {
	var consName Name

	switch specific := value.(type) {
	case Number:
		consName = "Number"
	case Boolean:
		consName = "Boolean"
	case String:
		consName = "String"
	case *Object:
		return specific, nil
	default:
		// includes null, undefined
		return nil, vm.throwKind(FaultTypeFailure, fmt.Sprintf("cannot convert to object: %s", vm.displayValue(value)))
	}

	consGen, err := vm.globalObject.GetOwnProperty(consName, vm)
	if err != nil {
		return nil, err
	}
	cons, isObj := consGen.(*Object)
	if !isObj {
		panic(fmt.Sprintf("bug: constructor %s is not an object", consName))
	}
	return vm.DoNew(cons, []Value{value})
}

func (vm *VM) coerceToBoolean(value Value) Boolean {
	switch spec := value.(type) {
	case Boolean:
		return spec
	case Null:
		return false
	case Number:
		return Boolean(spec != 0.0 && !math.IsNaN(float64(spec)))
	case *Object:
		return true
	case String:
		return Boolean(spec != "")
	case Undefined:
		return false
	default:
		panic(fmt.Sprintf("coerceToBoolean: invalid value type: %#v", value))
	}
}

func (vm *VM) coerceToNumber(value Value) (Number, error) {
	switch spec := value.(type) {
	case Null:
		return 0, nil
	case Boolean:
		if spec {
			return 1, nil
		}
		return 0, nil
	case Number:
		return spec, nil
	case *Object:
		prim, err := vm.coerceToPrimitive(value, primCoerceValueOfFirst)
		if err != nil {
			return Number(math.NaN()), err
		}
		return vm.coerceToNumber(prim)
	case String:
		trimmed := strings.TrimSpace(string(spec))
		if trimmed == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return Number(math.NaN()), nil
		}
		return Number(f), nil
	case Undefined:
		return Number(math.NaN()), nil
	default:
		panic(fmt.Sprintf("unexpected minijs.Value: %#v", spec))
	}
}

type primCoerceOrder uint8

const (
	primCoerceValueOfFirst primCoerceOrder = iota
	primCoerceToStringFirst
)

func (vm *VM) coerceToPrimitive(value Value, order primCoerceOrder) (Value, error) {
	obj, isObj := value.(*Object)
	if !isObj {
		return value, nil
	}

	if obj.primitive != nil && order == primCoerceValueOfFirst {
		return obj.primitive, nil
	}

	var callOrder []Name
	switch order {
	case primCoerceValueOfFirst:
		callOrder = []Name{"valueOf", "toString"}
	case primCoerceToStringFirst:
		callOrder = []Name{"toString", "valueOf"}
	}

	for _, methodName := range callOrder {
		methodVal, err := obj.GetProperty(methodName, vm)
		if err != nil {
			return nil, err
		}
		methodObj, isMObj := methodVal.(*Object)
		if !isMObj || methodObj.funcPart == nil {
			continue
		}

		ret, err := methodObj.Invoke(vm, value, nil, CallFlags{})
		if err != nil {
			return nil, err
		}
		switch ret := ret.(type) {
		case *Object, Undefined:
			continue
		default:
			return ret, nil
		}
	}
	return nil, vm.throwKind(FaultTypeFailure, "value can't be converted to a primitive")
}

func (vm *VM) coerceToString(val Value) (String, error) {
	switch val := val.(type) {
	case String:
		return val, nil
	case Undefined:
		return "undefined", nil
	case Null:
		return "null", nil
	case Boolean:
		if val {
			return "true", nil
		}
		return "false", nil
	case Number:
		return String(jsNumberString(float64(val))), nil
	case *Object:
		prim, err := vm.coerceToPrimitive(val, primCoerceToStringFirst)
		if err != nil {
			return "", err
		}
		if _, isObj := prim.(*Object); isObj {
			panic("bug: coerceToPrimitive returned object")
		}
		return vm.coerceToString(prim)
	default:
		panic("bug: invalid type for coerceToString operand: " + reflect.TypeOf(val).String())
	}
}

// jsNumberString renders a float the way evaluated code expects to read it:
// integral values without a decimal point, NaN/Infinity by name.
func jsNumberString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, +1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

func (vm *VM) strictEqual(left, right Value) bool {
	switch leftV := left.(type) {
	case Boolean:
		rightV, isSame := right.(Boolean)
		return isSame && leftV == rightV
	case Number:
		rightV, isSame := right.(Number)
		return isSame && leftV == rightV && !math.IsNaN(float64(leftV))
	case *Object:
		rightV, isSame := right.(*Object)
		return isSame && leftV == rightV
	case String:
		rightV, isSame := right.(String)
		return isSame && leftV == rightV
	case Null:
		_, isSame := right.(Null)
		return isSame
	case Undefined:
		_, isSame := right.(Undefined)
		return isSame
	default:
		panic(fmt.Sprintf("unexpected value for strict equal comparison: %#v", left))
	}
}

func (vm *VM) looseEqual(a, b Value) (bool, error) {
	for counter := 0; counter < 5; counter++ {
		if a.Kind() == b.Kind() || (a.Kind() == KindFunction && b.Kind() == KindObject) ||
			(a.Kind() == KindObject && b.Kind() == KindFunction) {
			return vm.strictEqual(a, b), nil
		}

		_, isAU := a.(Undefined)
		_, isAN := a.(Null)
		_, isBU := b.(Undefined)
		_, isBN := b.(Null)
		if isAU || isAN || isBU || isBN {
			return (isAU || isAN) && (isBU || isBN), nil
		}

		var err error
		if _, isAObj := a.(*Object); isAObj {
			a, err = vm.coerceToPrimitive(a, primCoerceValueOfFirst)
			if err != nil {
				return false, err
			}
			continue
		}
		if _, isBObj := b.(*Object); isBObj {
			b, err = vm.coerceToPrimitive(b, primCoerceValueOfFirst)
			if err != nil {
				return false, err
			}
			continue
		}

		if aBool, isABool := a.(Boolean); isABool {
			a = Number(0)
			if aBool {
				a = Number(1)
			}
			continue
		}
		if bBool, isBBool := b.(Boolean); isBBool {
			b = Number(0)
			if bBool {
				b = Number(1)
			}
			continue
		}

		_, isAStr := a.(String)
		_, isBStr := b.(String)
		_, isANum := a.(Number)
		_, isBNum := b.(Number)
		if isAStr && isBNum {
			a, err = vm.coerceToNumber(a)
			if err != nil {
				return false, err
			}
			continue
		}
		if isANum && isBStr {
			b, err = vm.coerceToNumber(b)
			if err != nil {
				return false, err
			}
			continue
		}

		panic(fmt.Sprintf("unreachable: looseEqual with %s / %s",
			reflect.TypeOf(a), reflect.TypeOf(b)))
	}

	panic("bug: looseEqual iterated too many times")
}

type tribool uint8

const (
	triFalse tribool = iota
	triTrue
	triNeither
)

func bool2tri(b bool) tribool {
	if b {
		return triTrue
	}
	return triFalse
}

func (vm *VM) compareLessThan(a, b Value) (tribool, error) {
	if aStr, isAStr := a.(String); isAStr {
		if bStr, isBStr := b.(String); isBStr {
			return bool2tri(aStr < bStr), nil
		}
	}

	an, err := vm.coerceToNumber(a)
	if err != nil {
		return triNeither, err
	}
	bn, err := vm.coerceToNumber(b)
	if err != nil {
		return triNeither, err
	}

	if math.IsNaN(float64(an)) || math.IsNaN(float64(bn)) {
		return triNeither, nil
	}
	return bool2tri(an < bn), nil
}

func (vm *VM) isLessThan(a, b Value) (bool, error) {
	tri, err := vm.compareLessThan(a, b)
	if err != nil {
		return false, err
	}
	return tri == triTrue, nil
}

func (vm *VM) isNotLessThan(a, b Value) (bool, error) {
	tri, err := vm.compareLessThan(a, b)
	if err != nil {
		return false, err
	}
	// triNeither always yields false, even under negation
	return tri == triFalse, nil
}

func floatRemainder(n, d float64) float64 {
	if math.IsNaN(n) || math.IsNaN(d) || math.IsInf(n, 0) || d == 0 {
		return math.NaN()
	}
	if math.IsInf(d, 0) || n == 0 {
		return n
	}

	q := math.Trunc(n / d)
	r := n - (d * q)
	if r == 0 && math.Signbit(n) {
		return math.Copysign(0, -1)
	}
	return r
}
