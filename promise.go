package minijs

import "fmt"

type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

func (s PromiseState) String() string {
	switch s {
	case PromisePending:
		return "pending"
	case PromiseFulfilled:
		return "fulfilled"
	case PromiseRejected:
		return "rejected"
	}
	return "unknown"
}

// PromiseRecord is the state machine behind a promise object. A record
// settles at most once; every settle transition flushes the registered
// reactions through the microtask queue, never synchronously.
type PromiseRecord struct {
	state     PromiseState
	value     Value // result when fulfilled, reason when rejected
	faultKind FaultKind

	reactions []*reaction
	handled   bool
	object    *Object
}

// reaction is one registered continuation. Either a pair of evaluated-code
// handlers feeding a derived promise, or a Go-side handler (used by the
// combinators), never both.
type reaction struct {
	onFulfilled *Object
	onRejected  *Object
	derived     *PromiseRecord

	goHandler func(vm *VM, state PromiseState, value Value) error
}

func (rec *PromiseRecord) State() PromiseState { return rec.state }
func (rec *PromiseRecord) Value() Value        { return rec.value }

func (vm *VM) newPromise() (*Object, *PromiseRecord) {
	obj := NewObject(ProtoPromise)
	rec := &PromiseRecord{value: Undefined{}, object: obj}
	obj.promisePart = rec
	return obj, rec
}

// resolve settles the record with value, adopting the state of a thenable
// instead of fulfilling with it directly.
func (rec *PromiseRecord) resolve(vm *VM, value Value) error {
	if rec.state != PromisePending {
		return nil
	}

	if obj, isObj := value.(*Object); isObj {
		if obj.promisePart == rec {
			return rec.reject(vm, vm.newErrorValue("TypeError", "chaining cycle detected"), FaultTypeFailure)
		}
		if inner := obj.promisePart; inner != nil {
			inner.registerGo(vm, func(vm *VM, state PromiseState, v Value) error {
				if state == PromiseFulfilled {
					return rec.fulfill(vm, v)
				}
				return rec.reject(vm, v, inner.faultKind)
			})
			return nil
		}

		thenVal, err := obj.GetProperty(NameStr("then"), vm)
		if err != nil {
			return err
		}
		if thenObj, isFn := thenVal.(*Object); isFn && thenObj.funcPart != nil {
			return rec.adoptThenable(vm, obj, thenObj)
		}
	}

	return rec.fulfill(vm, value)
}

// adoptThenable defers to the foreign then() on a microtask, passing it the
// pair of settle callbacks. Whichever is called first wins.
func (rec *PromiseRecord) adoptThenable(vm *VM, thenable *Object, thenFn *Object) error {
	settled := false
	resolveFn := NewNativeFunction("", []Name{"value"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			if settled {
				return Undefined{}, nil
			}
			settled = true
			return Undefined{}, rec.resolve(vm, argOr(args, 0))
		})
	rejectFn := NewNativeFunction("", []Name{"reason"},
		func(vm *VM, this Value, args []Value, flags CallFlags) (Value, error) {
			if settled {
				return Undefined{}, nil
			}
			settled = true
			return Undefined{}, rec.reject(vm, argOr(args, 0), FaultUserThrown)
		})

	vm.loop.EnqueueMicrotask(func() error {
		_, err := thenFn.Invoke(vm, thenable, []Value{resolveFn, rejectFn}, CallFlags{})
		if exc, isExc := err.(*Exception); isExc {
			if settled {
				return nil
			}
			settled = true
			return rec.reject(vm, exc.Value, exc.Kind)
		}
		return err
	})
	return nil
}

func (rec *PromiseRecord) fulfill(vm *VM, value Value) error {
	if rec.state != PromisePending {
		return nil
	}
	rec.state = PromiseFulfilled
	rec.value = value
	rec.flush(vm)
	return nil
}

func (rec *PromiseRecord) reject(vm *VM, reason Value, kind FaultKind) error {
	if rec.state != PromisePending {
		return nil
	}
	rec.state = PromiseRejected
	rec.value = reason
	rec.faultKind = kind
	vm.loop.trackRejection(rec)
	rec.flush(vm)
	return nil
}

// flush schedules every pending reaction; reactions registered after
// settlement are scheduled individually by Register.
func (rec *PromiseRecord) flush(vm *VM) {
	reactions := rec.reactions
	rec.reactions = nil
	for _, re := range reactions {
		rec.schedule(vm, re)
	}
}

func (rec *PromiseRecord) schedule(vm *VM, re *reaction) {
	state, value := rec.state, rec.value
	vm.loop.EnqueueMicrotask(func() error {
		return rec.runReaction(vm, re, state, value)
	})
}

// Register attaches then-style handlers and returns the derived promise
// object. Handlers never run synchronously, even on an already settled
// promise.
func (rec *PromiseRecord) Register(vm *VM, onFulfilled, onRejected *Object) *Object {
	derivedObj, derivedRec := vm.newPromise()
	re := &reaction{
		onFulfilled: onFulfilled,
		onRejected:  onRejected,
		derived:     derivedRec,
	}

	// responsibility for the outcome moves to the derived promise
	rec.handled = true

	if rec.state == PromisePending {
		rec.reactions = append(rec.reactions, re)
	} else {
		rec.schedule(vm, re)
	}
	return derivedObj
}

// registerGo attaches a Go-side continuation (no derived promise).
func (rec *PromiseRecord) registerGo(vm *VM, handler func(vm *VM, state PromiseState, value Value) error) {
	rec.handled = true
	re := &reaction{goHandler: handler}
	if rec.state == PromisePending {
		rec.reactions = append(rec.reactions, re)
	} else {
		rec.schedule(vm, re)
	}
}

func (rec *PromiseRecord) runReaction(vm *VM, re *reaction, state PromiseState, value Value) error {
	if re.goHandler != nil {
		return re.goHandler(vm, state, value)
	}

	handler := re.onFulfilled
	if state == PromiseRejected {
		handler = re.onRejected
	}

	if handler == nil {
		// no handler for this side: the outcome passes through
		if state == PromiseFulfilled {
			return re.derived.resolve(vm, value)
		}
		return re.derived.reject(vm, value, rec.faultKind)
	}

	ret, err := handler.Invoke(vm, Undefined{}, []Value{value}, CallFlags{})
	if err != nil {
		if exc, isExc := err.(*Exception); isExc {
			return re.derived.reject(vm, exc.Value, exc.Kind)
		}
		return err
	}
	return re.derived.resolve(vm, ret)
}

func argOr(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined{}
}

// PromiseResolve returns its argument unchanged when it is already a
// promise; anything else becomes a promise resolved with it.
func (vm *VM) PromiseResolve(value Value) (*Object, error) {
	if obj, isObj := value.(*Object); isObj && obj.promisePart != nil {
		return obj, nil
	}
	promObj, rec := vm.newPromise()
	return promObj, rec.resolve(vm, value)
}

func (vm *VM) PromiseReject(reason Value) (*Object, error) {
	promObj, rec := vm.newPromise()
	return promObj, rec.reject(vm, reason, FaultUserThrown)
}

// PromiseAll fulfills with the results in input order once every input has
// fulfilled; the first rejection rejects the whole combination.
func (vm *VM) PromiseAll(items []Value) (*Object, error) {
	promObj, rec := vm.newPromise()

	if len(items) == 0 {
		return promObj, rec.fulfill(vm, NewArray())
	}

	results := make([]Value, len(items))
	remaining := len(items)

	for i, item := range items {
		i := i
		inner, err := vm.PromiseResolve(item)
		if err != nil {
			return nil, err
		}
		inner.promisePart.registerGo(vm, func(vm *VM, state PromiseState, v Value) error {
			if state == PromiseRejected {
				return rec.reject(vm, v, inner.promisePart.faultKind)
			}
			results[i] = v
			remaining--
			if remaining == 0 {
				return rec.fulfill(vm, NewArray(results...))
			}
			return nil
		})
	}
	return promObj, nil
}

// PromiseRace settles like whichever input settles first.
func (vm *VM) PromiseRace(items []Value) (*Object, error) {
	promObj, rec := vm.newPromise()

	for _, item := range items {
		inner, err := vm.PromiseResolve(item)
		if err != nil {
			return nil, err
		}
		inner.promisePart.registerGo(vm, func(vm *VM, state PromiseState, v Value) error {
			if state == PromiseFulfilled {
				return rec.fulfill(vm, v)
			}
			return rec.reject(vm, v, inner.promisePart.faultKind)
		})
	}
	return promObj, nil
}

// PromiseAny fulfills with the first fulfillment; when every input rejects
// it rejects with an aggregate carrying all the reasons in input order.
func (vm *VM) PromiseAny(items []Value) (*Object, error) {
	promObj, rec := vm.newPromise()

	if len(items) == 0 {
		return promObj, rec.reject(vm, vm.newAggregateError(nil), FaultAggregateFailure)
	}

	reasons := make([]Value, len(items))
	remaining := len(items)

	for i, item := range items {
		i := i
		inner, err := vm.PromiseResolve(item)
		if err != nil {
			return nil, err
		}
		inner.promisePart.registerGo(vm, func(vm *VM, state PromiseState, v Value) error {
			if state == PromiseFulfilled {
				return rec.fulfill(vm, v)
			}
			reasons[i] = v
			remaining--
			if remaining == 0 {
				return rec.reject(vm, vm.newAggregateError(reasons), FaultAggregateFailure)
			}
			return nil
		})
	}
	return promObj, nil
}

// PromiseAllSettled always fulfills, with one status descriptor per input.
func (vm *VM) PromiseAllSettled(items []Value) (*Object, error) {
	promObj, rec := vm.newPromise()

	if len(items) == 0 {
		return promObj, rec.fulfill(vm, NewArray())
	}

	results := make([]Value, len(items))
	remaining := len(items)

	for i, item := range items {
		i := i
		inner, err := vm.PromiseResolve(item)
		if err != nil {
			return nil, err
		}
		inner.promisePart.registerGo(vm, func(vm *VM, state PromiseState, v Value) error {
			desc := NewObject(ProtoObject)
			if state == PromiseFulfilled {
				if err := desc.SetProperty(NameStr("status"), String("fulfilled"), vm); err != nil {
					return err
				}
				if err := desc.SetProperty(NameStr("value"), v, vm); err != nil {
					return err
				}
			} else {
				if err := desc.SetProperty(NameStr("status"), String("rejected"), vm); err != nil {
					return err
				}
				if err := desc.SetProperty(NameStr("reason"), v, vm); err != nil {
					return err
				}
			}
			results[i] = desc
			remaining--
			if remaining == 0 {
				return rec.fulfill(vm, NewArray(results...))
			}
			return nil
		})
	}
	return promObj, nil
}

// promiseFinally runs the callback on either outcome, passing the original
// settlement through, except that a throw from the callback wins.
func (vm *VM) promiseFinally(rec *PromiseRecord, callback *Object) *Object {
	derivedObj, derivedRec := vm.newPromise()
	rec.registerGo(vm, func(vm *VM, state PromiseState, v Value) error {
		ret, err := callback.Invoke(vm, Undefined{}, nil, CallFlags{})
		if err != nil {
			if exc, isExc := err.(*Exception); isExc {
				return derivedRec.reject(vm, exc.Value, exc.Kind)
			}
			return err
		}

		// a thenable returned by the callback delays the pass-through
		if retObj, isObj := ret.(*Object); isObj && retObj.promisePart != nil {
			retObj.promisePart.registerGo(vm, func(vm *VM, cbState PromiseState, cbValue Value) error {
				if cbState == PromiseRejected {
					return derivedRec.reject(vm, cbValue, retObj.promisePart.faultKind)
				}
				return passThrough(vm, derivedRec, rec, state, v)
			})
			return nil
		}
		return passThrough(vm, derivedRec, rec, state, v)
	})
	return derivedObj
}

func passThrough(vm *VM, derived *PromiseRecord, source *PromiseRecord, state PromiseState, v Value) error {
	if state == PromiseFulfilled {
		return derived.resolve(vm, v)
	}
	return derived.reject(vm, v, source.faultKind)
}

func (vm *VM) newAggregateError(reasons []Value) *Object {
	exc := vm.newErrorValue("AggregateError",
		fmt.Sprintf("all %d promises were rejected", len(reasons)))
	if err := exc.SetProperty(NameStr("errors"), NewArray(reasons...), vm); err != nil {
		panic("SetProperty must not fail here")
	}
	return exc
}
