package minijs

import (
	"fmt"
	"math"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

func (vm *VM) runStmts(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		err := vm.runStmt(stmt)
		if err != nil {
			return err
		}
	}
	return nil
}

func hasUseStrict(body []ast.Statement) bool {
	if len(body) == 0 {
		return false
	}

	es, isES := body[0].(*ast.ExpressionStatement)
	if !isES {
		return false
	}

	lit, isLiteral := es.Expression.(*ast.StringLiteral)
	if !isLiteral {
		return false
	}

	return lit.Value == "use strict"
}

// withScope runs action with a fresh block scope pushed on the lexical chain.
func (vm *VM) withScope(action func()) {
	inner := newScope(newDirectEnv())
	inner.parent = vm.curScope
	vm.curScope = inner
	defer func() { vm.curScope = inner.parent }()
	action()
}

func (vm *VM) runStmt(stmt ast.Statement) (err error) {
	if stmt == nil {
		return nil
	}

	vm.synCtx.Push(stmt)
	defer vm.synCtx.Pop(stmt)

	switch stmt := stmt.(type) {
	case *ast.EmptyStatement:
		return nil

	case *ast.BlockStatement:
		vm.withScope(func() {
			if err = vm.hoistBlockScope(vm.curScope, stmt.List); err == nil {
				err = vm.runStmts(stmt.List)
			}
		})
		return

	case *ast.ExpressionStatement:
		_, err = vm.evalExpr(stmt.Expression)
		return

	case *ast.VariableStatement:
		return vm.runVarBindings(stmt.List)

	case *ast.LexicalDeclaration:
		for _, binding := range stmt.List {
			var name Name
			name, err = vm.bindingName(binding.Target)
			if err != nil {
				return
			}

			var value Value = Undefined{}
			if binding.Initializer != nil {
				value, err = vm.evalExpr(binding.Initializer)
				if err != nil {
					return
				}
			} else if stmt.Token == token.CONST {
				return vm.throwKind(FaultSyntaxFailure,
					fmt.Sprintf("missing initializer in const declaration of %s", name))
			}
			vm.curScope.initializeLexical(name, value)
		}
		return nil

	case *ast.FunctionDeclaration:
		// already materialized by the hoisting pass
		return nil

	case *ast.ClassDeclaration:
		classObj, err := vm.evalClassLiteral(stmt.Class)
		if err != nil {
			return err
		}
		vm.curScope.initializeLexical(Name(stmt.Class.Name.Name), classObj)
		return nil

	case *ast.IfStatement:
		testVal, err := vm.evalExpr(stmt.Test)
		if err != nil {
			return err
		}
		if vm.coerceToBoolean(testVal) {
			return vm.runStmt(stmt.Consequent)
		}
		return vm.runStmt(stmt.Alternate)

	case *ast.WhileStatement:
		for {
			testVal, err := vm.evalExpr(stmt.Test)
			if err != nil {
				return err
			}
			if !vm.coerceToBoolean(testVal) {
				return nil
			}
			if err := vm.runStmt(stmt.Body); err != nil {
				if done, err := loopSignal(err); done {
					return err
				}
			}
		}

	case *ast.DoWhileStatement:
		for {
			if err := vm.runStmt(stmt.Body); err != nil {
				if done, err := loopSignal(err); done {
					return err
				}
			}
			testVal, err := vm.evalExpr(stmt.Test)
			if err != nil {
				return err
			}
			if !vm.coerceToBoolean(testVal) {
				return nil
			}
		}

	case *ast.ForStatement:
		vm.withScope(func() {
			err = vm.runForStmt(stmt)
		})
		return

	case *ast.SwitchStatement:
		vm.withScope(func() {
			err = vm.runSwitchStmt(stmt)
		})
		return

	case *ast.ReturnStatement:
		var retVal Value = Undefined{}
		if stmt.Argument != nil {
			retVal, err = vm.evalExpr(stmt.Argument)
		}
		if err == nil {
			err = ReturnValue{retVal}
		}
		return err

	case *ast.ThrowStatement:
		exc, err := vm.evalExpr(stmt.Argument)
		if err == nil {
			err = vm.makeException(exc)
		}
		return err

	case *ast.TryStatement:
		return vm.runTryStmt(stmt)

	case *ast.BranchStatement:
		if stmt.Label != nil {
			return vm.throwKind(FaultSyntaxFailure, "labelled break/continue is not supported")
		}
		switch stmt.Token {
		case token.BREAK:
			return BreakSignal{}
		case token.CONTINUE:
			return ContinueSignal{}
		default:
			return vm.throwKind(FaultSyntaxFailure, "unsupported branch statement: "+stmt.Token.String())
		}

	case *ast.LabelledStatement:
		return vm.runStmt(stmt.Statement)

	case *ast.DebuggerStatement:
		return nil

	default:
		return vm.throwKind(FaultSyntaxFailure, fmt.Sprintf("unsupported statement node: %T", stmt))
	}
}

// loopSignal decides whether an error coming out of a loop body terminates
// the loop. Break terminates quietly; continue moves to the next iteration.
func loopSignal(err error) (done bool, out error) {
	switch err.(type) {
	case BreakSignal:
		return true, nil
	case ContinueSignal:
		return false, nil
	default:
		return true, err
	}
}

func (vm *VM) runVarBindings(list []*ast.Binding) error {
	for _, binding := range list {
		if binding.Initializer == nil {
			// the hoisting pass already gave the name a slot
			continue
		}
		name, err := vm.bindingName(binding.Target)
		if err != nil {
			return err
		}
		value, err := vm.evalExpr(binding.Initializer)
		if err != nil {
			return err
		}
		if err := vm.curScope.set(name, value, vm); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) runForStmt(stmt *ast.ForStatement) error {
	switch init := stmt.Initializer.(type) {
	case nil:
		// no initializer
	case *ast.ForLoopInitializerExpression:
		if _, err := vm.evalExpr(init.Expression); err != nil {
			return err
		}
	case *ast.ForLoopInitializerVarDeclList:
		if err := vm.runVarBindings(init.List); err != nil {
			return err
		}
	case *ast.ForLoopInitializerLexicalDecl:
		decl := init.LexicalDeclaration
		if err := vm.hoistOwnLevel(vm.curScope, &decl); err != nil {
			return err
		}
		if err := vm.runStmt(&decl); err != nil {
			return err
		}
	default:
		return vm.throwKind(FaultSyntaxFailure, fmt.Sprintf("unsupported for-loop initializer: %T", init))
	}

	for {
		if stmt.Test != nil {
			testVal, err := vm.evalExpr(stmt.Test)
			if err != nil {
				return err
			}
			if !vm.coerceToBoolean(testVal) {
				return nil
			}
		}

		if err := vm.runStmt(stmt.Body); err != nil {
			if done, err := loopSignal(err); done {
				return err
			}
		}

		if stmt.Update != nil {
			if _, err := vm.evalExpr(stmt.Update); err != nil {
				return err
			}
		}
	}
}

func (vm *VM) runSwitchStmt(stmt *ast.SwitchStatement) error {
	disc, err := vm.evalExpr(stmt.Discriminant)
	if err != nil {
		return err
	}

	// the whole switch body is a single block scope
	for _, clause := range stmt.Body {
		if err := vm.hoistBlockScope(vm.curScope, clause.Consequent); err != nil {
			return err
		}
	}

	match := -1
	for i, clause := range stmt.Body {
		if clause.Test == nil {
			continue
		}
		testVal, err := vm.evalExpr(clause.Test)
		if err != nil {
			return err
		}
		if vm.strictEqual(disc, testVal) {
			match = i
			break
		}
	}
	if match == -1 {
		if stmt.Default == -1 {
			return nil
		}
		match = stmt.Default
	}

	// fall through until a break or the end of the body
	for _, clause := range stmt.Body[match:] {
		if err := vm.runStmts(clause.Consequent); err != nil {
			if _, isBreak := err.(BreakSignal); isBreak {
				return nil
			}
			return err
		}
	}
	return nil
}

func (vm *VM) runTryStmt(stmt *ast.TryStatement) (err error) {
	err = vm.runStmt(stmt.Body)

	if exc, isExc := err.(*Exception); isExc && stmt.Catch != nil {
		vm.withScope(func() {
			if stmt.Catch.Parameter != nil {
				var param Name
				param, err = vm.bindingName(stmt.Catch.Parameter)
				if err != nil {
					return
				}
				if err = vm.curScope.declare(DeclLet, param, Undefined{}); err != nil {
					return
				}
				vm.curScope.initializeLexical(param, exc.Value)
				vm.curScope.doNotDelete[param] = struct{}{}
			}
			err = vm.runStmt(stmt.Catch.Body)
		})
	}

	if stmt.Finally != nil {
		// a throw or return from the finalizer overrides the body's outcome
		if finErr := vm.runStmt(stmt.Finally); finErr != nil {
			return finErr
		}
	}
	return err
}

// defineFunctionIn builds the closure for a function literal, capturing the
// given scope. Used for both declarations (at hoist time) and expressions.
func (vm *VM) defineFunctionIn(scope *Scope, literal *ast.FunctionLiteral) (*Object, error) {
	fn, err := vm.makeFunction(scope, literal.ParameterList, literal.Body, funcFlags{})
	if err != nil {
		return nil, err
	}

	proto := NewObject(ProtoObject)
	if err := proto.SetProperty(NameStr("constructor"), fn, vm); err != nil {
		return nil, err
	}
	fn.DefineProperty(NameStr("prototype"), Descriptor{value: proto})

	if literal.Name != nil {
		nameStr := string(literal.Name.Name)
		fn.funcPart.name = Name(nameStr)
		if err := fn.SetProperty(NameStr("name"), String(nameStr), vm); err != nil {
			return nil, err
		}
	}
	return fn, nil
}

type funcFlags struct {
	isArrow     bool
	isClassCtor bool
	forceStrict bool
}

func (vm *VM) makeFunction(scope *Scope, params *ast.ParameterList, body ast.Node, opts funcFlags) (*Object, error) {
	var paramNames []Name
	if params != nil {
		if params.Rest != nil {
			return nil, vm.throwKind(FaultSyntaxFailure, "rest parameters are not supported")
		}
		paramNames = make([]Name, len(params.List))
		for i, binding := range params.List {
			if binding.Initializer != nil {
				return nil, vm.throwKind(FaultSyntaxFailure, "default parameter values are not supported")
			}
			name, err := vm.bindingName(binding.Target)
			if err != nil {
				return nil, err
			}
			paramNames[i] = name
		}
	}

	strict := opts.forceStrict || isStrict(scope)
	if block, isBlock := body.(*ast.BlockStatement); isBlock && hasUseStrict(block.List) {
		strict = true
	}

	fn := NewObject(ProtoFunction)
	fn.funcPart = &FunctionPart{
		isStrict:     strict,
		isArrow:      opts.isArrow,
		isClassCtor:  opts.isClassCtor,
		params:       paramNames,
		body:         body,
		lexicalScope: scope,
	}
	return fn, nil
}

func (vm *VM) makeArrow(literal *ast.ArrowFunctionLiteral) (*Object, error) {
	return vm.makeFunction(vm.curScope, literal.ParameterList, literal.Body, funcFlags{isArrow: true})
}

func (vm *VM) lookupName(name Name) (Value, error) {
	value, status := vm.curScope.lookup(name)
	switch status {
	case lookupFound:
		return value, nil
	case lookupUninitialized:
		return nil, vm.throwKind(FaultUninitializedAccess,
			fmt.Sprintf("cannot access '%s' before initialization", name))
	default:
		return nil, vm.throwKind(FaultReferenceNotFound, fmt.Sprintf("%s is not defined", name))
	}
}

func (vm *VM) evalExpr(expr ast.Expression) (value Value, err error) {
	vm.synCtx.Push(expr)
	defer vm.synCtx.Pop(expr)

	switch expr := expr.(type) {
	case *ast.Identifier:
		// "undefined" resolves directly, without a scope lookup
		if expr.Name == "undefined" {
			return Undefined{}, nil
		}
		return vm.lookupName(Name(expr.Name))

	case *ast.BooleanLiteral:
		return Boolean(expr.Value), nil
	case *ast.NullLiteral:
		return Null{}, nil
	case *ast.NumberLiteral:
		switch spec := expr.Value.(type) {
		case float64:
			return Number(spec), nil
		case int64:
			return Number(spec), nil
		default:
			panic(fmt.Sprintf("invalid number literal value: %#v", expr.Value))
		}
	case *ast.StringLiteral:
		return String(expr.Value), nil

	case *ast.TemplateLiteral:
		return vm.evalTemplate(expr)

	case *ast.ThisExpression:
		return thisOfScope(vm, vm.curScope), nil

	case *ast.AssignExpression:
		return vm.evalAssign(expr)

	case *ast.FunctionLiteral:
		return vm.defineFunctionIn(vm.curScope, expr)

	case *ast.ArrowFunctionLiteral:
		return vm.makeArrow(expr)

	case *ast.ClassLiteral:
		return vm.evalClassLiteral(expr)

	case *ast.ObjectLiteral:
		return vm.evalObjectLiteral(expr)

	case *ast.ArrayLiteral:
		arr := NewArray()
		for _, itemExpr := range expr.Value {
			value, err = vm.evalExpr(itemExpr)
			if err != nil {
				return nil, err
			}
			arr.arrayPart = append(arr.arrayPart, value)
		}
		return arr, nil

	case *ast.BinaryExpression:
		return vm.evalBinary(expr)

	case *ast.UnaryExpression:
		return vm.evalUnary(expr)

	case *ast.ConditionalExpression:
		test, err := vm.evalExpr(expr.Test)
		if err != nil {
			return nil, err
		}
		if vm.coerceToBoolean(test) {
			return vm.evalExpr(expr.Consequent)
		}
		return vm.evalExpr(expr.Alternate)

	case *ast.DotExpression:
		if _, isSuper := expr.Left.(*ast.SuperExpression); isSuper {
			return nil, vm.throwKind(FaultSyntaxFailure, "super property access is not supported")
		}
		left, err := vm.evalExpr(expr.Left)
		if err != nil {
			return nil, err
		}
		obj, err := vm.coerceToObject(left)
		if err != nil {
			return nil, err
		}
		return obj.GetProperty(Name(expr.Identifier.Name), vm)

	case *ast.BracketExpression:
		left, err := vm.evalExpr(expr.Left)
		if err != nil {
			return nil, err
		}
		leftObj, err := vm.coerceToObject(left)
		if err != nil {
			return nil, err
		}
		member, err := vm.evalExpr(expr.Member)
		if err != nil {
			return nil, err
		}

		if num, isNum := member.(Number); isNum && leftObj.arrayPart != nil {
			return leftObj.GetIndex(int(num))
		}
		key, err := vm.coerceToString(member)
		if err != nil {
			return nil, err
		}
		return leftObj.GetProperty(Name(key), vm)

	case *ast.CallExpression:
		return vm.evalCall(expr)

	case *ast.NewExpression:
		cons, err := vm.evalExpr(expr.Callee)
		if err != nil {
			return nil, err
		}
		consObj, err := vm.coerceToObject(cons)
		if err != nil {
			return nil, err
		}
		args, err := vm.evalArgs(expr.ArgumentList)
		if err != nil {
			return nil, err
		}
		return vm.DoNew(consObj, args)

	case *ast.SequenceExpression:
		for _, item := range expr.Sequence {
			value, err = vm.evalExpr(item)
			if err != nil {
				break
			}
		}
		return

	default:
		// includes *ast.BadExpression, regexps, spreads
		return nil, vm.throwKind(FaultSyntaxFailure, fmt.Sprintf("unsupported expression node: %T", expr))
	}
}

func (vm *VM) evalArgs(argExprs []ast.Expression) ([]Value, error) {
	args := make([]Value, len(argExprs))
	for i, argExpr := range argExprs {
		var err error
		args[i], err = vm.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
	}
	return args, nil
}

// evalCall resolves the callee and the call's this. The receiver of a method
// call becomes this; a plain call gets undefined (the callee's own mode then
// decides what to substitute); super(...) re-enters the parent constructor
// on the current frame's this.
func (vm *VM) evalCall(expr *ast.CallExpression) (Value, error) {
	if _, isSuper := expr.Callee.(*ast.SuperExpression); isSuper {
		return vm.evalSuperCall(expr)
	}

	var calleeObj *Object
	var subject Value = Undefined{}

	switch callee := expr.Callee.(type) {
	case *ast.DotExpression:
		if _, isSuper := callee.Left.(*ast.SuperExpression); isSuper {
			return nil, vm.throwKind(FaultSyntaxFailure, "super method calls are not supported")
		}
		left, err := vm.evalExpr(callee.Left)
		if err != nil {
			return nil, err
		}
		subjectObj, err := vm.coerceToObject(left)
		if err != nil {
			return nil, err
		}
		subject = subjectObj

		method, err := subjectObj.GetProperty(Name(callee.Identifier.Name), vm)
		if err != nil {
			return nil, err
		}
		calleeObj, err = vm.requireCallable(method, string(callee.Identifier.Name))
		if err != nil {
			return nil, err
		}

	case *ast.BracketExpression:
		left, err := vm.evalExpr(callee.Left)
		if err != nil {
			return nil, err
		}
		subjectObj, err := vm.coerceToObject(left)
		if err != nil {
			return nil, err
		}
		subject = subjectObj

		memberVal, err := vm.evalExpr(callee.Member)
		if err != nil {
			return nil, err
		}
		memberKey, err := vm.coerceToString(memberVal)
		if err != nil {
			return nil, err
		}
		method, err := subjectObj.GetProperty(Name(memberKey), vm)
		if err != nil {
			return nil, err
		}
		calleeObj, err = vm.requireCallable(method, string(memberKey))
		if err != nil {
			return nil, err
		}

	default:
		calleeVal, err := vm.evalExpr(expr.Callee)
		if err != nil {
			return nil, err
		}
		calleeObj, err = vm.requireCallable(calleeVal, describeCallee(expr.Callee))
		if err != nil {
			return nil, err
		}
	}

	args, err := vm.evalArgs(expr.ArgumentList)
	if err != nil {
		return nil, err
	}
	return calleeObj.Invoke(vm, subject, args, CallFlags{})
}

func (vm *VM) evalSuperCall(expr *ast.CallExpression) (Value, error) {
	frame := vm.stack.Current()
	if frame == nil || frame.Callee == nil || frame.Callee.funcPart == nil ||
		frame.Callee.funcPart.superCtor == nil {
		return nil, vm.throwKind(FaultSyntaxFailure, "'super' keyword unexpected here")
	}

	args, err := vm.evalArgs(expr.ArgumentList)
	if err != nil {
		return nil, err
	}
	_, err = frame.Callee.funcPart.superCtor.Invoke(vm, frame.This, args, CallFlags{IsNew: true})
	return Undefined{}, err
}

func (vm *VM) requireCallable(v Value, what string) (*Object, error) {
	obj, isObj := v.(*Object)
	if !isObj || obj.funcPart == nil {
		return nil, vm.throwKind(FaultTypeFailure, fmt.Sprintf("%s is not a function", what))
	}
	return obj, nil
}

func describeCallee(expr ast.Expression) string {
	if ident, isIdent := expr.(*ast.Identifier); isIdent {
		return string(ident.Name)
	}
	return "expression"
}

// DoNew constructs an instance: a fresh object whose prototype is the
// constructor's "prototype" property, passed as this; an object returned
// explicitly from the constructor replaces it.
func (vm *VM) DoNew(cons *Object, args []Value) (*Object, error) {
	if cons.funcPart == nil {
		return nil, vm.throwKind(FaultTypeFailure, "constructor is not a function")
	}

	protoVal, err := cons.GetProperty(NameStr("prototype"), vm)
	if err != nil {
		return nil, err
	}
	proto, isObj := protoVal.(*Object)
	if !isObj {
		proto = ProtoObject
	}

	initObj := NewObject(proto)
	ret, err := cons.Invoke(vm, initObj, args, CallFlags{IsNew: true})
	if err != nil {
		return nil, err
	}
	if retObj, isObj := ret.(*Object); isObj {
		return retObj, nil
	}
	return initObj, nil
}

func (vm *VM) evalAssign(expr *ast.AssignExpression) (Value, error) {
	switch expr.Operator {
	case token.ASSIGN:
		value, err := vm.evalExpr(expr.Right)
		if err != nil {
			return nil, err
		}
		return value, vm.doAssignment(expr.Left, value)

	default:
		// compound assignment: the parser stores the bare operator
		prev, err := vm.evalExpr(expr.Left)
		if err != nil {
			return nil, err
		}
		right, err := vm.evalExpr(expr.Right)
		if err != nil {
			return nil, err
		}
		var value Value
		if expr.Operator == token.PLUS {
			value, err = addition(vm, prev, right)
		} else {
			value, err = arithmeticOp(vm, prev, right, expr.Operator)
		}
		if err != nil {
			return nil, err
		}
		return value, vm.doAssignment(expr.Left, value)
	}
}

func (vm *VM) doAssignment(target ast.Expression, value Value) error {
	switch target := target.(type) {
	case *ast.Identifier:
		return vm.curScope.set(Name(target.Name), value, vm)

	case *ast.DotExpression:
		objValue, err := vm.evalExpr(target.Left)
		if err != nil {
			return err
		}
		obj, err := vm.coerceToObject(objValue)
		if err != nil {
			return err
		}
		return obj.SetProperty(Name(target.Identifier.Name), value, vm)

	case *ast.BracketExpression:
		objValue, err := vm.evalExpr(target.Left)
		if err != nil {
			return err
		}
		obj, err := vm.coerceToObject(objValue)
		if err != nil {
			return err
		}
		propertyVal, err := vm.evalExpr(target.Member)
		if err != nil {
			return err
		}

		if num, isNum := propertyVal.(Number); isNum && obj.arrayPart != nil {
			obj.SetIndex(int(num), value)
			return nil
		}
		key, err := vm.coerceToString(propertyVal)
		if err != nil {
			return err
		}
		return obj.SetProperty(Name(key), value, vm)

	default:
		return vm.throwKind(FaultSyntaxFailure, fmt.Sprintf("invalid assignment target: %T", target))
	}
}

func (vm *VM) evalObjectLiteral(expr *ast.ObjectLiteral) (Value, error) {
	obj := NewObject(ProtoObject)
	for _, prop := range expr.Value {
		switch prop := prop.(type) {
		case *ast.PropertyKeyed:
			key, err := vm.propertyKey(prop.Key, prop.Computed)
			if err != nil {
				return nil, err
			}
			propValue, err := vm.evalExpr(prop.Value)
			if err != nil {
				return nil, err
			}

			switch prop.Kind {
			case ast.PropertyKindValue, ast.PropertyKindMethod:
				if err := obj.SetProperty(key, propValue, vm); err != nil {
					return nil, err
				}

			case ast.PropertyKindGet, ast.PropertyKindSet:
				propObj, isObj := propValue.(*Object)
				if !isObj || propObj.funcPart == nil {
					return nil, vm.throwKind(FaultTypeFailure, "object literal accessor must be a function")
				}
				ds := obj.getOrDefineProperty(key)
				if prop.Kind == ast.PropertyKindGet {
					ds.get = propObj
				} else {
					ds.set = propObj
				}

			default:
				return nil, vm.throwKind(FaultSyntaxFailure,
					fmt.Sprintf("unsupported object literal member kind: %s", prop.Kind))
			}

		case *ast.PropertyShort:
			propValue, err := vm.lookupName(Name(prop.Name.Name))
			if err != nil {
				return nil, err
			}
			if err := obj.SetProperty(Name(prop.Name.Name), propValue, vm); err != nil {
				return nil, err
			}

		default:
			return nil, vm.throwKind(FaultSyntaxFailure, fmt.Sprintf("unsupported object literal member: %T", prop))
		}
	}
	return obj, nil
}

func (vm *VM) propertyKey(keyExpr ast.Expression, computed bool) (Name, error) {
	if computed {
		keyVal, err := vm.evalExpr(keyExpr)
		if err != nil {
			return "", err
		}
		keyStr, err := vm.coerceToString(keyVal)
		if err != nil {
			return "", err
		}
		return Name(keyStr), nil
	}

	switch key := keyExpr.(type) {
	case *ast.Identifier:
		return Name(key.Name), nil
	case *ast.StringLiteral:
		return Name(key.Value), nil
	case *ast.NumberLiteral:
		switch num := key.Value.(type) {
		case float64:
			return Name(jsNumberString(num)), nil
		case int64:
			return Name(jsNumberString(float64(num))), nil
		}
	}
	return "", vm.throwKind(FaultSyntaxFailure, fmt.Sprintf("unsupported property key: %T", keyExpr))
}

func (vm *VM) evalTemplate(expr *ast.TemplateLiteral) (Value, error) {
	if expr.Tag != nil {
		return nil, vm.throwKind(FaultSyntaxFailure, "tagged templates are not supported")
	}

	var out String
	for i, elem := range expr.Elements {
		out += String(elem.Parsed)
		if i < len(expr.Expressions) {
			part, err := vm.evalExpr(expr.Expressions[i])
			if err != nil {
				return nil, err
			}
			partStr, err := vm.coerceToString(part)
			if err != nil {
				return nil, err
			}
			out += partStr
		}
	}
	return out, nil
}

func (vm *VM) evalBinary(expr *ast.BinaryExpression) (Value, error) {
	// short-circuiting forms evaluate the right side conditionally
	switch expr.Operator {
	case token.LOGICAL_OR:
		a, err := vm.evalExpr(expr.Left)
		if err != nil {
			return nil, err
		}
		if vm.coerceToBoolean(a) {
			return a, nil
		}
		return vm.evalExpr(expr.Right)

	case token.LOGICAL_AND:
		a, err := vm.evalExpr(expr.Left)
		if err != nil {
			return nil, err
		}
		if !vm.coerceToBoolean(a) {
			return a, nil
		}
		return vm.evalExpr(expr.Right)

	case token.COALESCE:
		a, err := vm.evalExpr(expr.Left)
		if err != nil {
			return nil, err
		}
		if !isNullish(a) {
			return a, nil
		}
		return vm.evalExpr(expr.Right)
	}

	left, err := vm.evalExpr(expr.Left)
	if err != nil {
		return nil, err
	}
	right, err := vm.evalExpr(expr.Right)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	case token.STRICT_EQUAL:
		return Boolean(vm.strictEqual(left, right)), nil
	case token.STRICT_NOT_EQUAL:
		return Boolean(!vm.strictEqual(left, right)), nil

	case token.EQUAL:
		bval, err := vm.looseEqual(left, right)
		return Boolean(bval), err
	case token.NOT_EQUAL:
		bval, err := vm.looseEqual(left, right)
		return Boolean(!bval), err

	case token.PLUS:
		return addition(vm, left, right)

	case token.MINUS, token.MULTIPLY, token.SLASH, token.REMAINDER, token.EXPONENT,
		token.AND, token.OR, token.EXCLUSIVE_OR,
		token.SHIFT_LEFT, token.SHIFT_RIGHT, token.UNSIGNED_SHIFT_RIGHT:
		return arithmeticOp(vm, left, right, expr.Operator)

	case token.LESS, token.LESS_OR_EQUAL, token.GREATER_OR_EQUAL, token.GREATER:
		a, err := vm.coerceToPrimitive(left, primCoerceValueOfFirst)
		if err != nil {
			return nil, err
		}
		b, err := vm.coerceToPrimitive(right, primCoerceValueOfFirst)
		if err != nil {
			return nil, err
		}

		var bval bool
		switch expr.Operator {
		case token.LESS:
			bval, err = vm.isLessThan(a, b)
		case token.LESS_OR_EQUAL:
			bval, err = vm.isNotLessThan(b, a)
		case token.GREATER_OR_EQUAL:
			bval, err = vm.isNotLessThan(a, b)
		case token.GREATER:
			bval, err = vm.isLessThan(b, a)
		}
		return Boolean(bval), err

	case token.INSTANCEOF:
		return vm.evalInstanceof(left, right)

	case token.IN:
		obj, err := vm.coerceToObject(right)
		if err != nil {
			return nil, err
		}
		key, err := vm.coerceToString(left)
		if err != nil {
			return nil, err
		}
		return Boolean(obj.hasProperty(Name(key))), nil

	default:
		return nil, vm.throwKind(FaultSyntaxFailure, "unsupported binary operator: "+expr.Operator.String())
	}
}

func (vm *VM) evalInstanceof(left, right Value) (Value, error) {
	cons, isObj := right.(*Object)
	if !isObj || cons.funcPart == nil {
		return nil, vm.throwKind(FaultTypeFailure, "right-hand side of 'instanceof' is not callable")
	}

	obj, isObj := left.(*Object)
	if !isObj {
		return Boolean(false), nil
	}

	protoValue, err := cons.GetProperty(NameStr("prototype"), vm)
	if err != nil {
		return nil, err
	}
	soughtProto, isObj := protoValue.(*Object)
	if !isObj {
		return nil, vm.throwKind(FaultTypeFailure, "constructor's prototype is not an object")
	}

	for obj = obj.Prototype; obj != nil; obj = obj.Prototype {
		if obj == soughtProto {
			return Boolean(true), nil
		}
	}
	return Boolean(false), nil
}

func (vm *VM) evalUnary(expr *ast.UnaryExpression) (Value, error) {
	switch expr.Operator {
	case token.INCREMENT, token.DECREMENT:
		prev, err := vm.evalExpr(expr.Operand)
		if err != nil {
			return nil, err
		}
		prevNum, err := vm.coerceToNumber(prev)
		if err != nil {
			return nil, err
		}

		next := prevNum + 1
		if expr.Operator == token.DECREMENT {
			next = prevNum - 1
		}
		if err := vm.doAssignment(expr.Operand, next); err != nil {
			return nil, err
		}
		if expr.Postfix {
			return prevNum, nil
		}
		return next, nil

	case token.DELETE:
		switch operand := expr.Operand.(type) {
		case *ast.Identifier:
			return Boolean(vm.curScope.env.deleteVar(vm.curScope, Name(operand.Name))), nil

		case *ast.DotExpression:
			objVal, err := vm.evalExpr(operand.Left)
			if err != nil {
				return nil, err
			}
			obj, err := vm.coerceToObject(objVal)
			if err != nil {
				return nil, err
			}
			return Boolean(obj.DeleteProperty(Name(operand.Identifier.Name))), nil

		case *ast.BracketExpression:
			objVal, err := vm.evalExpr(operand.Left)
			if err != nil {
				return nil, err
			}
			obj, err := vm.coerceToObject(objVal)
			if err != nil {
				return nil, err
			}
			memberVal, err := vm.evalExpr(operand.Member)
			if err != nil {
				return nil, err
			}
			key, err := vm.coerceToString(memberVal)
			if err != nil {
				return nil, err
			}
			return Boolean(obj.DeleteProperty(Name(key))), nil

		default:
			return nil, vm.throwKind(FaultSyntaxFailure,
				fmt.Sprintf("invalid delete argument: %T", expr.Operand))
		}

	case token.TYPEOF:
		// typeof tolerates an undeclared identifier
		if ident, isIdent := expr.Operand.(*ast.Identifier); isIdent {
			if _, status := vm.curScope.lookup(Name(ident.Name)); status == lookupMissing {
				return String("undefined"), nil
			}
		}
		arg, err := vm.evalExpr(expr.Operand)
		if err != nil {
			return nil, err
		}
		return String(typeofString(arg)), nil

	case token.NOT:
		arg, err := vm.evalExpr(expr.Operand)
		if err != nil {
			return nil, err
		}
		return Boolean(!vm.coerceToBoolean(arg)), nil

	case token.PLUS:
		arg, err := vm.evalExpr(expr.Operand)
		if err != nil {
			return nil, err
		}
		return vm.coerceToNumber(arg)

	case token.MINUS:
		arg, err := vm.evalExpr(expr.Operand)
		if err != nil {
			return nil, err
		}
		num, err := vm.coerceToNumber(arg)
		if err != nil {
			return nil, err
		}
		return -num, nil

	case token.BITWISE_NOT:
		arg, err := vm.evalExpr(expr.Operand)
		if err != nil {
			return nil, err
		}
		num, err := vm.coerceToNumber(arg)
		if err != nil {
			return nil, err
		}
		return Number(^toInt32(float64(num))), nil

	case token.VOID:
		// evaluate and discard
		if _, err := vm.evalExpr(expr.Operand); err != nil {
			return nil, err
		}
		return Undefined{}, nil

	default:
		return nil, vm.throwKind(FaultSyntaxFailure, "unsupported unary operator: "+expr.Operator.String())
	}
}

func typeofString(v Value) string {
	switch v.Kind() {
	case KindObject, KindNull:
		return "object"
	case KindBoolean:
		return "boolean"
	case KindFunction:
		return "function"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindUndefined:
		return "undefined"
	}
	panic("unexpected minijs.Kind")
}

func isNullish(v Value) bool {
	switch v.(type) {
	case Undefined, Null:
		return true
	}
	return false
}

func addition(vm *VM, left, right Value) (Value, error) {
	lprim, err := vm.coerceToPrimitive(left, primCoerceValueOfFirst)
	if err != nil {
		return nil, err
	}
	rprim, err := vm.coerceToPrimitive(right, primCoerceValueOfFirst)
	if err != nil {
		return nil, err
	}

	// a string on either side turns + into concatenation
	_, isLStr := lprim.(String)
	_, isRStr := rprim.(String)
	if isLStr || isRStr {
		lstr, err := vm.coerceToString(lprim)
		if err != nil {
			return nil, err
		}
		rstr, err := vm.coerceToString(rprim)
		if err != nil {
			return nil, err
		}
		return lstr + rstr, nil
	}

	return arithmeticOp(vm, lprim, rprim, token.PLUS)
}

func arithmeticOp(vm *VM, l, r Value, op token.Token) (Value, error) {
	ln, err := vm.coerceToNumber(l)
	if err != nil {
		return nil, err
	}
	rn, err := vm.coerceToNumber(r)
	if err != nil {
		return nil, err
	}

	switch op {
	case token.PLUS:
		return ln + rn, nil
	case token.MINUS:
		return ln - rn, nil
	case token.MULTIPLY:
		return ln * rn, nil
	case token.SLASH:
		return ln / rn, nil
	case token.REMAINDER:
		return Number(floatRemainder(float64(ln), float64(rn))), nil
	case token.EXPONENT:
		return Number(math.Pow(float64(ln), float64(rn))), nil
	case token.SHIFT_LEFT:
		return Number(toInt32(float64(ln)) << (toUint32(float64(rn)) & 31)), nil
	case token.SHIFT_RIGHT:
		return Number(toInt32(float64(ln)) >> (toUint32(float64(rn)) & 31)), nil
	case token.UNSIGNED_SHIFT_RIGHT:
		return Number(toUint32(float64(ln)) >> (toUint32(float64(rn)) & 31)), nil
	case token.AND:
		return Number(toInt32(float64(ln)) & toInt32(float64(rn))), nil
	case token.OR:
		return Number(toInt32(float64(ln)) | toInt32(float64(rn))), nil
	case token.EXCLUSIVE_OR:
		return Number(toInt32(float64(ln)) ^ toInt32(float64(rn))), nil
	default:
		return nil, vm.throwKind(FaultSyntaxFailure, "unsupported arithmetic operator: "+op.String())
	}
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(int64(f))
}

func toUint32(f float64) uint32 {
	return uint32(toInt32(f))
}
