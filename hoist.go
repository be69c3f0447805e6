package minijs

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

// The hoisting pass builds a body's initial bindings before any statement
// of the body runs:
//
//   - every `var` declared anywhere in the body (blocks included, nested
//     function bodies excluded) becomes a binding with value undefined; a
//     same-named parameter keeps its value until the re-declaration's
//     initializer actually runs;
//   - every function declaration binds a fully materialized closure, which
//     is why calling one above its textual position works;
//   - every `let`/`const`/class at the scope's own level reserves a slot
//     that stays uninitialized until the declaration statement executes;
//   - function expressions get only their variable's treatment.

// hoistVarScope prepares a function or program body scope.
func (vm *VM) hoistVarScope(scope *Scope, body []ast.Statement) error {
	for _, stmt := range body {
		if err := vm.hoistStmt(scope, stmt, true); err != nil {
			return err
		}
	}
	return nil
}

// hoistBlockScope prepares a block scope: only the block's own lexical and
// function declarations; vars were already claimed by the enclosing
// function's pass.
func (vm *VM) hoistBlockScope(scope *Scope, body []ast.Statement) error {
	for _, stmt := range body {
		if err := vm.hoistOwnLevel(scope, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) hoistStmt(scope *Scope, stmt ast.Statement, ownLevel bool) error {
	switch stmt := stmt.(type) {
	case *ast.VariableStatement:
		return vm.hoistVarBindings(scope, stmt.List)

	case *ast.LexicalDeclaration, *ast.FunctionDeclaration, *ast.ClassDeclaration:
		if ownLevel {
			return vm.hoistOwnLevel(scope, stmt)
		}
		return nil

	case *ast.BlockStatement:
		return vm.hoistList(scope, stmt.List)

	case *ast.IfStatement:
		if err := vm.hoistStmt(scope, stmt.Consequent, false); err != nil {
			return err
		}
		if stmt.Alternate != nil {
			return vm.hoistStmt(scope, stmt.Alternate, false)
		}
		return nil

	case *ast.ForStatement:
		if decl, isVar := stmt.Initializer.(*ast.ForLoopInitializerVarDeclList); isVar {
			if err := vm.hoistVarBindings(scope, decl.List); err != nil {
				return err
			}
		}
		return vm.hoistStmt(scope, stmt.Body, false)

	case *ast.WhileStatement:
		return vm.hoistStmt(scope, stmt.Body, false)

	case *ast.DoWhileStatement:
		return vm.hoistStmt(scope, stmt.Body, false)

	case *ast.TryStatement:
		if err := vm.hoistStmt(scope, stmt.Body, false); err != nil {
			return err
		}
		if stmt.Catch != nil {
			if err := vm.hoistStmt(scope, stmt.Catch.Body, false); err != nil {
				return err
			}
		}
		if stmt.Finally != nil {
			return vm.hoistStmt(scope, stmt.Finally, false)
		}
		return nil

	case *ast.SwitchStatement:
		for _, clause := range stmt.Body {
			if err := vm.hoistList(scope, clause.Consequent); err != nil {
				return err
			}
		}
		return nil

	case *ast.LabelledStatement:
		return vm.hoistStmt(scope, stmt.Statement, false)

	default:
		// expression statements, returns, throws: nothing hoistable
		return nil
	}
}

func (vm *VM) hoistList(scope *Scope, stmts []ast.Statement) error {
	for _, stmt := range stmts {
		if err := vm.hoistStmt(scope, stmt, false); err != nil {
			return err
		}
	}
	return nil
}

// hoistOwnLevel registers a declaration that scopes to the level it appears
// at: let/const slots, class slots, and materialized function declarations.
func (vm *VM) hoistOwnLevel(scope *Scope, stmt ast.Statement) error {
	switch stmt := stmt.(type) {
	case *ast.LexicalDeclaration:
		kind := DeclLet
		if stmt.Token == token.CONST {
			kind = DeclConst
		}
		for _, binding := range stmt.List {
			name, err := vm.bindingName(binding.Target)
			if err != nil {
				return err
			}
			if err := scope.declare(kind, name, Undefined{}); err != nil {
				return vm.throwKind(FaultSyntaxFailure, err.Error())
			}
		}
		return nil

	case *ast.FunctionDeclaration:
		fn, err := vm.defineFunctionIn(scope, stmt.Function)
		if err != nil {
			return err
		}
		if stmt.Function.Name == nil {
			return vm.throwKind(FaultSyntaxFailure, "function declaration requires a name")
		}
		if err := scope.declare(DeclFunction, Name(stmt.Function.Name.Name), fn); err != nil {
			return vm.throwKind(FaultSyntaxFailure, err.Error())
		}
		return nil

	case *ast.ClassDeclaration:
		if stmt.Class.Name == nil {
			return vm.throwKind(FaultSyntaxFailure, "class declaration requires a name")
		}
		if err := scope.declare(DeclLet, Name(stmt.Class.Name.Name), Undefined{}); err != nil {
			return vm.throwKind(FaultSyntaxFailure, err.Error())
		}
		return nil

	default:
		return nil
	}
}

func (vm *VM) hoistVarBindings(scope *Scope, list []*ast.Binding) error {
	for _, binding := range list {
		name, err := vm.bindingName(binding.Target)
		if err != nil {
			return err
		}
		if err := scope.declare(DeclVar, name, Undefined{}); err != nil {
			return vm.throwKind(FaultSyntaxFailure, err.Error())
		}
	}
	return nil
}

func (vm *VM) bindingName(target ast.BindingTarget) (Name, error) {
	ident, isIdent := target.(*ast.Identifier)
	if !isIdent {
		return "", vm.throwKind(FaultSyntaxFailure, "destructuring declarations are not supported")
	}
	return Name(ident.Name), nil
}
