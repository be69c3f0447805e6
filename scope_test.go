package minijs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicalChainResolution(t *testing.T) {
	expectLines(t, `
		var x = "outer";
		function f() {
			var x = "inner";
			return x;
		}
		print(f());
		print(x);
	`,
		"inner",
		"outer",
	)
}

func TestBlockShadowing(t *testing.T) {
	expectLines(t, `
		let x = "outer";
		{
			let x = "block";
			print(x);
		}
		print(x);
	`,
		"block",
		"outer",
	)
}

func TestClosureCapturesDefinitionScope(t *testing.T) {
	expectLines(t, `
		function makeCounter() {
			let count = 0;
			return function () {
				count = count + 1;
				return count;
			};
		}
		var c1 = makeCounter();
		var c2 = makeCounter();
		print(c1());
		print(c1());
		print(c2());
	`,
		"1",
		"2",
		"1",
	)
}

func TestArrowVarIsLocalToArrow(t *testing.T) {
	expectLines(t, `
		function f() {
			var x = "outer";
			var g = () => { var x = "inner"; };
			g();
			return x;
		}
		print(f());
	`,
		"outer",
	)
}

func TestArrowBodyBindingsFreshPerCall(t *testing.T) {
	expectLines(t, `
		var bump = () => {
			var n = 0;
			n = n + 1;
			return n;
		};
		print(bump());
		print(bump());
	`,
		"1",
		"1",
	)
}

func TestConstAssignmentFails(t *testing.T) {
	exc := expectFault(t, `
		const k = 1;
		k = 2;
	`, FaultTypeFailure)
	assert.Contains(t, exc.message(), "constant")
}

func TestConstWithoutInitializer(t *testing.T) {
	expectFault(t, `const k;`, FaultSyntaxFailure)
}

func TestTemporalDeadZoneRead(t *testing.T) {
	expectFault(t, `
		{
			print(v);
			let v = 1;
		}
	`, FaultUninitializedAccess)
}

func TestTemporalDeadZoneWrite(t *testing.T) {
	expectFault(t, `
		{
			v = 2;
			let v = 1;
		}
	`, FaultUninitializedAccess)
}

func TestSloppyImplicitGlobal(t *testing.T) {
	vm := NewVM()
	require.NoError(t, vm.Run("test.js", `
		function f() { leaked = "oops"; }
		f();
	`))

	val, err := vm.Global().GetOwnProperty(NameStr("leaked"), vm)
	require.NoError(t, err)
	assert.Equal(t, String("oops"), val)
}

func TestStrictUndeclaredAssignment(t *testing.T) {
	expectFault(t, `
		"use strict";
		undeclared = 1;
	`, FaultReferenceNotFound)
}

func TestStrictModeInheritedByNestedFunctions(t *testing.T) {
	expectFault(t, `
		"use strict";
		function outer() {
			function inner() { leaked = 1; }
			inner();
		}
		outer();
	`, FaultReferenceNotFound)
}

func TestGlobalVarBecomesGlobalProperty(t *testing.T) {
	expectLines(t, `
		var onGlobal = "yes";
		print(globalThis.onGlobal);
	`,
		"yes",
	)
}

func TestGlobalLetStaysOffGlobalObject(t *testing.T) {
	expectLines(t, `
		let hidden = "yes";
		print(typeof globalThis.hidden);
		print(hidden);
	`,
		"undefined",
		"yes",
	)
}

func TestDeleteUndeclaredGlobal(t *testing.T) {
	expectLines(t, `
		stray = 1;
		print(delete stray);
		print(typeof stray);
	`,
		"true",
		"undefined",
	)
}

func TestUndefinedIdentifierIsAlwaysUndefined(t *testing.T) {
	expectLines(t, `print(typeof undefined);`, "undefined")
}
