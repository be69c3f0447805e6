package minijs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarHoisting(t *testing.T) {
	expectLines(t, `
		print(x);
		var x = 5;
		print(x);
	`,
		"undefined",
		"5",
	)
}

func TestFunctionDeclarationHoisting(t *testing.T) {
	expectLines(t, `
		print(add(2, 3));
		function add(a, b) { return a + b; }
	`,
		"5",
	)
}

func TestLetBeforeDeclaration(t *testing.T) {
	expectLines(t, `
		print(x);
		var x = 5;
		print(add(2, 3));
		function add(a, b) { return a + b; }
		try {
			print(y);
		} catch (e) {
			print(e.name);
		}
		let y = 1;
		print(y);
	`,
		"undefined",
		"5",
		"ReferenceError",
		"1",
	)
}

func TestVarInBlockBelongsToFunction(t *testing.T) {
	expectLines(t, `
		function f() {
			if (true) {
				var inner = "set";
			}
			return inner;
		}
		print(f());
	`,
		"set",
	)
}

func TestDuplicateVarKeepsParamValue(t *testing.T) {
	expectLines(t, `
		function f(a) {
			var a;
			return a;
		}
		print(f(7));
	`,
		"7",
	)
}

func TestLaterFunctionDeclarationWins(t *testing.T) {
	expectLines(t, `
		print(which());
		function which() { return "first"; }
		function which() { return "second"; }
	`,
		"second",
	)
}

func TestHoistingDoesNotCrossFunctionBoundary(t *testing.T) {
	exc := expectFault(t, `
		function f() { var hidden = 1; }
		f();
		print(hidden);
	`, FaultReferenceNotFound)
	assert.Contains(t, exc.message(), "hidden")
}

func TestLexicalRedeclarationRejected(t *testing.T) {
	expectFault(t, `
		let a = 1;
		let a = 2;
	`, FaultSyntaxFailure)

	expectFault(t, `
		var b = 1;
		let b = 2;
	`, FaultSyntaxFailure)
}

func TestVarLetCollisionInsideFunction(t *testing.T) {
	expectFault(t, `
		function f() {
			var a = 1;
			let a = 2;
		}
		f();
	`, FaultSyntaxFailure)
}

func TestBlockScopedFunctionDeclaration(t *testing.T) {
	expectLines(t, `
		{
			print(inBlock());
			function inBlock() { return "ok"; }
		}
	`,
		"ok",
	)
}

func TestHoistingInsideForAndTry(t *testing.T) {
	expectLines(t, `
		print(typeof i);
		print(typeof t);
		for (var i = 0; i < 1; i = i + 1) {}
		try { var t = 1; } catch (e) {}
		print(i);
		print(t);
	`,
		"undefined",
		"undefined",
		"1",
		"1",
	)
}
