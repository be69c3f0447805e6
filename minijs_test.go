package minijs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLines(t *testing.T, src string) []string {
	t.Helper()
	vm := NewVM()
	if err := vm.Run("test.js", src); err != nil {
		_, isExc := err.(*Exception)
		require.True(t, isExc, "internal error running %q: %v", src, err)
	}
	return vm.Transcript().Lines()
}

func expectLines(t *testing.T, src string, want ...string) {
	t.Helper()
	require.Equal(t, want, runLines(t, src))
}

func expectFault(t *testing.T, src string, kind FaultKind) *Exception {
	t.Helper()
	vm := NewVM()
	err := vm.RunString("test.js", src)
	require.Error(t, err, "expected uncaught exception for %q", src)
	exc, isExc := err.(*Exception)
	require.True(t, isExc, "expected exception for %q, got %v", src, err)
	require.Equal(t, kind.String(), exc.Kind.String(), "message: %s", exc.message())
	return exc
}

func TestParseError(t *testing.T) {
	vm := NewVM()
	err := vm.RunString("test.js", "let let let")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	assert.Empty(t, vm.Transcript().Lines())
}

func TestUncaughtExceptionDiagnostic(t *testing.T) {
	vm := NewVM()
	err := vm.RunString("test.js", `throw new Error("boom");`)
	require.Error(t, err)

	exc, isExc := err.(*Exception)
	require.True(t, isExc)
	assert.Equal(t, FaultUserThrown, exc.Kind)
	require.Equal(t, []string{"[user-thrown] boom"}, vm.Transcript().Lines())
}

func TestForceStrictOption(t *testing.T) {
	vm := NewVMWith(Options{ForceStrict: true})
	err := vm.RunString("test.js", "undeclared = 1;")
	require.Error(t, err)
	exc, isExc := err.(*Exception)
	require.True(t, isExc)
	assert.Equal(t, FaultReferenceNotFound, exc.Kind)
}

func TestTranscriptOrdering(t *testing.T) {
	vm := NewVM()
	require.NoError(t, vm.Run("test.js", `
		print("one");
		print("two", 3, true);
	`))

	entries := vm.Transcript().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, EntryPrint, entries[0].Kind)
	assert.Equal(t, "one", entries[0].Text)
	assert.Equal(t, "two 3 true", entries[1].Text)
	assert.Equal(t, "one\ntwo 3 true", strings.TrimRight(vm.Transcript().String(), "\n"))
}

func TestGlobalAccessor(t *testing.T) {
	vm := NewVM()
	require.NoError(t, vm.Run("test.js", "var answer = 42;"))

	val, err := vm.Global().GetOwnProperty(NameStr("answer"), vm)
	require.NoError(t, err)
	assert.Equal(t, Number(42), val)
}

func TestDisplayValue(t *testing.T) {
	expectLines(t, `
		print([1, "two", null]);
		print({ b: 2, a: 1 });
		print(function named() {});
		print(Promise.resolve(7));
	`,
		"[ 1, 'two', null ]",
		"{ a: 1, b: 2 }",
		"[Function: named]",
		"Promise { 7 }",
	)
}
