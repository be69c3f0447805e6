package minijs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromiseSettlesOnce(t *testing.T) {
	expectLines(t, `
		var p = new Promise(function (resolve, reject) {
			resolve("first");
			reject("ignored");
			resolve("ignored too");
		});
		p.then(function (v) { print(v); });
	`,
		"first",
	)
}

func TestPromiseRecordState(t *testing.T) {
	vm := NewVM()
	require.NoError(t, vm.Run("test.js", `var p = Promise.resolve(5);`))

	val, err := vm.Global().GetOwnProperty(NameStr("p"), vm)
	require.NoError(t, err)
	rec := val.(*Object).PromiseRecordOf()
	require.NotNil(t, rec)
	assert.Equal(t, PromiseFulfilled, rec.State())
	assert.Equal(t, Number(5), rec.Value())
}

func TestThenRunsAsynchronously(t *testing.T) {
	expectLines(t, `
		print("start");
		var p = new Promise(function (resolve) {
			print("executor");
			resolve(1);
		});
		p.then(function (v) { print("then " + v); });
		print("end");
	`,
		"start",
		"executor",
		"end",
		"then 1",
	)
}

func TestThenChaining(t *testing.T) {
	expectLines(t, `
		Promise.resolve(1)
			.then(function (v) { return v + 1; })
			.then(function (v) { return v * 10; })
			.then(function (v) { print(v); });
	`,
		"20",
	)
}

func TestSiblingHandlersGetOriginalValue(t *testing.T) {
	expectLines(t, `
		var p = Promise.resolve(7);
		p.then(function (v) { print("first " + v); return v + 1; });
		p.then(function (v) { print("second " + v); });
	`,
		"first 7",
		"second 7",
	)
}

func TestHandlerThrowRejectsDerived(t *testing.T) {
	expectLines(t, `
		Promise.resolve("x")
			.then(function () { throw new Error("from handler"); })
			.catch(function (e) { print("caught " + e.message); });
	`,
		"caught from handler",
	)
}

func TestRejectionSkipsFulfillHandlers(t *testing.T) {
	expectLines(t, `
		Promise.reject("reason")
			.then(function () { print("never"); })
			.catch(function (r) { print("got " + r); });
	`,
		"got reason",
	)
}

func TestExecutorThrowRejects(t *testing.T) {
	expectLines(t, `
		new Promise(function () { throw new Error("exec"); })
			.catch(function (e) { print(e.message); });
	`,
		"exec",
	)
}

func TestResolveWithPromiseAdoptsState(t *testing.T) {
	expectLines(t, `
		var inner = new Promise(function (resolve) { resolve("inner value"); });
		new Promise(function (resolve) { resolve(inner); })
			.then(function (v) { print(v); });
	`,
		"inner value",
	)
}

func TestThenableAdoption(t *testing.T) {
	expectLines(t, `
		var thenable = {
			then: function (resolve) { resolve("adopted"); }
		};
		Promise.resolve()
			.then(function () { return thenable; })
			.then(function (v) { print(v); });
	`,
		"adopted",
	)
}

func TestSelfResolutionRejects(t *testing.T) {
	expectLines(t, `
		var resolveP;
		var p = new Promise(function (resolve) { resolveP = resolve; });
		p.catch(function (e) { print(e.name); });
		resolveP(p);
	`,
		"TypeError",
	)
}

func TestFinallyPassesValueThrough(t *testing.T) {
	expectLines(t, `
		Promise.resolve("kept")
			.finally(function () { print("cleanup"); return "discarded"; })
			.then(function (v) { print(v); });
	`,
		"cleanup",
		"kept",
	)
}

func TestFinallyThrowWins(t *testing.T) {
	expectLines(t, `
		Promise.resolve("lost")
			.finally(function () { throw new Error("finally boom"); })
			.catch(function (e) { print(e.message); });
	`,
		"finally boom",
	)
}

func TestFinallyOnRejection(t *testing.T) {
	expectLines(t, `
		Promise.reject("still rejected")
			.finally(function () { print("cleanup"); })
			.catch(function (r) { print(r); });
	`,
		"cleanup",
		"still rejected",
	)
}

func TestPromiseAll(t *testing.T) {
	expectLines(t, `
		Promise.all([1, Promise.resolve(2), 3])
			.then(function (vs) { print(vs.join(",")); });
	`,
		"1,2,3",
	)
}

func TestPromiseAllPreservesInputOrder(t *testing.T) {
	expectLines(t, `
		var slow = new Promise(function (resolve) {
			setTimeout(function () { resolve("slow"); }, 5);
		});
		Promise.all([slow, Promise.resolve("fast")])
			.then(function (vs) { print(vs.join(",")); });
	`,
		"slow,fast",
	)
}

func TestPromiseAllRejectsOnFirstFailure(t *testing.T) {
	expectLines(t, `
		Promise.all([Promise.resolve(1), Promise.reject("bad"), Promise.resolve(3)])
			.then(function () { print("never"); })
			.catch(function (r) { print("rejected " + r); });
	`,
		"rejected bad",
	)
}

func TestPromiseRace(t *testing.T) {
	expectLines(t, `
		Promise.race([new Promise(function () {}), Promise.resolve("fast")])
			.then(function (v) { print(v); });
	`,
		"fast",
	)
}

func TestPromiseAny(t *testing.T) {
	expectLines(t, `
		Promise.any([Promise.reject("a"), Promise.resolve("b")])
			.then(function (v) { print(v); });
	`,
		"b",
	)
}

func TestPromiseAnyAggregatesFailures(t *testing.T) {
	expectLines(t, `
		Promise.any([Promise.reject("a"), Promise.reject("b")])
			.catch(function (e) { print(e.name); print(e.errors.join(",")); });
	`,
		"AggregateError",
		"a,b",
	)
}

func TestPromiseAllSettled(t *testing.T) {
	expectLines(t, `
		Promise.allSettled([Promise.resolve(1), Promise.reject("no")])
			.then(function (rs) {
				print(rs[0].status, rs[0].value);
				print(rs[1].status, rs[1].reason);
			});
	`,
		"fulfilled 1",
		"rejected no",
	)
}

func TestUnhandledRejectionDiagnostic(t *testing.T) {
	expectLines(t, `
		Promise.reject("kaboom");
		print("sync");
	`,
		"sync",
		"[unhandled-rejection] kaboom",
	)
}

func TestHandledRejectionHasNoDiagnostic(t *testing.T) {
	expectLines(t, `
		Promise.reject("handled").catch(function (r) { print("got " + r); });
	`,
		"got handled",
	)
}

func TestAggregateFailureKind(t *testing.T) {
	vm := NewVM()
	require.NoError(t, vm.Run("test.js", `
		var p = Promise.any([Promise.reject(1)]);
	`))

	val, err := vm.Global().GetOwnProperty(NameStr("p"), vm)
	require.NoError(t, err)
	rec := val.(*Object).PromiseRecordOf()
	require.NotNil(t, rec)
	assert.Equal(t, PromiseRejected, rec.State())
	assert.Equal(t, FaultAggregateFailure, rec.faultKind)
}
