package minijs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMicrotaskBeforeMacrotask(t *testing.T) {
	expectLines(t, `
		print("sync");
		setTimeout(function () { print("macro"); }, 0);
		Promise.resolve().then(function () { print("micro"); });
		print("sync2");
	`,
		"sync",
		"sync2",
		"micro",
		"macro",
	)
}

func TestNestedMicrotasksDrainBeforeMacrotask(t *testing.T) {
	expectLines(t, `
		setTimeout(function () { print("macro"); }, 0);
		queueMicrotask(function () {
			print("m1");
			queueMicrotask(function () { print("m2"); });
		});
	`,
		"m1",
		"m2",
		"macro",
	)
}

func TestChainedThenStaysAheadOfTimers(t *testing.T) {
	expectLines(t, `
		setTimeout(function () { print("macro"); }, 0);
		Promise.resolve()
			.then(function () {
				print("micro 1");
				return Promise.resolve().then(function () { print("micro 2"); });
			})
			.then(function () { print("micro 3"); });
	`,
		"micro 1",
		"micro 2",
		"micro 3",
		"macro",
	)
}

func TestTimerDelayOrdering(t *testing.T) {
	expectLines(t, `
		setTimeout(function () { print("late"); }, 10);
		setTimeout(function () { print("early"); }, 1);
		setTimeout(function () { print("tie1"); }, 5);
		setTimeout(function () { print("tie2"); }, 5);
	`,
		"early",
		"tie1",
		"tie2",
		"late",
	)
}

func TestMicrotasksDrainBetweenMacrotasks(t *testing.T) {
	expectLines(t, `
		setTimeout(function () {
			print("macro 1");
			Promise.resolve().then(function () { print("micro in macro"); });
		}, 0);
		setTimeout(function () { print("macro 2"); }, 1);
	`,
		"macro 1",
		"micro in macro",
		"macro 2",
	)
}

func TestTimerScheduledFromTimer(t *testing.T) {
	expectLines(t, `
		setTimeout(function () {
			print("outer");
			setTimeout(function () { print("inner"); }, 0);
		}, 0);
	`,
		"outer",
		"inner",
	)
}

func TestThrowingTimerDoesNotStopTheLoop(t *testing.T) {
	expectLines(t, `
		setTimeout(function () { throw new Error("timer boom"); }, 0);
		setTimeout(function () { print("still runs"); }, 1);
	`,
		"[user-thrown] timer boom",
		"still runs",
	)
}

func TestSteppingDrainMicrotasksOnly(t *testing.T) {
	vm := NewVM()
	require.NoError(t, vm.RunString("test.js", `
		print("sync");
		setTimeout(function () { print("macro"); }, 0);
		Promise.resolve().then(function () { print("micro"); });
	`))

	// nothing queued has run yet
	assert.Equal(t, []string{"sync"}, vm.Transcript().Lines())

	require.NoError(t, vm.DrainMicrotasks())
	assert.Equal(t, []string{"sync", "micro"}, vm.Transcript().Lines())

	ran, err := vm.RunNextMacrotask()
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, []string{"sync", "micro", "macro"}, vm.Transcript().Lines())

	ran, err = vm.RunNextMacrotask()
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestRunNextMacrotaskDrainsItsMicrotasks(t *testing.T) {
	vm := NewVM()
	require.NoError(t, vm.RunString("test.js", `
		setTimeout(function () {
			print("macro");
			Promise.resolve().then(function () { print("follow-up"); });
		}, 0);
	`))

	ran, err := vm.RunNextMacrotask()
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, []string{"macro", "follow-up"}, vm.Transcript().Lines())
	assert.False(t, vm.Loop().HasWork())
}

func TestHasWork(t *testing.T) {
	vm := NewVM()
	assert.False(t, vm.Loop().HasWork())

	require.NoError(t, vm.RunString("test.js", `setTimeout(function () {}, 0);`))
	assert.True(t, vm.Loop().HasWork())

	require.NoError(t, vm.RunToCompletion())
	assert.False(t, vm.Loop().HasWork())
}

func TestSetTimeoutReturnsDistinctIds(t *testing.T) {
	expectLines(t, `
		var a = setTimeout(function () {}, 0);
		var b = setTimeout(function () {}, 0);
		print(typeof a, a !== b);
	`,
		"number true",
	)
}

func TestQueueMicrotaskRequiresCallable(t *testing.T) {
	expectFault(t, `queueMicrotask(42);`, FaultTypeFailure)
}

func TestSetTimeoutRequiresCallable(t *testing.T) {
	expectFault(t, `setTimeout("not a function", 0);`, FaultTypeFailure)
}
