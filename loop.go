package minijs

import (
	"github.com/rs/zerolog"
)

// macrotask is one scheduled timer callback. delayRank orders tasks
// logically (no wall clock is involved); ties run in scheduling order.
type macrotask struct {
	delayRank int
	seq       int
	run       func() error
}

// EventLoop owns the two task queues. The ordering contract: within a queue,
// strict FIFO (macrotasks ordered by delay rank first); the microtask queue
// is drained to empty before the next macrotask is considered, including
// microtasks enqueued by other microtasks mid-drain.
type EventLoop struct {
	micro *fifo[func() error]
	macro []macrotask
	seq   int

	rejections []*PromiseRecord
	log        zerolog.Logger
}

func newEventLoop(log zerolog.Logger) *EventLoop {
	return &EventLoop{
		micro: newFifo[func() error](),
		log:   log,
	}
}

func (lp *EventLoop) EnqueueMicrotask(fn func() error) {
	lp.micro.Enqueue(fn)
}

// ScheduleMacrotask registers a timer task and returns its id.
func (lp *EventLoop) ScheduleMacrotask(delayRank int, fn func() error) int {
	if delayRank < 0 {
		delayRank = 0
	}
	lp.seq++
	lp.macro = append(lp.macro, macrotask{delayRank: delayRank, seq: lp.seq, run: fn})
	lp.log.Debug().Int("delay_rank", delayRank).Int("seq", lp.seq).Msg("macrotask scheduled")
	return lp.seq
}

// DrainMicrotasks runs microtasks in FIFO order until the queue is empty.
func (lp *EventLoop) DrainMicrotasks() error {
	for {
		fn, found := lp.micro.Dequeue()
		if !found {
			return nil
		}
		if err := fn(); err != nil {
			return err
		}
	}
}

// RunNextMacrotask runs the single next-due macrotask (lowest delay rank,
// then scheduling order). It reports false when none is pending. Microtasks
// are not drained here; that is the caller's half of the contract.
func (lp *EventLoop) RunNextMacrotask() (bool, error) {
	if len(lp.macro) == 0 {
		return false, nil
	}

	next := 0
	for i := 1; i < len(lp.macro); i++ {
		cand, due := lp.macro[i], lp.macro[next]
		if cand.delayRank < due.delayRank || (cand.delayRank == due.delayRank && cand.seq < due.seq) {
			next = i
		}
	}

	task := lp.macro[next]
	lp.macro = append(lp.macro[:next], lp.macro[next+1:]...)
	lp.log.Debug().Int("delay_rank", task.delayRank).Int("seq", task.seq).Msg("macrotask running")
	return true, task.run()
}

func (lp *EventLoop) HasWork() bool {
	return !lp.micro.IsEmpty() || len(lp.macro) > 0
}

func (lp *EventLoop) trackRejection(rec *PromiseRecord) {
	lp.rejections = append(lp.rejections, rec)
}

// reportUnhandled diagnoses every rejection that never received a handler.
// Unhandled rejections are not fatal; they surface on the transcript once
// the loop has run out of work.
func (lp *EventLoop) reportUnhandled(vm *VM) {
	for _, rec := range lp.rejections {
		if rec.handled || rec.state != PromiseRejected {
			continue
		}
		msg := vm.displayValue(rec.value)
		lp.log.Warn().Str("reason", msg).Msg("unhandled rejection")
		vm.transcript.Diagnose("unhandled-rejection", msg)
	}
	lp.rejections = nil
}
