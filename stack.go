package minijs

import "fmt"

// Frame is one activation record. Exactly one frame is current at any
// instant; the bottom frame is the global frame and lives for the whole
// program.
type Frame struct {
	Scope  *Scope
	This   Value
	Callee *Object // nil for the global frame

	caller *Frame
}

func (f *Frame) Caller() *Frame { return f.caller }

func (f *Frame) Name() string {
	if f.Callee == nil {
		return "<global>"
	}
	if fp := f.Callee.funcPart; fp != nil && fp.name != "" {
		return string(fp.name)
	}
	return "<anonymous>"
}

// OverflowError is returned by Push when the configured depth bound is
// exceeded; the evaluator converts it into a catchable stack-overflow
// exception.
type OverflowError struct {
	MaxDepth int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("maximum call stack size exceeded (%d frames)", e.MaxDepth)
}

// CallStack is the LIFO sequence of frames. MaxDepth counts function frames
// only; the persistent global frame is not charged against it.
type CallStack struct {
	frames   []*Frame
	maxDepth int
}

func NewCallStack(maxDepth int) *CallStack {
	return &CallStack{maxDepth: maxDepth}
}

func (cs *CallStack) Push(f *Frame) error {
	if len(cs.frames) > 0 && len(cs.frames)-1 >= cs.maxDepth {
		return &OverflowError{MaxDepth: cs.maxDepth}
	}
	f.caller = cs.Current()
	cs.frames = append(cs.frames, f)
	return nil
}

func (cs *CallStack) Pop(check *Frame) {
	sl := len(cs.frames)
	if sl == 0 {
		panic("bug: CallStack.Pop on empty stack")
	}
	if cs.frames[sl-1] != check {
		panic("bug: CallStack was not managed purely with Push/Pop")
	}
	cs.frames[sl-1] = nil
	cs.frames = cs.frames[:sl-1]
}

func (cs *CallStack) Current() *Frame {
	if len(cs.frames) == 0 {
		return nil
	}
	return cs.frames[len(cs.frames)-1]
}

// Depth reports the number of function frames above the global frame.
func (cs *CallStack) Depth() int {
	if len(cs.frames) == 0 {
		return 0
	}
	return len(cs.frames) - 1
}

func (cs *CallStack) MaxDepth() int { return cs.maxDepth }
