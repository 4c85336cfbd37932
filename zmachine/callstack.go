package zmachine

// RoutineType records how a called routine should return: function routines
// store their result in a variable, procedure routines discard it. This
// travels with the frame instead of living as a literal "discard" sentinel on
// the call-stack header, because the call site already knows which opcode
// invoked it (call/call_vs2/call_2s vs call_vn/call_vn2/call_2n) - see
// DESIGN.md for why this is equivalent to the marker described in the spec.
type RoutineType int

const (
	function RoutineType = iota
	procedure
)

// CallStackFrame is one routine activation: its own program counter, its
// locals, and an evaluation stack isolated to this frame. Isolating the
// eval stack per frame is functionally identical to a single global stack
// with a frame-marker sentinel - nothing can pop past the marker because
// there is nothing on the other side of it to pop.
type CallStackFrame struct {
	pc           uint32
	evalStack    []uint16
	locals       []uint16
	routineType  RoutineType
	argsSupplied int
}

func (f *CallStackFrame) push(v uint16) {
	f.evalStack = append(f.evalStack, v)
}

func (f *CallStackFrame) pop() uint16 {
	if len(f.evalStack) == 0 {
		panic(Fault{Kind: StackUnderflow, Message: "evaluation stack underflow"})
	}
	v := f.evalStack[len(f.evalStack)-1]
	f.evalStack = f.evalStack[:len(f.evalStack)-1]
	return v
}

func (f *CallStackFrame) peek() uint16 {
	if len(f.evalStack) == 0 {
		panic(Fault{Kind: StackUnderflow, Message: "evaluation stack underflow"})
	}
	return f.evalStack[len(f.evalStack)-1]
}

// CallStack is the LIFO of routine activations.
type CallStack struct {
	frames []CallStackFrame
}

func (s *CallStack) push(frame CallStackFrame) {
	s.frames = append(s.frames, frame)
}

func (s *CallStack) pop() CallStackFrame {
	if len(s.frames) == 0 {
		panic(Fault{Kind: StackUnderflow, Message: "call stack underflow"})
	}
	n := len(s.frames)
	frame := s.frames[n-1]
	s.frames = s.frames[:n-1]
	return frame
}

func (s *CallStack) peek() *CallStackFrame {
	if len(s.frames) == 0 {
		panic(Fault{Kind: StackUnderflow, Message: "call stack is empty"})
	}
	return &s.frames[len(s.frames)-1]
}

func (s *CallStack) depth() int {
	return len(s.frames)
}

// copy deep-copies the stack and every frame, used by save_undo/restore_undo.
func (s *CallStack) copy() CallStack {
	out := CallStack{frames: make([]CallStackFrame, len(s.frames))}
	for i, f := range s.frames {
		cp := CallStackFrame{
			pc:           f.pc,
			routineType:  f.routineType,
			argsSupplied: f.argsSupplied,
			evalStack:    make([]uint16, len(f.evalStack)),
			locals:       make([]uint16, len(f.locals)),
		}
		copy(cp.evalStack, f.evalStack)
		copy(cp.locals, f.locals)
		out.frames[i] = cp
	}
	return out
}
