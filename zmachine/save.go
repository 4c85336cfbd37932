package zmachine

import "github.com/wrenfield/zigzag/quetzal"

// buildSaveState captures the engine's full state into a quetzal.SaveState.
// Each frame's Discard/StoreVariable describe how *that* frame's eventual
// return is delivered, which is a property of the routineType it was
// created with, plus - for a function-type frame - the store-destination
// byte sitting at its caller's still-paused program counter.
func (e *Engine) buildSaveState(resumePC uint32) quetzal.SaveState {
	frames := make([]quetzal.Frame, len(e.callStack.frames))
	for i, f := range e.callStack.frames {
		discard := f.routineType == procedure
		var storeVar uint8
		if !discard && i > 0 {
			storeVar = e.core.ReadByte(e.callStack.frames[i-1].pc)
		}

		locals := make([]uint16, len(f.locals))
		copy(locals, f.locals)
		evalStack := make([]uint16, len(f.evalStack))
		copy(evalStack, f.evalStack)

		frames[i] = quetzal.Frame{
			ReturnPC:      f.pc,
			Locals:        locals,
			EvalStack:     evalStack,
			StoreVariable: storeVar,
			Discard:       discard,
			ArgsSupplied:  f.argsSupplied,
		}
	}

	dynamic := make([]uint8, len(e.core.DynamicMemory()))
	copy(dynamic, e.core.DynamicMemory())

	return quetzal.SaveState{
		Release:       e.core.ReleaseNumber,
		Serial:        e.core.SerialNumber,
		Checksum:      e.core.FileChecksum,
		PC:            resumePC,
		DynamicMemory: dynamic,
		Frames:        frames,
	}
}

// applySaveState rebuilds the call stack, dynamic memory, and program
// counter from a decoded quetzal.SaveState. The screen model and output
// streams are deliberately left untouched, matching the Standard's
// description of restore affecting only the story's own state.
func (e *Engine) applySaveState(s quetzal.SaveState) {
	e.core.RestoreDynamicMemory(s.DynamicMemory)

	frames := make([]CallStackFrame, len(s.Frames))
	for i, f := range s.Frames {
		rt := function
		if f.Discard {
			rt = procedure
		}
		locals := make([]uint16, len(f.Locals))
		copy(locals, f.Locals)
		evalStack := make([]uint16, len(f.EvalStack))
		copy(evalStack, f.EvalStack)
		frames[i] = CallStackFrame{
			pc:           f.ReturnPC,
			locals:       locals,
			evalStack:    evalStack,
			routineType:  rt,
			argsSupplied: f.ArgsSupplied,
		}
	}
	e.callStack = CallStack{frames: frames}
}

// doSave serialises the current state to Quetzal bytes and hands them to
// the host. resumePC is where execution should continue on a later
// restore - the byte immediately following this save instruction's result
// handling.
func (e *Engine) doSave(resumePC uint32) bool {
	data := quetzal.Encode(e.originalDynamicMemory, e.buildSaveState(resumePC))
	return e.host.Save(data)
}

// doRestore asks the host for Quetzal bytes and, if they decode and match
// this story, replaces the engine's state and returns the PC execution
// should resume at. ok is false for a declined, malformed, or
// story-mismatched restore - never a fatal condition.
func (e *Engine) doRestore() (resumePC uint32, ok bool) {
	data, got := e.host.Restore()
	if !got {
		return 0, false
	}
	state, decoded := quetzal.Decode(data, e.originalDynamicMemory, e.core.ReleaseNumber, e.core.SerialNumber, e.core.FileChecksum)
	if !decoded {
		return 0, false
	}
	e.applySaveState(state)
	return state.PC, true
}
