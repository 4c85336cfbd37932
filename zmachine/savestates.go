package zmachine

// undoState is a captured machine snapshot for save_undo/restore_undo (v5+
// extended opcodes). Unlike the Quetzal on-disk format, this never leaves
// the process, so it just keeps Go values directly rather than serialising.
type undoState struct {
	dynamicMemory []uint8
	callStack     CallStack
	screenModel   ScreenModel
	streams       Streams
}

// undoStack is an in-process LIFO of undoState, distinct from the host's
// Quetzal save/restore, grounded on the teacher's InMemorySaveStateCache.
type undoStack struct {
	states []undoState
}

func (e *Engine) captureUndoState() undoState {
	dynamic := make([]uint8, len(e.core.DynamicMemory()))
	copy(dynamic, e.core.DynamicMemory())

	return undoState{
		dynamicMemory: dynamic,
		callStack:     e.callStack.copy(),
		screenModel:   e.screenModel,
		streams:       e.streams,
	}
}

func (e *Engine) applyUndoState(s undoState) bool {
	if len(s.dynamicMemory) != len(e.core.DynamicMemory()) {
		return false
	}
	e.core.RestoreDynamicMemory(s.dynamicMemory)
	e.callStack = s.callStack.copy()
	e.screenModel = s.screenModel
	e.streams = s.streams
	return true
}

func (e *Engine) saveUndo() {
	e.undo.states = append(e.undo.states, e.captureUndoState())
}

// restoreUndo pops the most recent undo snapshot and applies it, returning
// the store value save_undo/restore_undo expect: 0 on failure/empty stack, 2
// on success.
func (e *Engine) restoreUndo() uint16 {
	if len(e.undo.states) == 0 {
		return 0
	}
	s := e.undo.states[len(e.undo.states)-1]
	e.undo.states = e.undo.states[:len(e.undo.states)-1]
	if !e.applyUndoState(s) {
		return 0
	}
	return 2
}
