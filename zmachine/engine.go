// Package zmachine implements the Z-machine execution engine: the call
// stack, operand/opcode decoder, the dispatch loop, and the typed Host
// collaborator interface every piece of I/O suspends into.
package zmachine

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/wrenfield/zigzag/dictionary"
	"github.com/wrenfield/zigzag/zcore"
	"github.com/wrenfield/zigzag/zobject"
	"github.com/wrenfield/zigzag/zstring"
)

// Engine ties every subsystem package together into a runnable interpreter.
// It holds no I/O of its own - every observable effect goes through Host.
type Engine struct {
	core       *zcore.Core
	host       Host
	dictionary *dictionary.Dictionary
	alphabets  *zstring.Alphabets

	callStack   CallStack
	screenModel ScreenModel
	streams     Streams
	undo        undoStack
	rng         *rand.Rand

	// originalDynamicMemory is the dynamic-memory image immediately after
	// load, used as the XOR baseline for Quetzal's CMem chunk.
	originalDynamicMemory []uint8

	warnOut  io.Writer
	warnedAt map[string]bool
}

// New loads a story file and constructs an Engine ready to Run against host.
func New(storyFile []uint8, host Host) (*Engine, error) {
	core, err := zcore.Load(storyFile)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		core:     core,
		host:     host,
		streams:  newStreams(),
		rng:      rand.New(rand.NewSource(1)),
		warnOut:  os.Stderr,
		warnedAt: make(map[string]bool),
	}

	e.alphabets = zstring.LoadAlphabets(core)
	e.dictionary = dictionary.Parse(core, uint32(core.DictionaryBase), e.alphabets)
	e.screenModel = newScreenModel(Color{255, 255, 255}, Color{0, 0, 0})

	e.originalDynamicMemory = make([]uint8, len(core.DynamicMemory()))
	copy(e.originalDynamicMemory, core.DynamicMemory())

	e.callStack.push(CallStackFrame{
		pc:     uint32(core.FirstInstruction),
		locals: make([]uint16, 0),
	})

	return e, nil
}

// warnOnce writes a non-fatal diagnostic at most once per distinct key per
// run, matching the teacher's stack-underflow warning pattern.
func (e *Engine) warnOnce(key, format string, args ...any) {
	if e.warnedAt[key] {
		return
	}
	e.warnedAt[key] = true
	fmt.Fprintf(e.warnOut, format+"\n", args...)
}

func (e *Engine) readIncPC(frame *CallStackFrame) uint8 {
	v := e.core.ReadByte(frame.pc)
	frame.pc++
	return v
}

func (e *Engine) readHalfWordIncPC(frame *CallStackFrame) uint16 {
	v := e.core.ReadHalfWord(frame.pc)
	frame.pc += 2
	return v
}

func (e *Engine) readVariable(v uint8, indirect bool) uint16 {
	frame := e.callStack.peek()
	switch {
	case v == 0:
		// Indirect references to the stack pointer (inc/dec/inc_chk/dec_chk/
		// load/store/pull) read in place rather than popping.
		if indirect {
			return frame.peek()
		}
		return frame.pop()
	case v < 16:
		if int(v-1) >= len(frame.locals) {
			panic(Fault{Kind: LocalOutOfRange, Message: fmt.Sprintf("local variable %d out of range (routine has %d)", v, len(frame.locals))})
		}
		return frame.locals[v-1]
	default:
		return e.core.ReadGlobal(v)
	}
}

func (e *Engine) writeVariable(v uint8, value uint16, indirect bool) {
	frame := e.callStack.peek()
	switch {
	case v == 0:
		if indirect {
			frame.pop()
		}
		frame.push(value)
	case v < 16:
		if int(v-1) >= len(frame.locals) {
			panic(Fault{Kind: LocalOutOfRange, Message: fmt.Sprintf("local variable %d out of range (routine has %d)", v, len(frame.locals))})
		}
		frame.locals[v-1] = value
	default:
		e.core.WriteGlobal(v, value)
	}
}

// call implements routine invocation: decode operands already happened (the
// opcode carries them), so this resolves the routine address, reads the
// local count and v1-4 default values, copies caller arguments over the
// defaults, and pushes a new frame.
func (e *Engine) call(opcode *Opcode, routineType RoutineType) {
	routineAddr := e.core.PackedAddress(uint32(opcode.operands[0].Value(e)), false)

	if routineAddr == 0 {
		// Calling address 0 is defined to do nothing and return false,
		// without even reading a store destination for procedure calls.
		if routineType == function {
			frame := e.callStack.peek()
			e.writeVariable(e.readIncPC(frame), 0, false)
		}
		return
	}

	localCount := e.core.ReadByte(routineAddr)
	routineAddr++

	locals := make([]uint16, localCount)
	for i := 0; i < int(localCount); i++ {
		if i+1 < len(opcode.operands) {
			locals[i] = opcode.operands[i+1].Value(e)
		} else if e.core.Version < 5 {
			locals[i] = e.core.ReadHalfWord(routineAddr)
		}
		if e.core.Version < 5 {
			routineAddr += 2
		}
	}

	e.callStack.push(CallStackFrame{
		pc:           routineAddr,
		locals:       locals,
		routineType:  routineType,
		argsSupplied: len(opcode.operands) - 1,
	})
}

// handleBranch consumes the branch byte(s) following a branching opcode and
// jumps, or performs the implicit return, if result matches the branch
// condition.
func (e *Engine) handleBranch(frame *CallStackFrame, result bool) {
	b1 := e.readIncPC(frame)
	branchOnTrue := b1&0b1000_0000 != 0
	singleByte := b1&0b0100_0000 != 0
	offset := int32(b1 & 0b0011_1111)

	if !singleByte {
		b2 := e.readIncPC(frame)
		offset = int32(int16(uint16(b1&0b0011_1111)<<8|uint16(b2)) << 2 >> 2)
	}

	if result != branchOnTrue {
		return
	}

	switch offset {
	case 0:
		e.retValue(0)
	case 1:
		e.retValue(1)
	default:
		frame.pc = uint32(int32(frame.pc) + offset - 2)
	}
}

// retValue pops the current frame and, if its caller expects a result
// (routineType == function), stores it in the variable named by the byte
// immediately following the call instruction's operands in the caller's
// still-paused program counter.
func (e *Engine) retValue(val uint16) {
	oldFrame := e.callStack.pop()
	if e.callStack.depth() == 0 {
		return
	}
	if oldFrame.routineType == function {
		newFrame := e.callStack.peek()
		dest := e.readIncPC(newFrame)
		e.writeVariable(dest, val, false)
	}
}

// invokeRoutine calls a routine synchronously to completion, discarding its
// result - used for the timeout callback routines of sread/aread/read_char,
// which must run to completion before the suspended read is abandoned. A
// real interrupt routine's return value can signal "keep the typed input",
// but this engine treats every timed-out read as aborted, a documented
// simplification over full interrupt-resumption semantics.
func (e *Engine) invokeRoutine(routineAddr uint32) {
	localCount := e.core.ReadByte(routineAddr)
	pc := routineAddr + 1
	locals := make([]uint16, localCount)
	if e.core.Version < 5 {
		for i := 0; i < int(localCount); i++ {
			locals[i] = e.core.ReadHalfWord(pc)
			pc += 2
		}
	}

	targetDepth := e.callStack.depth()
	e.callStack.push(CallStackFrame{pc: pc, locals: locals, routineType: procedure, argsSupplied: 0})

	for e.callStack.depth() > targetDepth {
		if !e.step() {
			break
		}
	}
}

func newSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func dictWordLength(version uint8) int {
	if version <= 3 {
		return 2
	}
	return 3
}

func (e *Engine) currentWindow() int {
	if e.screenModel.LowerWindowActive {
		return 0
	}
	return 1
}

// appendText routes decoded/printed text to whichever output stream is
// currently active: a memory-capture table takes priority over the screen
// while selected (transcript/command-script are no-op sinks - a terminal
// renderer is a collaborator concern, not core).
func (e *Engine) appendText(s string) {
	if e.streams.Memory {
		stream := &e.streams.MemoryStreams[len(e.streams.MemoryStreams)-1]
		for i := 0; i < len(s); i++ {
			e.core.WriteByte(stream.ptr, s[i])
			stream.ptr++
		}
		return
	}

	if e.streams.Screen {
		e.host.Print(e.currentWindow(), s)

		if !e.screenModel.LowerWindowActive {
			lines := strings.Split(s, "\n")
			if len(lines) > 1 {
				e.screenModel.UpperWindowCursorY += len(lines) - 1
				e.screenModel.UpperWindowCursorX = len(lines[len(lines)-1])
			} else {
				e.screenModel.UpperWindowCursorX += len(lines[0])
			}
		}
	}
}

// statusLine composes and sends the v1-3 status bar from globals 16-18.
func (e *Engine) statusLine() {
	if e.core.Version > 3 {
		return
	}
	location := zobject.GetObject(e.core, e.core.ReadGlobal(16), e.alphabets)
	score := int16(e.core.ReadGlobal(17))
	moves := int16(e.core.ReadGlobal(18))
	e.host.Status(location.Name, int(score), int(moves), e.core.StatusBarTimeBased)
}

// Run executes the story to completion, recovering any Fault raised along
// the way and reporting it to the host.
func (e *Engine) Run() {
	for {
		if !e.Step() {
			return
		}
	}
}

// Step executes exactly one instruction, recovering a Fault if one is
// raised and reporting it to the host. It returns false once the program
// has quit or faulted - callers should stop calling Step after that.
func (e *Engine) Step() (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			if fault, ok := adoptSubpackageFault(r); ok {
				e.host.Error(fault.Error())
				cont = false
				return
			}
			panic(r)
		}
	}()
	return e.step()
}
