package zmachine

import (
	"strconv"
	"time"

	"github.com/wrenfield/zigzag/dictionary"
	"github.com/wrenfield/zigzag/zobject"
	"github.com/wrenfield/zigzag/zstring"
	"github.com/wrenfield/zigzag/ztable"
)

// step decodes and executes exactly one instruction. It returns false when
// the story has quit.
func (e *Engine) step() bool {
	opcode := parseOpcode(e)
	return e.execute(&opcode)
}

func (e *Engine) storeResult(frame *CallStackFrame, val uint16) {
	dest := e.readIncPC(frame)
	e.writeVariable(dest, val, false)
}

// branchByteLength reports how many branch bytes follow the current PC
// without consuming them - used by save/restore (v<=3) to compute the
// address execution resumes at on a later restore, which is the same
// point normal (non-branching) flow would continue from.
func branchByteLength(e *Engine, pc uint32) uint32 {
	b1 := e.core.ReadByte(pc)
	if b1&0b0100_0000 != 0 {
		return 1
	}
	return 2
}

func (e *Engine) execute(opcode *Opcode) bool {
	frame := e.callStack.peek()

	switch opcode.operandCount {
	case OP0:
		return e.executeOP0(frame, opcode)
	case OP1:
		return e.executeOP1(frame, opcode)
	case OP2:
		return e.executeOP2(frame, opcode)
	case VAR:
		if opcode.opcodeForm == extForm {
			return e.executeEXT(frame, opcode)
		}
		return e.executeVAR(frame, opcode)
	}
	panic(Fault{Kind: UnsupportedOpcode, Message: "unreachable operand count"})
}

func (e *Engine) executeOP0(frame *CallStackFrame, opcode *Opcode) bool {
	switch opcode.opcodeNumber {
	case 0: // rtrue
		e.retValue(1)
	case 1: // rfalse
		e.retValue(0)
	case 2: // print
		s, n := zstring.Decode(e.core, frame.pc, e.alphabets)
		frame.pc += n
		e.appendText(s)
	case 3: // print_ret
		s, n := zstring.Decode(e.core, frame.pc, e.alphabets)
		frame.pc += n
		e.appendText(s + "\n")
		e.retValue(1)
	case 4: // nop
	case 5: // save
		e.opSave(frame)
	case 6: // restore
		e.opRestore(frame)
	case 7: // restart
		e.restart()
	case 8: // ret_popped
		e.retValue(frame.pop())
	case 9: // pop / catch
		if e.core.Version >= 5 {
			e.storeResult(frame, uint16(e.callStack.depth()))
		} else {
			frame.pop()
		}
	case 10: // quit
		e.host.Quit()
		return false
	case 11: // new_line
		e.appendText("\n")
	case 12: // show_status
		e.statusLine()
	case 13: // verify
		e.handleBranch(frame, e.core.Checksum() == e.core.FileChecksum)
	case 15: // piracy
		e.handleBranch(frame, true)
	default:
		panic(Fault{Kind: UnsupportedOpcode, Message: "unsupported 0OP opcode"})
	}
	return true
}

func (e *Engine) restart() {
	e.core.RestoreDynamicMemory(e.originalDynamicMemory)
	e.callStack = CallStack{}
	e.callStack.push(CallStackFrame{pc: uint32(e.core.FirstInstruction), locals: make([]uint16, 0)})
	e.streams = newStreams()
	e.undo = undoStack{}
}

// opSave implements the save opcode across the two protocols the Standard
// defines: v1-3 branches on success, v4+ stores 0/1.
func (e *Engine) opSave(frame *CallStackFrame) {
	if e.core.Version <= 3 {
		resumePC := frame.pc + branchByteLength(e, frame.pc)
		ok := e.doSave(resumePC)
		e.handleBranch(frame, ok)
		return
	}
	ok := e.doSave(frame.pc + 1)
	val := uint16(0)
	if ok {
		val = 1
	}
	e.storeResult(frame, val)
}

// opRestore mirrors opSave. On success the entire engine state - including
// the program counter - is replaced, so the old frame pointer and any
// branch/store bytes belonging to the restore instruction itself are moot.
func (e *Engine) opRestore(frame *CallStackFrame) {
	if e.core.Version <= 3 {
		newPC, ok := e.doRestore()
		if ok {
			e.callStack.peek().pc = newPC
			return
		}
		e.handleBranch(frame, false)
		return
	}
	newPC, ok := e.doRestore()
	if ok {
		e.callStack.peek().pc = newPC
		return
	}
	e.storeResult(frame, 0)
}

func (e *Engine) executeOP1(frame *CallStackFrame, opcode *Opcode) bool {
	op0 := func() uint16 { return opcode.operands[0].Value(e) }

	switch opcode.opcodeNumber {
	case 0: // jz
		e.handleBranch(frame, op0() == 0)
	case 1: // get_sibling
		obj := zobject.GetObject(e.core, op0(), e.alphabets)
		e.storeResult(frame, obj.Sibling)
		e.handleBranch(frame, obj.Sibling != 0)
	case 2: // get_child
		obj := zobject.GetObject(e.core, op0(), e.alphabets)
		e.storeResult(frame, obj.Child)
		e.handleBranch(frame, obj.Child != 0)
	case 3: // get_parent
		obj := zobject.GetObject(e.core, op0(), e.alphabets)
		e.storeResult(frame, obj.Parent)
	case 4: // get_prop_len
		e.storeResult(frame, zobject.GetPropertyLength(e.core, uint32(op0()), e.core.Version))
	case 5: // inc
		v := uint8(op0())
		e.writeVariable(v, e.readVariable(v, true)+1, true)
	case 6: // dec
		v := uint8(op0())
		e.writeVariable(v, e.readVariable(v, true)-1, true)
	case 7: // print_addr
		s, _ := zstring.Decode(e.core, uint32(op0()), e.alphabets)
		e.appendText(s)
	case 8: // call_1s
		e.call(opcode, function)
	case 9: // remove_obj
		zobject.RemoveFromTree(e.core, e.alphabets, op0())
	case 10: // print_obj
		e.appendText(zobject.GetObject(e.core, op0(), e.alphabets).Name)
	case 11: // ret
		e.retValue(op0())
	case 12: // jump
		frame.pc = uint32(int32(frame.pc) + int32(int16(op0())) - 2)
	case 13: // print_paddr
		addr := e.core.PackedAddress(uint32(op0()), true)
		s, _ := zstring.Decode(e.core, addr, e.alphabets)
		e.appendText(s)
	case 14: // load
		e.storeResult(frame, e.readVariable(uint8(op0()), true))
	case 15: // not (v<=4) / call_1n (v5+)
		if e.core.Version >= 5 {
			e.call(opcode, procedure)
		} else {
			e.storeResult(frame, ^op0())
		}
	default:
		panic(Fault{Kind: UnsupportedOpcode, Message: "unsupported 1OP opcode"})
	}
	return true
}

func (e *Engine) executeOP2(frame *CallStackFrame, opcode *Opcode) bool {
	op := func(i int) uint16 { return opcode.operands[i].Value(e) }

	switch opcode.opcodeNumber {
	case 1: // je
		a := op(0)
		result := false
		for i := 1; i < len(opcode.operands); i++ {
			if op(i) == a {
				result = true
				break
			}
		}
		e.handleBranch(frame, result)
	case 2: // jl
		e.handleBranch(frame, int16(op(0)) < int16(op(1)))
	case 3: // jg
		e.handleBranch(frame, int16(op(0)) > int16(op(1)))
	case 4: // dec_chk
		v := uint8(op(0))
		newVal := int16(e.readVariable(v, true)) - 1
		e.writeVariable(v, uint16(newVal), true)
		e.handleBranch(frame, newVal < int16(op(1)))
	case 5: // inc_chk
		v := uint8(op(0))
		newVal := int16(e.readVariable(v, true)) + 1
		e.writeVariable(v, uint16(newVal), true)
		e.handleBranch(frame, newVal > int16(op(1)))
	case 6: // jin
		child := op(0)
		parent := op(1)
		var actualParent uint16
		if child != 0 {
			actualParent = zobject.GetObject(e.core, child, e.alphabets).Parent
		}
		e.handleBranch(frame, actualParent == parent)
	case 7: // test
		bitmap := op(0)
		flags := op(1)
		e.handleBranch(frame, bitmap&flags == flags)
	case 8: // or
		e.storeResult(frame, op(0)|op(1))
	case 9: // and
		e.storeResult(frame, op(0)&op(1))
	case 10: // test_attr
		obj := zobject.GetObject(e.core, op(0), e.alphabets)
		e.handleBranch(frame, obj.TestAttribute(op(1)))
	case 11: // set_attr
		obj := zobject.GetObject(e.core, op(0), e.alphabets)
		obj.SetAttribute(op(1), e.core)
	case 12: // clear_attr
		obj := zobject.GetObject(e.core, op(0), e.alphabets)
		obj.ClearAttribute(op(1), e.core)
	case 13: // store
		e.writeVariable(uint8(op(0)), op(1), true)
	case 14: // insert_obj
		zobject.InsertInto(e.core, e.alphabets, op(0), op(1))
	case 15: // loadw
		e.storeResult(frame, e.core.ReadHalfWord(uint32(op(0))+2*uint32(op(1))))
	case 16: // loadb
		e.storeResult(frame, uint16(e.core.ReadByte(uint32(op(0))+uint32(op(1)))))
	case 17: // get_prop
		obj := zobject.GetObject(e.core, op(0), e.alphabets)
		prop := obj.GetProperty(e.core, uint8(op(1)))
		if len(prop.Data) == 1 {
			e.storeResult(frame, uint16(prop.Data[0]))
		} else {
			e.storeResult(frame, uint16(prop.Data[0])<<8|uint16(prop.Data[1]))
		}
	case 18: // get_prop_addr
		obj := zobject.GetObject(e.core, op(0), e.alphabets)
		e.storeResult(frame, uint16(obj.GetPropertyAddress(e.core, uint8(op(1)))))
	case 19: // get_next_prop
		obj := zobject.GetObject(e.core, op(0), e.alphabets)
		e.storeResult(frame, uint16(obj.GetNextProperty(e.core, uint8(op(1)))))
	case 20: // add
		e.storeResult(frame, uint16(int16(op(0))+int16(op(1))))
	case 21: // sub
		e.storeResult(frame, uint16(int16(op(0))-int16(op(1))))
	case 22: // mul
		e.storeResult(frame, uint16(int16(op(0))*int16(op(1))))
	case 23: // div
		denom := int16(op(1))
		if denom == 0 {
			panic(Fault{Kind: DivisionByZero, Message: "div by zero"})
		}
		e.storeResult(frame, uint16(int16(op(0))/denom))
	case 24: // mod
		denom := int16(op(1))
		if denom == 0 {
			panic(Fault{Kind: DivisionByZero, Message: "mod by zero"})
		}
		e.storeResult(frame, uint16(int16(op(0))%denom))
	case 25: // call_2s
		e.call(opcode, function)
	case 26: // call_2n
		e.call(opcode, procedure)
	case 27: // set_colour
		e.setColour(op(0), op(1))
	case 28: // throw
		value := op(0)
		depth := op(1)
		for e.callStack.depth() > int(depth) {
			e.callStack.pop()
		}
		e.retValue(value)
	default:
		panic(Fault{Kind: UnsupportedOpcode, Message: "unsupported 2OP opcode"})
	}
	return true
}

func (e *Engine) setColour(fg, bg uint16) {
	fgColor := e.screenModel.ZMachineColor(fg, true)
	bgColor := e.screenModel.ZMachineColor(bg, false)
	if e.screenModel.LowerWindowActive {
		e.screenModel.LowerWindowForeground = fgColor
		e.screenModel.LowerWindowBackground = bgColor
	} else {
		e.screenModel.UpperWindowForeground = fgColor
		e.screenModel.UpperWindowBackground = bgColor
	}
	e.host.SetColour(int(fg), int(bg))
}

func (e *Engine) executeVAR(frame *CallStackFrame, opcode *Opcode) bool {
	op := func(i int) uint16 { return opcode.operands[i].Value(e) }
	hasOp := func(i int) bool { return i < len(opcode.operands) }

	switch opcode.opcodeNumber {
	case 0: // call
		e.call(opcode, function)
	case 1: // storew
		e.core.WriteHalfWord(uint32(op(0))+2*uint32(op(1)), op(2))
	case 2: // storeb
		e.core.WriteByte(uint32(op(0))+uint32(op(1)), uint8(op(2)))
	case 3: // put_prop
		obj := zobject.GetObject(e.core, op(0), e.alphabets)
		obj.SetProperty(e.core, uint8(op(1)), op(2))
	case 4: // sread / aread
		e.sread(frame, opcode)
	case 5: // print_char
		e.appendText(string(zsciiOutputRune(op(0))))
	case 6: // print_num
		e.appendText(strconv.Itoa(int(int16(op(0)))))
	case 7: // random
		e.storeResult(frame, e.random(int16(op(0))))
	case 8: // push
		frame.push(op(0))
	case 9: // pull
		val := frame.pop()
		e.writeVariable(uint8(op(0)), val, true)
	case 10: // split_window
		lines := int(op(0))
		e.screenModel.UpperWindowHeight = lines
		e.host.SplitWindow(lines)
	case 11: // set_window
		w := op(0)
		e.screenModel.LowerWindowActive = w == 0
		e.host.SetWindow(int(w))
	case 12: // call_vs2
		e.call(opcode, function)
	case 13: // erase_window
		e.host.EraseWindow(int(int16(op(0))))
	case 14: // erase_line
		if op(0) == 1 {
			e.host.EraseLine()
		}
	case 15: // set_cursor
		row := int(op(0))
		col := 1
		if hasOp(1) {
			col = int(op(1))
		}
		e.screenModel.UpperWindowCursorY = row
		e.screenModel.UpperWindowCursorX = col
		e.host.SetCursor(row, col)
	case 16: // get_cursor
		addr := uint32(op(0))
		row, col := e.host.GetCursor()
		e.core.WriteHalfWord(addr, uint16(row))
		e.core.WriteHalfWord(addr+2, uint16(col))
	case 17: // set_text_style
		mask := uint8(op(0))
		if e.screenModel.LowerWindowActive {
			e.screenModel.LowerWindowTextStyle = TextStyle(mask)
		} else {
			e.screenModel.UpperWindowTextStyle = TextStyle(mask)
		}
		e.host.SetTextStyle(mask)
	case 18: // buffer_mode
		// Line wrapping is a rendering concern owned by the host, not core.
	case 19: // output_stream
		e.outputStream(int16(op(0)), opcode)
	case 20: // input_stream
		e.streams.CommandScript = op(0) == 1
	case 21: // sound_effect
		number := op(0)
		effect := uint16(0)
		volume := uint16(0)
		routine := uint16(0)
		if hasOp(1) {
			effect = op(1)
		}
		if hasOp(2) {
			volume = op(2)
		}
		if hasOp(3) {
			routine = op(3)
		}
		e.host.SoundEffect(number, effect, volume, routine)
	case 22: // read_char
		e.readChar(frame, opcode)
	case 23: // scan_table
		form := uint16(0x82)
		if hasOp(3) {
			form = op(3)
		}
		addr := ztable.ScanTable(e.core, op(0), uint32(op(1)), op(2), form)
		e.storeResult(frame, uint16(addr))
		e.handleBranch(frame, addr != 0)
	case 24: // not (v5+ VAR form)
		e.storeResult(frame, ^op(0))
	case 25: // call_vn
		e.call(opcode, procedure)
	case 26: // call_vn2
		e.call(opcode, procedure)
	case 27: // tokenise
		e.tokenise(opcode)
	case 28: // encode_text
		e.encodeText(op(0), op(1), op(2), op(3))
	case 29: // copy_table
		ztable.CopyTable(e.core, uint32(op(0)), uint32(op(1)), int32(int16(op(2))))
	case 30: // print_table
		width := op(1)
		height := uint16(1)
		skip := uint16(0)
		if hasOp(2) {
			height = op(2)
		}
		if hasOp(3) {
			skip = op(3)
		}
		e.appendText(ztable.PrintTable(e.core, uint32(op(0)), width, height, skip))
	case 31: // check_arg_count
		e.handleBranch(frame, int(op(0)) <= frame.argsSupplied)
	default:
		panic(Fault{Kind: UnsupportedOpcode, Message: "unsupported VAR opcode"})
	}
	return true
}

func (e *Engine) random(n int16) uint16 {
	switch {
	case n < 0:
		e.rng = newSeededRand(int64(n))
		return 0
	case n == 0:
		e.rng = newSeededRand(time.Now().UnixNano())
		return 0
	default:
		return uint16(e.rng.Int31n(int32(n)) + 1)
	}
}

func (e *Engine) outputStream(streamNum int16, opcode *Opcode) {
	switch streamNum {
	case 1:
		e.streams.Screen = true
	case -1:
		e.streams.Screen = false
	case 2:
		e.streams.Transcript = true
	case -2:
		e.streams.Transcript = false
	case 3:
		tableAddr := uint32(opcode.operands[1].Value(e))
		e.streams.MemoryStreams = append(e.streams.MemoryStreams, memoryStream{baseAddress: tableAddr, ptr: tableAddr + 2})
		e.streams.Memory = true
	case -3:
		if len(e.streams.MemoryStreams) > 0 {
			s := e.streams.MemoryStreams[len(e.streams.MemoryStreams)-1]
			e.streams.MemoryStreams = e.streams.MemoryStreams[:len(e.streams.MemoryStreams)-1]
			e.core.WriteHalfWord(s.baseAddress, uint16(s.ptr-s.baseAddress-2))
			e.streams.Memory = len(e.streams.MemoryStreams) > 0
		}
	case 4:
		e.streams.CommandScript = true
	case -4:
		e.streams.CommandScript = false
	}
}

func (e *Engine) encodeText(textAddr, length, fromOffset, codedAddr uint16) {
	b := make([]byte, length)
	for i := uint16(0); i < length; i++ {
		b[i] = e.core.ReadByte(uint32(textAddr) + uint32(fromOffset) + uint32(i))
	}
	encoded := zstring.Encode(e.core, string(b), e.alphabets, dictWordLength(e.core.Version))
	for i, by := range encoded {
		e.core.WriteByte(uint32(codedAddr)+uint32(i), by)
	}
}

func (e *Engine) tokenise(opcode *Opcode) {
	textAddr := uint32(opcode.operands[0].Value(e))
	parseAddr := uint32(0)
	if len(opcode.operands) > 1 {
		parseAddr = uint32(opcode.operands[1].Value(e))
	}

	dict := e.dictionary
	if len(opcode.operands) > 2 {
		customAddr := opcode.operands[2].Value(e)
		if customAddr != 0 {
			dict = dictionary.Parse(e.core, uint32(customAddr), e.alphabets)
		}
	}

	length := e.core.ReadByte(textAddr)
	textStart := textAddr + 1
	if e.core.Version >= 5 {
		length = e.core.ReadByte(textAddr + 1)
		textStart = textAddr + 2
	}
	b := make([]byte, length)
	for i := uint8(0); i < length; i++ {
		b[i] = e.core.ReadByte(textStart + uint32(i))
	}

	words := dictionary.Tokenise(e.core, e.alphabets, string(b), dict, dictWordLength(e.core.Version))
	e.writeParseBuffer(parseAddr, words, uint8(textStart-textAddr))
}

func (e *Engine) writeParseBuffer(parseAddr uint32, words []dictionary.Word, textOffsetBase uint8) {
	if parseAddr == 0 {
		return
	}
	maxWords := e.core.ReadByte(parseAddr)
	if uint8(len(words)) > maxWords {
		words = words[:maxWords]
	}
	e.core.WriteByte(parseAddr+1, uint8(len(words)))
	ptr := parseAddr + 2
	for _, w := range words {
		e.core.WriteHalfWord(ptr, w.DictionaryAddress)
		e.core.WriteByte(ptr+2, uint8(len(w.Text)))
		e.core.WriteByte(ptr+3, textOffsetBase+w.StartOffset)
		ptr += 4
	}
}

// zsciiOutputRune maps a ZSCII output code to a printable rune. The
// printable ASCII range and newline pass through directly; the extended
// Unicode translation table is handled separately by print_unicode.
func zsciiOutputRune(code uint16) rune {
	if code == 13 {
		return '\n'
	}
	return rune(code)
}

func (e *Engine) executeEXT(frame *CallStackFrame, opcode *Opcode) bool {
	op := func(i int) uint16 { return opcode.operands[i].Value(e) }

	switch opcode.opcodeByte {
	case 0x00: // save
		ok := e.doSave(frame.pc + 1)
		val := uint16(0)
		if ok {
			val = 1
		}
		e.storeResult(frame, val)
	case 0x01: // restore
		newPC, ok := e.doRestore()
		if ok {
			e.callStack.peek().pc = newPC
			return true
		}
		e.storeResult(frame, 0)
	case 0x02: // log_shift
		shift := int16(op(1))
		if shift >= 0 {
			e.storeResult(frame, op(0)<<uint16(shift))
		} else {
			e.storeResult(frame, op(0)>>uint16(-shift))
		}
	case 0x04: // set_font
		prev := e.host.SetFont(int(op(0)))
		e.screenModel.CurrentFont = Font(op(0))
		e.storeResult(frame, uint16(prev))
	case 0x03: // art_shift
		shift := int16(op(1))
		v := int16(op(0))
		if shift >= 0 {
			e.storeResult(frame, uint16(v<<uint16(shift)))
		} else {
			e.storeResult(frame, uint16(v>>uint16(-shift)))
		}
	case 0x09: // save_undo
		e.saveUndo()
		e.storeResult(frame, 1)
	case 0x0a: // restore_undo
		if e.restoreUndo() == 2 {
			// The restored top frame is paused on save_undo's store byte,
			// so the 2 becomes that save_undo's result.
			e.storeResult(e.callStack.peek(), 2)
			return true
		}
		e.storeResult(frame, 0)
	case 0x0b: // print_unicode
		e.appendText(string(rune(op(0))))
	case 0x0c: // check_unicode
		e.storeResult(frame, 0b11)
	case 0x0d: // set_true_colour
		e.setTrueColour(op(0), op(1))
	default:
		panic(Fault{Kind: UnsupportedOpcode, Message: "unsupported extended opcode"})
	}
	return true
}

func rgb555ToColor(v uint16) Color {
	return Color{
		r: int(v&0x1f) * 255 / 31,
		g: int((v>>5)&0x1f) * 255 / 31,
		b: int((v>>10)&0x1f) * 255 / 31,
	}
}

func (e *Engine) setTrueColour(fg, bg uint16) {
	fgColor := rgbCurrentOr(fg, e, true)
	bgColor := rgbCurrentOr(bg, e, false)
	if e.screenModel.LowerWindowActive {
		e.screenModel.LowerWindowForeground = fgColor
		e.screenModel.LowerWindowBackground = bgColor
	} else {
		e.screenModel.UpperWindowForeground = fgColor
		e.screenModel.UpperWindowBackground = bgColor
	}
}

// rgbCurrentOr resolves the true-colour sentinels 0xfffe (current colour,
// unchanged) and 0xffff (default colour) against the active window;
// anything else is decoded as a literal 15-bit RGB triple.
func rgbCurrentOr(v uint16, e *Engine, foreground bool) Color {
	switch v {
	case 0xfffe:
		if foreground {
			if e.screenModel.LowerWindowActive {
				return e.screenModel.LowerWindowForeground
			}
			return e.screenModel.UpperWindowForeground
		}
		if e.screenModel.LowerWindowActive {
			return e.screenModel.LowerWindowBackground
		}
		return e.screenModel.UpperWindowBackground
	case 0xffff:
		return e.screenModel.ZMachineColor(1, foreground)
	default:
		return rgb555ToColor(v)
	}
}
