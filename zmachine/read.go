package zmachine

import (
	"strings"

	"github.com/wrenfield/zigzag/dictionary"
)

func dictionaryTokenise(e *Engine, text string) []dictionary.Word {
	return dictionary.Tokenise(e.core, e.alphabets, text, e.dictionary, dictWordLength(e.core.Version))
}

// sread (aread on v5+) reads a line of input from the host, tokenises it
// against the dictionary, and fills in the text/parse buffers. v5+ adds an
// optional timeout and a callback routine run synchronously to completion
// when the read times out; the read is then treated as abandoned rather
// than resumed, a deliberate simplification over full interrupt semantics.
func (e *Engine) sread(frame *CallStackFrame, opcode *Opcode) {
	e.statusLine()

	op := func(i int) uint16 { return opcode.operands[i].Value(e) }
	hasOp := func(i int) bool { return i < len(opcode.operands) }

	textBufferAddr := uint32(op(0))
	parseBufferAddr := uint32(0)
	if hasOp(1) {
		parseBufferAddr = uint32(op(1))
	}
	timeout := 0
	callbackPC := uint32(0)
	if hasOp(2) {
		timeout = int(op(2))
	}
	if hasOp(3) && op(3) != 0 {
		callbackPC = e.core.PackedAddress(uint32(op(3)), false)
	}

	maxChars := int(e.core.ReadByte(textBufferAddr))
	textStart := textBufferAddr + 1
	initial := ""
	if e.core.Version >= 5 {
		existingLen := e.core.ReadByte(textBufferAddr + 1)
		b := make([]byte, existingLen)
		for i := uint8(0); i < existingLen; i++ {
			b[i] = e.core.ReadByte(textBufferAddr + 2 + uint32(i))
		}
		initial = string(b)
		textStart = textBufferAddr + 2
	}

	line, timedOut := e.host.Read(maxChars, initial, timeout, callbackPC)
	if timedOut {
		if callbackPC != 0 {
			e.invokeRoutine(callbackPC)
		}
		line = ""
	}

	line = strings.ToLower(line)
	if len(line) > maxChars {
		line = line[:maxChars]
	}

	for i := 0; i < len(line); i++ {
		e.core.WriteByte(textStart+uint32(i), line[i])
	}
	if e.core.Version >= 5 {
		e.core.WriteByte(textBufferAddr+1, uint8(len(line)))
	} else {
		e.core.WriteByte(textStart+uint32(len(line)), 0)
	}

	if parseBufferAddr != 0 {
		words := dictionaryTokenise(e, line)
		e.writeParseBuffer(parseBufferAddr, words, uint8(textStart-textBufferAddr))
	}

	if e.core.Version >= 5 {
		terminator := uint16(13)
		if timedOut {
			terminator = 0
		}
		e.storeResult(frame, terminator)
	}
}

func (e *Engine) readChar(frame *CallStackFrame, opcode *Opcode) {
	hasOp := func(i int) bool { return i < len(opcode.operands) }
	op := func(i int) uint16 { return opcode.operands[i].Value(e) }

	timeout := 0
	callbackPC := uint32(0)
	if hasOp(1) {
		timeout = int(op(1))
	}
	if hasOp(2) && op(2) != 0 {
		callbackPC = e.core.PackedAddress(uint32(op(2)), false)
	}

	char, timedOut := e.host.ReadChar(timeout, callbackPC)
	if timedOut {
		if callbackPC != 0 {
			e.invokeRoutine(callbackPC)
		}
		char = 0
	}
	e.storeResult(frame, uint16(char))
}
