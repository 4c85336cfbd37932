package zmachine

type OperandType int
type OpcodeForm int
type OperandCount int

const (
	largeConstant OperandType = 0b00
	smallConstant OperandType = 0b01
	variable      OperandType = 0b10
	omitted       OperandType = 0b11
)

const (
	longForm  OpcodeForm = 0b00
	extForm   OpcodeForm = 0b01
	shortForm OpcodeForm = 0b10
	varForm   OpcodeForm = 0b11
)

const (
	OP0 OperandCount = iota
	OP1
	OP2
	VAR
)

// Operand is a single decoded operand: a literal value, or a reference into
// variable space resolved lazily against the engine's current frame.
type Operand struct {
	operandType OperandType
	value       uint16
}

func (operand *Operand) Value(e *Engine) uint16 {
	switch operand.operandType {
	case largeConstant, smallConstant:
		return operand.value
	case variable:
		return e.readVariable(uint8(operand.value), false)
	default:
		return 0
	}
}

// Opcode is a fully decoded instruction: its form, operand count, opcode
// number within that form/count combination, and its operands. The
// post-instruction store/branch bytes are consumed lazily by the dispatcher,
// not here, since not every opcode has them.
type Opcode struct {
	opcodeByte   uint8
	operandCount OperandCount
	opcodeForm   OpcodeForm
	opcodeNumber uint8
	operands     []Operand
}

// parseVariableOperands reads the operand-type byte(s) following a
// variable-form opcode. call_vs2/call_vn2 carry a second type byte and
// support up to 8 operands instead of 4.
func parseVariableOperands(e *Engine, frame *CallStackFrame, opcode *Opcode) {
	operandTypeByte := e.readIncPC(frame)
	operandTypeByteExtended := uint8(0)
	maxOperands := 4

	if opcode.opcodeForm == varForm && (opcode.opcodeNumber == 12 || opcode.opcodeNumber == 26) {
		operandTypeByteExtended = e.readIncPC(frame)
		maxOperands = 8
	}

	for ix := 0; ix < maxOperands; ix++ {
		var opType OperandType
		if ix < 4 {
			opType = OperandType((operandTypeByte >> (2 * (3 - ix))) & 0b11)
		} else {
			opType = OperandType((operandTypeByteExtended >> (2 * (7 - ix))) & 0b11)
		}

		if opType == omitted {
			break
		}

		switch opType {
		case smallConstant, variable:
			opcode.operands = append(opcode.operands, Operand{operandType: opType, value: uint16(e.readIncPC(frame))})
		case largeConstant:
			opcode.operands = append(opcode.operands, Operand{operandType: opType, value: e.readHalfWordIncPC(frame)})
		}
	}
}

// parseOpcode decodes the instruction at the current frame's program
// counter: form, operand count, opcode number, and operands.
func parseOpcode(e *Engine) Opcode {
	frame := e.callStack.peek()
	opcodeByte := e.readIncPC(frame)
	opcode := Opcode{
		opcodeForm: OpcodeForm(opcodeByte >> 6),
		opcodeByte: opcodeByte,
	}

	switch {
	case opcodeByte == 0xbe && e.core.Version >= 5:
		opcode.opcodeByte = e.readIncPC(frame)
		opcode.opcodeNumber = opcode.opcodeByte
		opcode.opcodeForm = extForm
		opcode.operandCount = VAR
		parseVariableOperands(e, frame, &opcode)

	case opcode.opcodeForm == varForm:
		opcode.opcodeNumber = opcodeByte & 0b1_1111
		opcode.operandCount = VAR
		if (opcodeByte>>5)&1 == 0 {
			opcode.operandCount = OP2
		}
		parseVariableOperands(e, frame, &opcode)

	case opcode.opcodeForm == shortForm:
		opcode.opcodeNumber = opcodeByte & 0b1111
		operandType := (opcodeByte >> 4) & 0b11

		switch operandType {
		case 0b00:
			opcode.operands = append(opcode.operands, Operand{operandType: OperandType(operandType), value: e.readHalfWordIncPC(frame)})
			opcode.operandCount = OP1
		case 0b01, 0b10:
			opcode.operands = append(opcode.operands, Operand{operandType: OperandType(operandType), value: uint16(e.readIncPC(frame))})
			opcode.operandCount = OP1
		case 0b11:
			opcode.operandCount = OP0
		}

	default: // long form
		opcode.opcodeNumber = opcodeByte & 0b1_1111
		opcode.opcodeForm = longForm
		opcode.operandCount = OP2

		op1Type := smallConstant
		op2Type := smallConstant
		if (opcodeByte>>6)&1 == 1 {
			op1Type = variable
		}
		if (opcodeByte>>5)&1 == 1 {
			op2Type = variable
		}

		for _, t := range []OperandType{op1Type, op2Type} {
			opcode.operands = append(opcode.operands, Operand{operandType: t, value: uint16(e.readIncPC(frame))})
		}
	}

	return opcode
}
