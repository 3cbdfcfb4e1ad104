package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single instruction of the stack machine.
type Opcode byte

// Stack Operations
const (
	OpNOP Opcode = 0x00 // no operation
	OpPOP Opcode = 0x01 // discard top of stack
	OpDUP Opcode = 0x02 // duplicate top of stack
)

// Push Constants
const (
	OpPushConst Opcode = 0x10 // push constant (A = constant index)
)

// Variable Operations. Stores leave the stored value on the stack.
const (
	OpLoadArg     Opcode = 0x20 // push argument (A = parameter index)
	OpLoadLocal   Opcode = 0x21 // push local (A = slot)
	OpStoreLocal  Opcode = 0x22 // store top into local (A = slot)
	OpLoadStatic  Opcode = 0x23 // push static field (A = field index)
	OpStoreStatic Opcode = 0x24 // store top into static field (A = field index)
	OpLoadNative  Opcode = 0x25 // push library field (A = native index)
)

// Arithmetic and bitwise operations, typed by T.
const (
	OpAdd   Opcode = 0x30
	OpSub   Opcode = 0x31
	OpMul   Opcode = 0x32
	OpDiv   Opcode = 0x33
	OpRem   Opcode = 0x34
	OpNeg   Opcode = 0x35
	OpAnd   Opcode = 0x36
	OpOr    Opcode = 0x37
	OpXor   Opcode = 0x38
	OpShl   Opcode = 0x39
	OpShr   Opcode = 0x3A
	OpCompl Opcode = 0x3B // bitwise complement
)

// Comparisons, typed by T. Each pops two values and pushes a bool.
const (
	OpCeq Opcode = 0x40 // equal
	OpClt Opcode = 0x41 // less than
	OpCgt Opcode = 0x42 // greater than
)

// Conversions
const (
	OpConvert Opcode = 0x50 // numeric conversion (A = source tag, T = target tag)
	OpBox     Opcode = 0x51 // wrap as object (A = type index)
	OpUnbox   Opcode = 0x52 // checked unwrap (A = type index)
)

// Arrays and strings
const (
	OpNewArray  Opcode = 0x60 // pop size, push zeroed array (A = element type index)
	OpLoadElem  Opcode = 0x61 // pop index and array/string, push element
	OpStoreElem Opcode = 0x62 // pop value, index, array; store; push value
	OpLength    Opcode = 0x63 // pop array/string, push i32 length
)

// Calls
const (
	OpCall       Opcode = 0x70 // call method (A = method index)
	OpCallNative Opcode = 0x71 // call library routine (A = native index)
)

// Control Flow
const (
	OpJump     Opcode = 0x80 // unconditional jump (A = target instruction)
	OpJumpTrue Opcode = 0x81 // pop, jump if true (A = target instruction)
)

// Returns
const (
	OpReturn     Opcode = 0x90 // return top of stack
	OpReturnVoid Opcode = 0x91 // return without a value
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OperandKind says what the A operand of an instruction refers to.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandConst
	OperandArg
	OperandLocal
	OperandStatic
	OperandNative
	OperandMethod
	OperandType
	OperandTag
	OperandTarget
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name        string      // human-readable name
	Operand     OperandKind // meaning of the A operand
	Typed       bool        // whether T is significant
	StackEffect int         // net effect on stack (Variable when it depends on the callee)
}

// Variable marks a stack effect that depends on the call target.
const Variable = -99

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	// Stack operations
	OpNOP: {"nop", OperandNone, false, 0},
	OpPOP: {"pop", OperandNone, false, -1},
	OpDUP: {"dup", OperandNone, false, 1},

	// Push constants
	OpPushConst: {"push", OperandConst, false, 1},

	// Variables
	OpLoadArg:     {"ldarg", OperandArg, false, 1},
	OpLoadLocal:   {"ldloc", OperandLocal, false, 1},
	OpStoreLocal:  {"stloc", OperandLocal, false, 0},
	OpLoadStatic:  {"ldsfld", OperandStatic, false, 1},
	OpStoreStatic: {"stsfld", OperandStatic, false, 0},
	OpLoadNative:  {"ldnative", OperandNative, false, 1},

	// Arithmetic
	OpAdd:   {"add", OperandNone, true, -1},
	OpSub:   {"sub", OperandNone, true, -1},
	OpMul:   {"mul", OperandNone, true, -1},
	OpDiv:   {"div", OperandNone, true, -1},
	OpRem:   {"rem", OperandNone, true, -1},
	OpNeg:   {"neg", OperandNone, true, 0},
	OpAnd:   {"and", OperandNone, true, -1},
	OpOr:    {"or", OperandNone, true, -1},
	OpXor:   {"xor", OperandNone, true, -1},
	OpShl:   {"shl", OperandNone, true, -1},
	OpShr:   {"shr", OperandNone, true, -1},
	OpCompl: {"compl", OperandNone, true, 0},

	// Comparisons
	OpCeq: {"ceq", OperandNone, true, -1},
	OpClt: {"clt", OperandNone, true, -1},
	OpCgt: {"cgt", OperandNone, true, -1},

	// Conversions
	OpConvert: {"conv", OperandTag, true, 0},
	OpBox:     {"box", OperandType, false, 0},
	OpUnbox:   {"unbox", OperandType, false, 0},

	// Arrays
	OpNewArray:  {"newarr", OperandType, false, 0},
	OpLoadElem:  {"ldelem", OperandNone, false, -1},
	OpStoreElem: {"stelem", OperandNone, false, -2},
	OpLength:    {"len", OperandNone, false, 0},

	// Calls
	OpCall:       {"call", OperandMethod, false, Variable},
	OpCallNative: {"callnative", OperandNative, false, Variable},

	// Control flow
	OpJump:     {"br", OperandTarget, false, 0},
	OpJumpTrue: {"brtrue", OperandTarget, false, -1},

	// Returns
	OpReturn:     {"ret", OperandNone, false, -1},
	OpReturnVoid: {"retvoid", OperandNone, false, 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("unknown_%02x", byte(op))}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// IsJump reports whether the A operand is a branch target.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpTrue
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// Instruction is one decoded instruction. Operands live inline rather than
// in a byte stream so branch targets can be patched by index.
type Instruction struct {
	Op Opcode `cbor:"1,keyasint"`
	A  int32  `cbor:"2,keyasint,omitempty"`
	T  Tag    `cbor:"3,keyasint,omitempty"`
}

// Ins builds an instruction with an operand.
func Ins(op Opcode, a int) Instruction {
	return Instruction{Op: op, A: int32(a)}
}

// Typed builds an instruction whose behaviour depends on an operand tag.
func Typed(op Opcode, t Tag) Instruction {
	return Instruction{Op: op, T: t}
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction renders one instruction at position pos, resolving
// operands against m when it is non-nil.
func DisassembleInstruction(m *Module, pos int, ins Instruction) string {
	info := ins.Op.Info()
	name := info.Name
	if info.Typed && ins.Op != OpConvert {
		name += "." + ins.T.String()
	}

	switch info.Operand {
	case OperandNone:
		return fmt.Sprintf("%04d  %s", pos, name)
	case OperandTarget:
		return fmt.Sprintf("%04d  %s %04d", pos, name, ins.A)
	case OperandTag:
		return fmt.Sprintf("%04d  %s %s -> %s", pos, name, Tag(ins.A), ins.T)
	}

	detail := ""
	if m != nil {
		detail = m.describeOperand(info.Operand, int(ins.A))
	}
	if detail == "" {
		return fmt.Sprintf("%04d  %s %d", pos, name, ins.A)
	}
	return fmt.Sprintf("%04d  %s %d ; %s", pos, name, ins.A, detail)
}

// Disassemble returns a listing of a method's code.
func Disassemble(m *Module, code []Instruction) string {
	lines := make([]string, len(code))
	for i, ins := range code {
		lines[i] = DisassembleInstruction(m, i, ins)
	}
	return strings.Join(lines, "\n")
}

// DisassembleModule lists every field and method of a module.
func DisassembleModule(m *Module) string {
	var sb strings.Builder
	if m.ID != "" {
		fmt.Fprintf(&sb, "; module %s\n", m.ID)
	}
	for i, f := range m.Fields {
		fmt.Fprintf(&sb, ".field %d %s: %s\n", i, f.Name, f.Type)
	}
	for i, meth := range m.Methods {
		marks := ""
		if i == m.Init {
			marks += " .init"
		}
		if i == m.Entry {
			marks += " .entry"
		}
		fmt.Fprintf(&sb, ".method %d %s(%s): %s%s\n", i, meth.Name, strings.Join(meth.Params, ", "), meth.Result, marks)
		for j, l := range meth.Locals {
			fmt.Fprintf(&sb, "  .local %d %s: %s\n", j, l.Name, l.Type)
		}
		if len(meth.Code) > 0 {
			for j, ins := range meth.Code {
				sb.WriteString("  ")
				sb.WriteString(DisassembleInstruction(m, j, ins))
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

func (m *Module) describeOperand(kind OperandKind, a int) string {
	switch kind {
	case OperandConst:
		if a >= 0 && a < len(m.Constants) {
			return m.Constants[a].String()
		}
	case OperandStatic:
		if a >= 0 && a < len(m.Fields) {
			return m.Fields[a].Name
		}
	case OperandNative:
		if a >= 0 && a < len(m.Natives) {
			return m.Natives[a]
		}
	case OperandMethod:
		if a >= 0 && a < len(m.Methods) {
			return m.Methods[a].Name
		}
	case OperandType:
		if a >= 0 && a < len(m.Types) {
			return m.Types[a]
		}
	}
	return ""
}
