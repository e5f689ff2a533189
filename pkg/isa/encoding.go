package isa

// EncFlags classifies an instruction's encoding family. The DATA_TRANSFER
// group is further qualified by exactly one of REG, IMM or MEM8/16/32/64.
type EncFlags uint32

const (
	OptDataTransfer EncFlags = 1 << iota
	OptReg
	OptImm
	OptMem8
	OptMem16
	OptMem32
	OptMem64
	OptSysControl
	OptJmp
	OptOpcodeReg
)

var encFlagNames = []struct {
	bit  EncFlags
	name string
}{
	{OptDataTransfer, "DATA_TRANSFER"},
	{OptReg, "REG"},
	{OptImm, "IMM"},
	{OptMem8, "MEM8"},
	{OptMem16, "MEM16"},
	{OptMem32, "MEM32"},
	{OptMem64, "MEM64"},
	{OptSysControl, "SYS_CONTROL"},
	{OptJmp, "JMP"},
	{OptOpcodeReg, "OPCODE_REG"},
}

func (f EncFlags) String() string {
	out := ""
	for _, entry := range encFlagNames {
		if f&entry.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += entry.name
		}
	}
	if out == "" {
		return "(none)"
	}
	return out
}

// MemSize returns the {00,01,10,11} size field implied by the MEM* bits
// of f, used as the "mem_size" component of transfer bytes.
func (f EncFlags) MemSize() uint8 {
	switch {
	case f&OptMem8 != 0:
		return 0b00
	case f&OptMem16 != 0:
		return 0b01
	case f&OptMem32 != 0:
		return 0b10
	case f&OptMem64 != 0:
		return 0b11
	}
	return 0b11
}

// MaxOperands bounds every encoding template's operand slots.
const MaxOperands = 3

// Template describes one legal encoding for a mnemonic.
type Template struct {
	Opcode           uint8
	HasExtensionByte bool
	Options          EncFlags
	Operands         [MaxOperands]OperandClass
}

// NumOperands returns how many of the template's slots are actually used
// (a zero mask terminates the active slots).
func (t Template) NumOperands() int {
	n := 0
	for _, op := range t.Operands {
		if op == 0 {
			break
		}
		n++
	}
	return n
}

// Table is a mnemonic -> ordered list of templates. First match wins
// during selection (§4.5.2).
type Table map[string][]Template

// Global is the process-wide encoding table, built once when the package
// is initialized (not on first use). It is read-only after init and safe
// to share by reference across a run.
var Global = buildTable()

const (
	opNOP = 0x00
	opMOV = 0x05 // reg/reg transfer base opcode; imm8/16/32/64 forms are base+1..base+4, per ImmOpcodeOffset
	opADD = 0x20
	opSUB = 0x21
	opMUL = 0x22
	opDIV = 0x23
	opAND = 0x24
	opOR  = 0x25
	opXOR = 0x26
	opSHL = 0x27
	opSHR = 0x28
	opCMP = 0x30
	opJMP = 0x10
	opJZ  = 0x11
	opJNZ = 0x12
	opCALL = 0x13
	opRET  = 0x14
	opHALT = 0xF0
	opSYSCALL = 0xF1
	opPUSH = 0x40
	opPOP  = 0x41
)

// ImmOpcodeOffset returns the amount a DATA_TRANSFER mnemonic's base
// (reg/reg) opcode is bumped by for the given resolved source class:
// 0 for reg/reg and the ADDR/DISP/INDEX forms, 1..4 for IMM8/16/32/64.
// Mirrors the per-width opcode spread of the mov family (0x05 reg/reg,
// 0x06/07/08/09 for imm8/16/32/64).
func ImmOpcodeOffset(class OperandClass) uint8 {
	switch class {
	case ClassIMM8:
		return 1
	case ClassIMM16:
		return 2
	case ClassIMM32:
		return 3
	case ClassIMM64:
		return 4
	default:
		return 0
	}
}

func buildTable() Table {
	t := Table{}

	// DATA_TRANSFER family: dst is always the first operand (GP register),
	// the second operand selects reg/imm/addr/disp/index sub-encoding at
	// emission time (§4.5.4). A single template per mnemonic covers all
	// five sub-encodings because the slot mask below accepts them all;
	// the actual opcode byte written is tmpl.Opcode + ImmOpcodeOffset.
	dataTransfer := func(opcode uint8, ext bool) []Template {
		return []Template{{
			Opcode:           opcode,
			HasExtensionByte: ext,
			Options:          OptDataTransfer | OptMem64,
			Operands: [MaxOperands]OperandClass{
				ClassGPREG,
				ClassGPREG | ClassIMM | ClassADDR | ClassDISP | ClassINDEX,
			},
		}}
	}

	t["mov"] = dataTransfer(opMOV, false)
	t["ld"] = dataTransfer(opMOV, true)

	aluReg := func(opcode uint8) []Template {
		return []Template{{
			Opcode:  opcode,
			Options: OptDataTransfer | OptReg,
			Operands: [MaxOperands]OperandClass{
				ClassGPREG, ClassGPREG, ClassGPREG,
			},
		}}
	}
	t["add"] = aluReg(opADD)
	t["sub"] = aluReg(opSUB)
	t["mul"] = aluReg(opMUL)
	t["div"] = aluReg(opDIV)
	t["and"] = aluReg(opAND)
	t["or"] = aluReg(opOR)
	t["xor"] = aluReg(opXOR)
	t["shl"] = aluReg(opSHL)
	t["shr"] = aluReg(opSHR)
	t["cmp"] = aluReg(opCMP)

	jmpFamily := func(opcode uint8) []Template {
		return []Template{{
			Opcode:  opcode,
			Options: OptJmp,
			Operands: [MaxOperands]OperandClass{
				ClassDISP32,
			},
		}}
	}
	t["jmp"] = jmpFamily(opJMP)
	t["jz"] = jmpFamily(opJZ)
	t["jnz"] = jmpFamily(opJNZ)
	t["call"] = jmpFamily(opCALL)

	t["ret"] = []Template{{Opcode: opRET, Options: OptJmp, Operands: [MaxOperands]OperandClass{}}}
	t["nop"] = []Template{{Opcode: opNOP, Operands: [MaxOperands]OperandClass{}}}
	t["halt"] = []Template{{Opcode: opHALT, Operands: [MaxOperands]OperandClass{}}}

	t["syscall"] = []Template{{
		Opcode:  opSYSCALL,
		Options: OptSysControl,
		Operands: [MaxOperands]OperandClass{
			ClassIMM8,
		},
	}}

	pushPop := func(opcode uint8) []Template {
		return []Template{{
			Opcode:  opcode,
			Options: OptOpcodeReg,
			Operands: [MaxOperands]OperandClass{
				ClassGPREG,
			},
		}}
	}
	t["push"] = pushPop(opPUSH)
	t["pop"] = pushPop(opPOP)

	return t
}

// Lookup returns the ordered template list for a mnemonic.
func Lookup(mnemonic string) ([]Template, bool) {
	templates, ok := Global[mnemonic]
	return templates, ok
}

// Mnemonics returns every recognized mnemonic, used to seed the lexer's
// classification set and the --map dump.
func Mnemonics() []string {
	names := make([]string, 0, len(Global))
	for name := range Global {
		names = append(names, name)
	}
	return names
}
