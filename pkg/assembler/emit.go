package assembler

import (
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/section"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
)

const extensionByte = 0x0F

func (a *Assembler) recordForwardRef(kind isa.RelocationKind, offset uint64, op ParsedOperand, line int) {
	a.forwardRefs = append(a.forwardRefs, forwardRef{
		RelocKind: kind,
		Section:   a.currentSection,
		Offset:    offset,
		Expr:      op.Node,
		Line:      line,
	})
}

// emit dispatches on the template's EncFlags to one of the instruction
// families documented in §4.5.4/§6.
func (a *Assembler) emit(sect *section.Section, mnemonicTok token.Token, tmpl isa.Template, operands []ParsedOperand, resolved []isa.OperandClass) error {
	opcodeOffset := sect.Cursor()
	if tmpl.HasExtensionByte {
		sect.AppendU8(extensionByte)
	}

	isDataTransfer := tmpl.Options&isa.OptDataTransfer != 0 && tmpl.Options&isa.OptReg == 0
	if isDataTransfer {
		sect.AppendU8(tmpl.Opcode + isa.ImmOpcodeOffset(resolved[1]))
	} else {
		sect.AppendU8(tmpl.Opcode)
	}

	switch {
	case tmpl.Options&isa.OptDataTransfer != 0 && tmpl.Options&isa.OptReg != 0:
		return a.emitRegTriple(sect, operands)

	case isDataTransfer:
		return a.emitDataTransfer(sect, operands[0], operands[1], resolved[1], mnemonicTok.Line)

	case tmpl.Options&isa.OptJmp != 0:
		return a.emitJmp(sect, operands, mnemonicTok.Line)

	case tmpl.Options&isa.OptSysControl != 0:
		return a.emitSysControl(sect, operands[0], mnemonicTok.Line)

	case tmpl.Options&isa.OptOpcodeReg != 0:
		return a.emitOpcodeReg(sect, opcodeOffset, operands[0])

	default:
		// No-operand instructions (nop, halt): opcode alone suffices.
		return nil
	}
}

// emitRegTriple handles the ALU family: three GP-register operands
// packed two-per-byte (a layout not dictated by §6, which only
// documents the DATA_TRANSFER/JMP/SYS_CONTROL/OPCODE_REG byte shapes;
// this one follows the same dst<<4|src nibble-packing idiom).
func (a *Assembler) emitRegTriple(sect *section.Section, operands []ParsedOperand) error {
	dst := operands[0].Scalar.Register
	src1 := operands[1].Scalar.Register
	src2 := operands[2].Scalar.Register
	sect.AppendU8(uint8(dst.GPIndex()<<4) | uint8(src1.GPIndex()))
	sect.AppendU8(uint8(src2.GPIndex() << 4))
	return nil
}

// emitDataTransfer handles the two-operand DATA_TRANSFER family: dst is
// always a GP register, the second operand's resolved class selects the
// sub-encoding.
func (a *Assembler) emitDataTransfer(sect *section.Section, dstOp, srcOp ParsedOperand, srcClass isa.OperandClass, line int) error {
	dst := uint8(dstOp.Scalar.Register.GPIndex())
	const memSize64 = 0b11

	switch srcClass {
	case isa.ClassGPREG:
		sect.AppendU8(dst<<4 | uint8(srcOp.Scalar.Register.GPIndex()))
		return nil

	case isa.ClassIMM8, isa.ClassIMM16, isa.ClassIMM32, isa.ClassIMM64:
		size := immSizeField(srcClass)
		sect.AppendU8(dst<<4 | size<<2)
		return a.emitImmediatePayload(sect, srcOp, srcClass, line)

	case isa.ClassADDR64:
		sect.AppendU8(dst<<4 | 0b11<<2 | memSize64)
		offset := sect.Cursor()
		if srcOp.NeedsRelocation {
			sect.AppendU64(0)
			a.recordForwardRef(isa.RelocAddr64, offset, srcOp, line)
			return nil
		}
		sect.AppendU64(srcOp.Scalar.Immediate)
		return nil

	case isa.ClassDISP32:
		sect.AppendU8(dst<<4 | 0b00<<2 | memSize64)
		return a.emitPCRelDisp32(sect, srcOp, line)

	case isa.ClassINDEX:
		return a.emitMemoryIndex(sect, dst, memSize64, srcOp, line)
	}

	return fmt.Errorf("unsupported DATA_TRANSFER source class %v", srcClass)
}

func immSizeField(class isa.OperandClass) uint8 {
	switch class {
	case isa.ClassIMM8:
		return 0b00
	case isa.ClassIMM16:
		return 0b01
	case isa.ClassIMM32:
		return 0b10
	default:
		return 0b11
	}
}

func (a *Assembler) emitImmediatePayload(sect *section.Section, op ParsedOperand, class isa.OperandClass, line int) error {
	if op.NeedsRelocation {
		kind, err := relocKindForClass(class)
		if err != nil {
			return err
		}
		offset := sect.Cursor()
		switch class {
		case isa.ClassIMM8:
			sect.AppendU8(0)
		case isa.ClassIMM16:
			sect.AppendU16(0)
		case isa.ClassIMM32:
			sect.AppendU32(0)
		default:
			sect.AppendU64(0)
		}
		a.recordForwardRef(kind, offset, op, line)
		return nil
	}

	switch class {
	case isa.ClassIMM8:
		sect.AppendU8(uint8(op.Scalar.Immediate))
	case isa.ClassIMM16:
		sect.AppendU16(uint16(op.Scalar.Immediate))
	case isa.ClassIMM32:
		sect.AppendU32(uint32(op.Scalar.Immediate))
	default:
		sect.AppendU64(op.Scalar.Immediate)
	}
	return nil
}

// emitPCRelDisp32 writes the 4-byte PC-relative displacement
// `target - (cursor+4)`, or zero plus a deferred PC32 forward reference.
func (a *Assembler) emitPCRelDisp32(sect *section.Section, op ParsedOperand, line int) error {
	offset := sect.Cursor()
	if op.NeedsRelocation {
		sect.AppendU32(0)
		a.recordForwardRef(isa.RelocPC32, offset, op, line)
		return nil
	}
	pc := offset + 4
	disp := int64(op.Scalar.Immediate) - int64(pc)
	if disp < -(1<<31) || disp >= (1<<31) {
		return fmt.Errorf("PC-relative displacement %d does not fit in 32 bits", disp)
	}
	sect.AppendU32(uint32(int32(disp)))
	return nil
}

func (a *Assembler) emitJmp(sect *section.Section, operands []ParsedOperand, line int) error {
	if len(operands) == 0 {
		return nil
	}
	return a.emitPCRelDisp32(sect, operands[0], line)
}

func (a *Assembler) emitSysControl(sect *section.Section, op ParsedOperand, line int) error {
	offset := sect.Cursor()
	if op.NeedsRelocation {
		sect.AppendU8(0)
		a.recordForwardRef(isa.RelocAbs8, offset, op, line)
		return nil
	}
	if op.Scalar.Immediate > 0xFF {
		return fmt.Errorf("syscall operand 0x%X does not fit in 8 bits", op.Scalar.Immediate)
	}
	sect.AppendU8(uint8(op.Scalar.Immediate))
	return nil
}

// emitOpcodeReg ORs the GP index of the sole register operand into the
// opcode byte already written at opcodeOffset.
func (a *Assembler) emitOpcodeReg(sect *section.Section, opcodeOffset uint64, op ParsedOperand) error {
	current := sect.Bytes()[opcodeOffset]
	patched := current | uint8(op.Scalar.Register.GPIndex())
	return sect.ReplaceBytes(opcodeOffset, []byte{patched})
}

// emitMemoryIndex handles the "Second is INDEX" addressing-mode family:
// normalize base/index, validate scale, pick the transfer-byte variant
// by base, write the memory-index byte, an optional base/index pair
// byte, and the displacement.
func (a *Assembler) emitMemoryIndex(sect *section.Section, dst uint8, memSize uint8, op ParsedOperand, line int) error {
	mi := op.MemIndex

	if !mi.Base.IsValid() && mi.Index.IsValid() {
		mi.Base, mi.Index = mi.Index, isa.Invalid
	}
	if mi.Base.IsGP() && mi.Index.IsSP() && mi.Scale == 1 {
		mi.Base, mi.Index = mi.Index, mi.Base
	}

	if !isa.ValidScale(mi.Scale) {
		return fmt.Errorf("unsupported scale %d", mi.Scale)
	}
	encodedScale := isa.EncodedScale(mi.Scale)

	var variantBits uint8
	switch {
	case mi.Base.IsSP():
		variantBits = 0b01
	case mi.Base.IsGP():
		variantBits = 0b10
	default:
		variantBits = 0b11
	}
	sect.AppendU8(dst<<4 | variantBits<<2 | memSize)

	if variantBits == 0b11 {
		return a.emitMemoryIndexConstAddr(sect, op, line)
	}

	bothPresent := mi.Base.IsValid() && mi.Index.IsValid()

	dispFits16 := !op.NeedsRelocation && fitsI16(mi.Disp)
	dispWidth := uint8(0)
	if dispFits16 {
		dispWidth = 1
	}

	ignore := uint8(1)
	regField := uint8(0)
	if bothPresent {
		ignore = 0
	} else {
		switch {
		case variantBits == 0b01 && mi.Index.IsValid():
			regField = uint8(mi.Index.GPIndex())
		case variantBits == 0b10 && mi.Base.IsValid() && !mi.Index.IsValid():
			regField = uint8(mi.Base.GPIndex())
		}
	}

	sect.AppendU8(regField<<4 | encodedScale<<2 | dispWidth<<1 | ignore)

	if bothPresent {
		sect.AppendU8(uint8(mi.Base.GPIndex())<<4 | uint8(mi.Index.GPIndex()))
	}

	offset := sect.Cursor()
	if dispFits16 {
		sect.AppendU16(uint16(mi.Disp))
		return nil
	}

	if op.NeedsRelocation {
		sect.AppendU32(0)
		a.recordForwardRef(isa.RelocAbs32S, offset, op, line)
		return nil
	}
	if !fitsI32(mi.Disp) {
		return fmt.Errorf("memory index displacement %d does not fit in 32 bits", int64(mi.Disp))
	}
	sect.AppendU32(uint32(int32(int64(mi.Disp))))
	return nil
}

// emitMemoryIndexConstAddr handles the "neither base nor index present"
// INDEX variant (e.g. `[0x10]` or `[some_label]`): no registers are
// encoded, so the regField/scale/dispWidth byte is all zero with the
// ignore bit set, followed by an 8-byte LE address, mirroring the
// ADDR64 DATA_TRANSFER payload rather than a 2/4-byte displacement.
func (a *Assembler) emitMemoryIndexConstAddr(sect *section.Section, op ParsedOperand, line int) error {
	const ignore = 1
	sect.AppendU8(ignore)

	offset := sect.Cursor()
	if op.NeedsRelocation {
		sect.AppendU64(0)
		a.recordForwardRef(isa.RelocAddr64, offset, op, line)
		return nil
	}
	sect.AppendU64(op.MemIndex.Disp)
	return nil
}

func fitsI16(v uint64) bool {
	s := int64(v)
	return s >= -(1<<15) && s < (1<<15)
}

func fitsI32(v uint64) bool {
	s := int64(v)
	return s >= -(1<<31) && s < (1<<31)
}
