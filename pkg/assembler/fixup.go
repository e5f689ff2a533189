package assembler

import (
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/expr"
	"github.com/SapphireAmoeba5/rasm/pkg/isa"
)

// runFixups implements §4.5.7: re-evaluate every forward reference
// against the now-complete symbol table. Still-deferred references
// survive for the module builder; resolvable ones are patched in
// place. Errors accumulate as diagnostics rather than aborting the
// pass, so every patchable location is attempted.
func (a *Assembler) runFixups() {
	surviving := a.forwardRefs[:0]

	for _, ref := range a.forwardRefs {
		result, err := expr.Evaluate(ref.Expr, ref.Section, a.Symbols)
		if err != nil {
			a.fail(ref.Line, "%v", err)
			continue
		}

		if result.NeedsRelocation {
			surviving = append(surviving, ref)
			continue
		}

		if err := a.patchInPlace(ref, result); err != nil {
			a.fail(ref.Line, "%v", err)
		}
	}

	a.forwardRefs = surviving
}

func (a *Assembler) patchInPlace(ref forwardRef, result expr.Result) error {
	sect := a.Sections[ref.Section]
	if sect == nil {
		return fmt.Errorf("forward reference names unknown section %q", ref.Section)
	}

	switch ref.RelocKind {
	case isa.RelocAbs8:
		if result.Immediate > 0xFF {
			return fmt.Errorf("value 0x%X does not fit in 8 bits", result.Immediate)
		}
		return sect.ReplaceBytes(ref.Offset, []byte{uint8(result.Immediate)})

	case isa.RelocAbs16:
		if result.Immediate > 0xFFFF {
			return fmt.Errorf("value 0x%X does not fit in 16 bits", result.Immediate)
		}
		return sect.ReplaceBytes(ref.Offset, le16(uint16(result.Immediate)))

	case isa.RelocAbs32:
		if result.Immediate > 0xFFFFFFFF {
			return fmt.Errorf("value 0x%X does not fit in 32 bits", result.Immediate)
		}
		return sect.ReplaceBytes(ref.Offset, le32(uint32(result.Immediate)))

	case isa.RelocAbs64:
		return sect.ReplaceBytes(ref.Offset, le64(result.Immediate))

	case isa.RelocAbs32S:
		if !fitsI32(result.Immediate) {
			return fmt.Errorf("value %d does not fit in a signed 32-bit field", int64(result.Immediate))
		}
		return sect.ReplaceBytes(ref.Offset, le32(uint32(int32(int64(result.Immediate)))))

	case isa.RelocPC32:
		pc := ref.Offset + 4
		disp := int64(result.Immediate) - int64(pc)
		if disp < -(1<<31) || disp >= (1<<31) {
			return fmt.Errorf("PC-relative displacement %d does not fit in 32 bits", disp)
		}
		return sect.ReplaceBytes(ref.Offset, le32(uint32(int32(disp))))

	case isa.RelocAddr64:
		return sect.ReplaceBytes(ref.Offset, le64(result.Immediate))
	}

	// Other kinds (None, Abs*S variants not produced by this emitter,
	// PC8/PC64) are delegated to the linker per §4.5.7.
	return fmt.Errorf("relocation kind %v is not resolvable intra-module", ref.RelocKind)
}

func le16(v uint16) []byte { b := make([]byte, 2); b[0] = byte(v); b[1] = byte(v >> 8); return b }
func le32(v uint32) []byte {
	b := make([]byte, 4)
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
