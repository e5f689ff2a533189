package linker

import (
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/module"
	"github.com/SapphireAmoeba5/rasm/pkg/symtab"
)

// applyRelocation resolves one relocation record and patches prog.Bytes
// in place, per §4.7 Pass 2.
func (l *Linker) applyRelocation(prog *Program, placements []map[string]placed, mi int, m module.Module, reloc module.Relocation) error {
	patchOffset, ok := placements[mi][reloc.Section]
	if !ok || !patchOffset.included {
		return fmt.Errorf("%w: section %q was never placed", ErrUnrelocatable, reloc.Section)
	}
	absOffset := patchOffset.offset + reloc.ByteOffset

	target, sym, err := l.resolveTarget(prog, placements, mi, m, reloc)
	if err != nil {
		return err
	}

	return patch(prog.Bytes, absOffset, reloc.Kind, target, sym)
}

// resolveTarget computes the relocation's target value and, when the
// relocation names a symbol, returns the resolved symbol alongside it
// (so patch can enforce kind/symbol-kind compatibility).
func (l *Linker) resolveTarget(prog *Program, placements []map[string]placed, mi int, m module.Module, reloc module.Relocation) (uint64, *symtab.Symbol, error) {
	if reloc.Symbol == "" {
		return reloc.Addend, nil, nil
	}

	ownerModule, ownerIdx, ok := l.resolveSymbol(reloc.Symbol, mi)
	if !ok {
		return 0, nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, reloc.Symbol)
	}
	sym, _ := ownerModule.Symbols.Get(reloc.Symbol)

	if !sym.HasSection {
		return sym.Value + reloc.Addend, &sym, nil
	}

	homeOffset, ok := placements[ownerIdx][sym.Section]
	if !ok || !homeOffset.included {
		return 0, nil, fmt.Errorf("%w: %q's home section %q was never placed", ErrUnrelocatable, reloc.Symbol, sym.Section)
	}
	return sym.Value + homeOffset.offset + reloc.Addend, &sym, nil
}

// patch writes target into bytes at off according to kind, enforcing
// the symbol-kind compatibility rules from §4.7 Pass 2 step 3.
func patch(bytes []byte, off uint64, kind isa.RelocationKind, target uint64, sym *symtab.Symbol) error {
	if sym != nil {
		if kind.IsPCRelative() && sym.Kind != symtab.KindLabel {
			return fmt.Errorf("%w: %v requires a label symbol", ErrUnrelocatable, kind)
		}
		if (kind == isa.RelocAddr64 || kind == isa.RelocAbs64 || kind == isa.RelocAbs32) && sym.Kind != symtab.KindConstant {
			return fmt.Errorf("%w: %v requires a constant symbol", ErrUnrelocatable, kind)
		}
	}

	switch kind {
	case isa.RelocAbs8:
		if target > 0xFF {
			return fmt.Errorf("%w: value 0x%X does not fit in 8 bits", ErrUnrelocatable, target)
		}
		return writeAt(bytes, off, []byte{uint8(target)})

	case isa.RelocAbs8S:
		if !fitsSigned(target, 8) {
			return fmt.Errorf("%w: value %d does not fit in a signed 8-bit field", ErrUnrelocatable, int64(target))
		}
		return writeAt(bytes, off, []byte{uint8(int8(int64(target)))})

	case isa.RelocAbs16:
		if target > 0xFFFF {
			return fmt.Errorf("%w: value 0x%X does not fit in 16 bits", ErrUnrelocatable, target)
		}
		return writeAt(bytes, off, le16(uint16(target)))

	case isa.RelocAbs16S:
		if !fitsSigned(target, 16) {
			return fmt.Errorf("%w: value %d does not fit in a signed 16-bit field", ErrUnrelocatable, int64(target))
		}
		return writeAt(bytes, off, le16(uint16(int16(int64(target)))))

	case isa.RelocAbs32:
		if target > 0xFFFFFFFF {
			return fmt.Errorf("%w: value 0x%X does not fit in 32 bits", ErrUnrelocatable, target)
		}
		return writeAt(bytes, off, le32(uint32(target)))

	case isa.RelocAbs32S:
		if !fitsSigned(target, 32) {
			return fmt.Errorf("%w: value %d does not fit in a signed 32-bit field", ErrUnrelocatable, int64(target))
		}
		return writeAt(bytes, off, le32(uint32(int32(int64(target)))))

	case isa.RelocAbs64, isa.RelocAbs64S, isa.RelocAddr64:
		return writeAt(bytes, off, le64(target))

	case isa.RelocPC8:
		disp := int64(target) - int64(off+1)
		if !fitsSignedDisp(disp, 8) {
			return fmt.Errorf("%w: PC-relative displacement %d does not fit in 8 bits", ErrUnrelocatable, disp)
		}
		return writeAt(bytes, off, []byte{uint8(int8(disp))})

	case isa.RelocPC32:
		disp := int64(target) - int64(off+4)
		if !fitsSignedDisp(disp, 32) {
			return fmt.Errorf("%w: PC-relative displacement %d does not fit in 32 bits", ErrUnrelocatable, disp)
		}
		return writeAt(bytes, off, le32(uint32(int32(disp))))

	case isa.RelocPC64:
		disp := int64(target) - int64(off+8)
		return writeAt(bytes, off, le64(uint64(disp)))

	case isa.RelocNone:
		return nil
	}

	return fmt.Errorf("%w: unhandled relocation kind %v", ErrUnrelocatable, kind)
}

func writeAt(bytes []byte, off uint64, payload []byte) error {
	if off+uint64(len(payload)) > uint64(len(bytes)) {
		return fmt.Errorf("%w: patch at 0x%x (width %d) overruns image of length %d", ErrUnrelocatable, off, len(payload), len(bytes))
	}
	copy(bytes[off:], payload)
	return nil
}

func fitsSigned(v uint64, bits int) bool {
	s := int64(v)
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return s >= lo && s <= hi
}

func fitsSignedDisp(disp int64, bits int) bool {
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return disp >= lo && disp <= hi
}

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
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
