// Package linker composes a set of assembled modules into a single flat
// binary image under a placement script: an ordered list of section
// names (with "*" meaning "everything not yet placed").
package linker

import (
	"errors"
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/module"
	"github.com/SapphireAmoeba5/rasm/pkg/utils"
)

var (
	ErrUnknownSymbol = errors.New("unresolved symbol")
	ErrUnrelocatable = errors.New("relocation could not be applied")
)

// Step is one placement-script instruction: either a concrete section
// name, or Wildcard (name == "*"), meaning "every section not yet
// placed, in module order then declaration order".
type Step struct {
	Name string
}

// Wildcard reports whether this step matches every remaining section.
func (s Step) Wildcard() bool { return s.Name == "*" }

// DefaultScript is the placement script used when the driver supplies
// none: .entry, then .text, then everything else.
func DefaultScript() []Step {
	return []Step{{Name: ".entry"}, {Name: ".text"}, {Name: "*"}}
}

// placed records one (module, section) pair's position in the final
// image.
type placed struct {
	offset   uint64
	included bool
}

// Program is the linker's output: the final byte image plus enough
// bookkeeping to answer "where did module M's section S end up".
type Program struct {
	Bytes []byte

	// SectionOffsets[moduleIndex][sectionName] is the absolute byte
	// offset that section occupies in Bytes.
	SectionOffsets []map[string]uint64
	// SectionIncluded[moduleIndex][sectionName] reports whether that
	// section was ever placed by the script.
	SectionIncluded []map[string]bool

	// Globals maps a global symbol name to the index of the module
	// that defines it, aggregated across every linked module.
	Globals map[string]int
}

// Linker accumulates modules and, once Link runs, the placement and
// fixup bookkeeping.
type Linker struct {
	modules []module.Module
	script  []Step
}

// New creates a linker driven by script; an empty script falls back to
// DefaultScript.
func New(script []Step) *Linker {
	if len(script) == 0 {
		script = DefaultScript()
	}
	return &Linker{script: script}
}

// AddModule appends m to the set of modules this linker will compose,
// in the order modules are added.
func (l *Linker) AddModule(m module.Module) {
	l.modules = append(l.modules, m)
}

// Link runs Pass 1 (placement) and Pass 2 (fixups) per §4.7, returning
// the composed Program or an aggregate error covering every placement
// and fixup failure encountered.
func (l *Linker) Link() (Program, error) {
	prog, placements, err := l.place()
	if err != nil {
		return prog, err
	}

	if errs := l.fixup(&prog, placements); len(errs) > 0 {
		return prog, errors.Join(errs...)
	}
	return prog, nil
}

// place implements Pass 1: walk the script step by step, appending the
// bytes of every (module, section) pair that step selects, aligning
// the output cursor to the section's declared alignment first.
func (l *Linker) place() (Program, []map[string]placed, error) {
	prog := Program{
		SectionOffsets:  make([]map[string]uint64, len(l.modules)),
		SectionIncluded: make([]map[string]bool, len(l.modules)),
		Globals:         make(map[string]int),
	}
	placements := make([]map[string]placed, len(l.modules))
	for i := range l.modules {
		prog.SectionOffsets[i] = make(map[string]uint64)
		prog.SectionIncluded[i] = make(map[string]bool)
		placements[i] = make(map[string]placed)
	}

	for _, step := range l.script {
		for mi, m := range l.modules {
			for _, secName := range m.SectionOrder {
				if placements[mi][secName].included {
					continue
				}
				if !step.Wildcard() && secName != step.Name {
					continue
				}
				l.appendSection(&prog, placements, mi, m, secName)
			}
		}
	}

	for mi, m := range l.modules {
		for _, name := range utils.Keys(m.Globals) {
			if _, ok := m.Symbols.Get(name); ok {
				prog.Globals[name] = mi
			}
		}
	}

	return prog, placements, nil
}

func (l *Linker) appendSection(prog *Program, placements []map[string]placed, mi int, m module.Module, secName string) {
	sect := m.Sections[secName]
	if sect == nil {
		return
	}

	if sect.Alignment > 1 {
		pad := alignPadding(uint64(len(prog.Bytes)), sect.Alignment)
		prog.Bytes = append(prog.Bytes, make([]byte, pad)...)
	}

	offset := uint64(len(prog.Bytes))
	prog.Bytes = append(prog.Bytes, sect.Bytes()...)

	placements[mi][secName] = placed{offset: offset, included: true}
	prog.SectionOffsets[mi][secName] = offset
	prog.SectionIncluded[mi][secName] = true
}

func alignPadding(cursor, alignment uint64) uint64 {
	rem := cursor % alignment
	if rem == 0 {
		return 0
	}
	return alignment - rem
}

// fixup implements Pass 2: for every module's relocations, resolve the
// symbol (module-local first, then the global index), compute the
// target address, and patch the final image in place.
func (l *Linker) fixup(prog *Program, placements []map[string]placed) []error {
	var errs []error
	for mi, m := range l.modules {
		for _, reloc := range m.Relocations {
			if err := l.applyRelocation(prog, placements, mi, m, reloc); err != nil {
				errs = append(errs, fmt.Errorf("%s:%s+0x%x: %w", m.Filename, reloc.Section, reloc.ByteOffset, err))
			}
		}
	}
	return errs
}

func (l *Linker) resolveSymbol(name string, homeModule int) (module.Module, int, bool) {
	if name == "" {
		return module.Module{}, 0, false
	}
	if _, ok := l.modules[homeModule].Symbols.Get(name); ok {
		return l.modules[homeModule], homeModule, true
	}
	if idx, ok := l.moduleGlobals()[name]; ok {
		return l.modules[idx], idx, true
	}
	return module.Module{}, 0, false
}

// moduleGlobals rebuilds the name -> module-index map from every
// module's declared globals (mirrors Program.Globals, kept separate so
// resolution doesn't depend on place() having already run).
func (l *Linker) moduleGlobals() map[string]int {
	out := make(map[string]int)
	for mi, m := range l.modules {
		for _, name := range utils.Keys(m.Globals) {
			if _, ok := m.Symbols.Get(name); ok {
				out[name] = mi
			}
		}
	}
	return out
}
