// Package assembler implements the assembler core: the main statement
// loop, operand parsing, encoding template selection, bit-exact
// instruction emission, directive handling, and the intra-module fixup
// pass.
package assembler

import (
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/expr"
	"github.com/SapphireAmoeba5/rasm/pkg/isa"
	"github.com/SapphireAmoeba5/rasm/pkg/section"
	"github.com/SapphireAmoeba5/rasm/pkg/symtab"
	"github.com/SapphireAmoeba5/rasm/pkg/token"
)

// MaxOperands bounds the number of operands any one instruction may take.
const MaxOperands = isa.MaxOperands

// forwardRef captures "patch this location after all definitions are
// known": an expression that could not be fully resolved at the point
// it was parsed.
type forwardRef struct {
	RelocKind isa.RelocationKind
	Section   string
	Offset    uint64
	Expr      *expr.Node
	Line      int
}

// Assembler assembles one source file into a symbol table, a set of
// named sections, a global-export set, and the forward references that
// survive the intra-module fixup pass (handed to the module builder).
type Assembler struct {
	filename string

	Symbols  *symtab.Table
	Sections map[string]*section.Section
	// SectionOrder preserves first-declaration order for deterministic
	// module building and linking within this file.
	SectionOrder []string
	Globals      map[string]bool

	currentSection string
	forwardRefs    []forwardRef
	diags          []Diagnostic
}

// New creates an assembler for filename, with no sections yet current.
func New(filename string) *Assembler {
	return &Assembler{
		filename: filename,
		Symbols:  symtab.New(),
		Sections: make(map[string]*section.Section),
		Globals:  make(map[string]bool),
	}
}

// ForwardReferences exposes the forward references that survived the
// intra-module fixup pass, for the module builder.
func (a *Assembler) ForwardReferences() []forwardRefView {
	out := make([]forwardRefView, len(a.forwardRefs))
	for i, f := range a.forwardRefs {
		out[i] = forwardRefView{RelocKind: f.RelocKind, Section: f.Section, Offset: f.Offset, Expr: f.Expr, Line: f.Line}
	}
	return out
}

// forwardRefView is the module builder's read-only view of a surviving
// forward reference.
type forwardRefView struct {
	RelocKind isa.RelocationKind
	Section   string
	Offset    uint64
	Expr      *expr.Node
	Line      int
}

func (f forwardRefView) Kind() isa.RelocationKind { return f.RelocKind }
func (f forwardRefView) SectionName() string      { return f.Section }
func (f forwardRefView) ByteOffset() uint64        { return f.Offset }
func (f forwardRefView) Node() *expr.Node           { return f.Expr }
func (f forwardRefView) LineNumber() int            { return f.Line }

// section returns (creating if absent) the named section and records
// its first-seen declaration order.
func (a *Assembler) section(name string) *section.Section {
	if s, ok := a.Sections[name]; ok {
		return s
	}
	s := section.New(name)
	a.Sections[name] = s
	a.SectionOrder = append(a.SectionOrder, name)
	return s
}

func (a *Assembler) current() (*section.Section, error) {
	if a.currentSection == "" {
		return nil, fmt.Errorf("no current section; a .section directive is required before emitting")
	}
	return a.section(a.currentSection), nil
}

// Assemble consumes the whole token stream, dispatching one statement
// at a time. Errors inside a statement abort that statement only: the
// driver records a diagnostic and skips to the next line. Assemble
// always runs the intra-module fixup pass, even if earlier statements
// failed, so diagnostics are as complete as possible; it returns false
// once any diagnostic — from parsing or from fixups — has been raised.
func (a *Assembler) Assemble(stream *token.Stream) bool {
	for {
		tok, err := stream.Peek()
		if err != nil {
			a.fail(stream.Line(), "%v", err)
			stream.SkipLine()
			continue
		}
		if tok.Kind == token.KindEOF {
			break
		}
		if tok.Kind == token.KindNewline {
			stream.Next()
			continue
		}

		if err := a.statement(stream, tok); err != nil {
			a.fail(tok.Line, "%v", err)
			stream.SkipLine()
		}
	}

	a.runFixups()
	return a.OK()
}

func (a *Assembler) statement(stream *token.Stream, first token.Token) error {
	switch first.Kind {
	case token.KindMnemonic:
		stream.Next()
		return a.assembleInstruction(stream, first)

	case token.KindDirective:
		stream.Next()
		return a.assembleDirective(stream, first)

	case token.KindKeyword:
		stream.Next()
		return a.assembleConst(stream, first)

	case token.KindIdentifier:
		stream.Next()
		return a.assembleLabelOrError(stream, first)

	default:
		return fmt.Errorf("unexpected %v at start of statement", first)
	}
}

func (a *Assembler) assembleLabelOrError(stream *token.Stream, ident token.Token) error {
	colon, err := stream.Next()
	if err != nil {
		return err
	}
	if colon.Kind != token.KindPunctuator || colon.Punct != token.PunctColon {
		return fmt.Errorf("expected ':' after identifier %q to form a label", ident.Text)
	}
	return a.defineLabel(ident.Text, ident.Line)
}

func (a *Assembler) defineLabel(name string, line int) error {
	sect, err := a.current()
	if err != nil {
		return err
	}
	return a.Symbols.Insert(name, symtab.Symbol{
		Value:      sect.Cursor(),
		Section:    a.currentSection,
		HasSection: true,
		Kind:       symtab.KindLabel,
	})
}

func (a *Assembler) assembleConst(stream *token.Stream, kw token.Token) error {
	nameTok, err := stream.Next()
	if err != nil {
		return err
	}
	if nameTok.Kind != token.KindIdentifier {
		return fmt.Errorf("expected identifier after 'const', got %v", nameTok)
	}
	eq, err := stream.Next()
	if err != nil {
		return err
	}
	if eq.Kind != token.KindPunctuator || eq.Punct != token.PunctEquals {
		return fmt.Errorf("expected '=' after const name %q", nameTok.Text)
	}

	node, _, err := expr.ParseOperand(stream)
	if err != nil {
		return err
	}
	result, err := expr.Evaluate(node, a.currentSection, a.Symbols)
	if err != nil {
		return err
	}
	if result.Kind != expr.ResultConstant || result.IsLabel || result.NeedsRelocation {
		return fmt.Errorf("const %q must be a fully resolved constant expression", nameTok.Text)
	}

	if err := expectNewline(stream); err != nil {
		return err
	}

	return a.Symbols.Insert(nameTok.Text, symtab.Symbol{Value: result.Immediate, Kind: symtab.KindConstant})
}

func expectNewline(stream *token.Stream) error {
	tok, err := stream.Next()
	if err != nil {
		return err
	}
	if tok.Kind != token.KindNewline && tok.Kind != token.KindEOF {
		return fmt.Errorf("unexpected trailing %v", tok)
	}
	return nil
}
