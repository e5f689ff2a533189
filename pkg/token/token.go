// Package token classifies raw assembly source into a stream of tokens.
package token

import "fmt"

// Kind identifies the syntactic class of a Token.
type Kind int

const (
	KindMnemonic Kind = iota
	KindRegister
	KindIdentifier
	KindNumber
	KindDirective
	KindKeyword
	KindPunctuator
	KindNewline
	KindEOF
)

func (k Kind) String() string {
	switch k {
	case KindMnemonic:
		return "mnemonic"
	case KindRegister:
		return "register"
	case KindIdentifier:
		return "identifier"
	case KindNumber:
		return "number"
	case KindDirective:
		return "directive"
	case KindKeyword:
		return "keyword"
	case KindPunctuator:
		return "punctuator"
	case KindNewline:
		return "newline"
	case KindEOF:
		return "eof"
	}
	return "unknown"
}

// Punct enumerates the punctuator tokens recognized by the lexer.
type Punct int

const (
	PunctEquals Punct = iota
	PunctComma
	PunctLParen
	PunctRParen
	PunctLBracket
	PunctRBracket
	PunctPlus
	PunctMinus
	PunctStar
	PunctSlash
	PunctCaret
	PunctAmp
	PunctAt
	PunctColon
	PunctDollar
)

var punctText = map[Punct]string{
	PunctEquals:   "=",
	PunctComma:    ",",
	PunctLParen:   "(",
	PunctRParen:   ")",
	PunctLBracket: "[",
	PunctRBracket: "]",
	PunctPlus:     "+",
	PunctMinus:    "-",
	PunctStar:     "*",
	PunctSlash:    "/",
	PunctCaret:    "^",
	PunctAmp:      "&",
	PunctAt:       "@",
	PunctColon:    ":",
	PunctDollar:   "$",
}

func (p Punct) String() string {
	if s, ok := punctText[p]; ok {
		return s
	}
	return "?"
}

// Token is a single classified lexical unit, tagged with its source line.
type Token struct {
	Kind Kind
	Line int

	// Text holds the raw spelling for identifier/mnemonic/directive/keyword tokens.
	Text string
	// Number holds the reinterpreted 64-bit value for KindNumber tokens.
	Number uint64
	// Punct holds the punctuator classification for KindPunctuator tokens.
	Punct Punct
}

func (t Token) String() string {
	switch t.Kind {
	case KindNumber:
		return fmt.Sprintf("%v(%d)", t.Kind, t.Number)
	case KindPunctuator:
		return fmt.Sprintf("%v(%v)", t.Kind, t.Punct)
	case KindNewline, KindEOF:
		return t.Kind.String()
	default:
		return fmt.Sprintf("%v(%q)", t.Kind, t.Text)
	}
}

// Mnemonics is the set of recognized instruction mnemonics.
//
// Populated by the isa package at init time (isa imports token, so the
// table is built here and filled in via RegisterMnemonics to avoid an
// import cycle).
var Mnemonics = map[string]bool{}

// RegisterMnemonics adds names to the recognized mnemonic set.
func RegisterMnemonics(names ...string) {
	for _, n := range names {
		Mnemonics[n] = true
	}
}

// Directives is the set of recognized directive names (without the leading dot).
var Directives = map[string]bool{
	"section": true,
	"align":   true,
	"skip":    true,
	"global":  true,
	"u8":      true,
	"u16":     true,
	"u32":     true,
	"u64":     true,
}

// Keywords is the set of recognized bare keywords.
var Keywords = map[string]bool{
	"const": true,
}

// Registers is the set of named (non-numbered) register spellings.
// The actual Register value decoding lives in package isa; here we only
// need to know a word is a register so the lexer can classify it.
var Registers = map[string]bool{
	"sp": true,
	"ip": true,
}

func init() {
	for i := 0; i < 16; i++ {
		Registers[fmt.Sprintf("r%d", i)] = true
	}
}
