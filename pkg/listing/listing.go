// Package listing renders assembly source with syntax highlighting for
// the --listing flag: mnemonics, registers, directives, numbers, labels,
// identifiers and `;` comments colorized with fatih/color, leaving
// everything else (whitespace, punctuation) untouched.
package listing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var (
	mnemonicColor   = color.New(color.FgHiYellow, color.Bold)
	registerColor   = color.New(color.FgCyan)
	directiveColor  = color.New(color.FgBlue)
	numberColor     = color.New(color.FgGreen)
	commentColor    = color.New(color.FgHiBlack)
	labelColor      = color.New(color.FgMagenta)
	identifierColor = color.New(color.FgWhite)
)

var mnemonics = map[string]bool{
	"mov": true, "add": true, "sub": true, "mul": true, "div": true, "xor": true,
	"jmp": true, "jz": true, "jnz": true, "call": true, "ret": true, "nop": true,
	"halt": true, "syscall": true, "ld": true, "and": true, "or": true,
	"shl": true, "shr": true, "cmp": true, "push": true, "pop": true,
}

var directives = map[string]bool{
	".section": true, ".align": true, ".skip": true, ".global": true,
	".u8": true, ".u16": true, ".u32": true, ".u64": true, "const": true,
}

var (
	commentPattern    = regexp.MustCompile(`;.*$`)
	numberPattern     = regexp.MustCompile(`\b0[xX][0-9a-fA-F]+\b|\b[0-9]+\b`)
	registerPattern   = regexp.MustCompile(`\b[rR][0-9]+\b|\bsp\b|\bip\b`)
	directivePattern  = regexp.MustCompile(`\.[a-zA-Z][a-zA-Z0-9_]*\b`)
	labelPattern      = regexp.MustCompile(`^\s*([a-zA-Z_][a-zA-Z0-9_]*):`)
	identifierPattern = regexp.MustCompile(`\b[a-zA-Z_][a-zA-Z0-9_]*\b`)
)

type span struct {
	color      *color.Color
	start, end int
}

// HighlightLine colorizes one line of assembly source. It never
// changes the line's length once color.NoColor is honored (i.e. with
// coloring disabled, output equals input byte-for-byte).
func HighlightLine(line string) string {
	if line == "" {
		return ""
	}

	var spans []span

	if m := commentPattern.FindStringIndex(line); m != nil {
		spans = append(spans, span{commentColor, m[0], m[1]})
	}

	if m := labelPattern.FindStringSubmatchIndex(line); m != nil && len(m) >= 4 {
		spans = append(spans, span{labelColor, m[2], m[3]})
	}

	for _, m := range numberPattern.FindAllStringIndex(line, -1) {
		if !overlaps(m[0], m[1], spans) {
			spans = append(spans, span{numberColor, m[0], m[1]})
		}
	}

	for _, m := range registerPattern.FindAllStringIndex(line, -1) {
		if !overlaps(m[0], m[1], spans) {
			spans = append(spans, span{registerColor, m[0], m[1]})
		}
	}

	for _, m := range directivePattern.FindAllStringIndex(line, -1) {
		if !overlaps(m[0], m[1], spans) {
			spans = append(spans, span{directiveColor, m[0], m[1]})
		}
	}

	for _, m := range identifierPattern.FindAllStringIndex(line, -1) {
		if overlaps(m[0], m[1], spans) {
			continue
		}
		word := line[m[0]:m[1]]
		switch {
		case mnemonics[word]:
			spans = append(spans, span{mnemonicColor, m[0], m[1]})
		case directives[word]:
			spans = append(spans, span{directiveColor, m[0], m[1]})
		default:
			spans = append(spans, span{identifierColor, m[0], m[1]})
		}
	}

	return render(line, spans)
}

func overlaps(start, end int, spans []span) bool {
	for _, s := range spans {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}

func render(line string, spans []span) string {
	if len(spans) == 0 {
		return line
	}
	sortSpans(spans)

	var out strings.Builder
	pos := 0
	for _, s := range spans {
		if s.start > pos {
			out.WriteString(line[pos:s.start])
		}
		out.WriteString(s.color.Sprint(line[s.start:s.end]))
		pos = s.end
	}
	if pos < len(line) {
		out.WriteString(line[pos:])
	}
	return out.String()
}

func sortSpans(spans []span) {
	for i := 1; i < len(spans); i++ {
		key := spans[i]
		j := i - 1
		for j >= 0 && spans[j].start > key.start {
			spans[j+1] = spans[j]
			j--
		}
		spans[j+1] = key
	}
}

// PrintListing passes src to write, line by line, each line
// syntax-highlighted and prefixed with its 1-based line number, in the
// format `filename:line: <highlighted source>`.
func PrintListing(filename, src string, write func(string)) {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		write(filename + ":" + strconv.Itoa(i+1) + ": " + HighlightLine(line) + "\n")
	}
}
