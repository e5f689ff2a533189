package isa

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SapphireAmoeba5/rasm/pkg/utils"
)

// Documentation renders the whole encoding table as a human-readable,
// alphabetically sorted dump: one section per mnemonic, an ASCII frame
// per template showing opcode/operand byte layout. This is what the
// CLI's --map flag prints.
func Documentation() string {
	var b strings.Builder

	names := Mnemonics()
	sort.Strings(names)

	fmt.Fprintf(&b, "total mnemonics: %d\n\n", len(names))

	for _, name := range names {
		templates := Global[name]
		fmt.Fprintf(&b, "%s (%d encoding(s)):\n", name, len(templates))

		for i, tmpl := range templates {
			fmt.Fprintf(&b, "  [%d] opcode=0x%02X ext=%v options=%v\n", i, tmpl.Opcode, tmpl.HasExtensionByte, tmpl.Options)

			fields := []utils.AsciiFrameField{
				{Name: "opcode", Begin: 0, Width: 8},
			}
			bit := 8
			for j := 0; j < tmpl.NumOperands(); j++ {
				fields = append(fields, utils.AsciiFrameField{
					Name:  fmt.Sprintf("op%d:%v", j, tmpl.Operands[j]),
					Begin: bit,
					Width: 8,
				})
				bit += 8
			}

			b.WriteString(utils.AsciiFrame(fields, bit, "bits", utils.AsciiFrameUnitLayout_LeftToRight, 4))
		}

		b.WriteString("\n")
	}

	return b.String()
}
