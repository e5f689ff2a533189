package isa

// OperandClass is a bitset of the classes an operand may belong to. Each
// encoding template operand slot is a mask of allowed classes; each
// parsed operand carries a mask of possible classes, narrowed against
// the matched template during selection.
type OperandClass uint32

const (
	ClassREG OperandClass = 1 << iota
	ClassGPREG
	ClassIMM8
	ClassIMM16
	ClassIMM32
	ClassIMM64
	ClassDISP32
	ClassADDR64
	ClassINDEX
)

// Composite masks.
const (
	ClassIMM  = ClassIMM8 | ClassIMM16 | ClassIMM32 | ClassIMM64
	ClassDISP = ClassDISP32
	ClassADDR = ClassADDR64
)

// SingleBit reports whether exactly one bit is set, and returns it.
func (c OperandClass) SingleBit() (OperandClass, bool) {
	if c == 0 || c&(c-1) != 0 {
		return 0, false
	}
	return c, true
}

// Intersects reports whether c and other share at least one class.
func (c OperandClass) Intersects(other OperandClass) bool {
	return c&other != 0
}

// Names used in diagnostics and the --map opcode dump.
var classNames = []struct {
	bit  OperandClass
	name string
}{
	{ClassREG, "REG"},
	{ClassGPREG, "GP_REG"},
	{ClassIMM8, "IMM8"},
	{ClassIMM16, "IMM16"},
	{ClassIMM32, "IMM32"},
	{ClassIMM64, "IMM64"},
	{ClassDISP32, "DISP32"},
	{ClassADDR64, "ADDR64"},
	{ClassINDEX, "INDEX"},
}

func (c OperandClass) String() string {
	if c == 0 {
		return "(none)"
	}
	out := ""
	for _, entry := range classNames {
		if c&entry.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += entry.name
		}
	}
	return out
}
