package listing_test

import (
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/listing"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestHighlightLine_PlainTextLengthPreservedWithColorDisabled(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	line := "start: mov r1, 0x10 ; load"
	got := listing.HighlightLine(line)
	assert.Equal(t, line, got)
}

func TestHighlightLine_EmptyLine(t *testing.T) {
	assert.Equal(t, "", listing.HighlightLine(""))
}
