package utils_test

import (
	"errors"
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestMakeError_WrapsAndFormats(t *testing.T) {
	base := errors.New("base failure")
	err := utils.MakeError(base, "while reading %q (attempt %d)", "a.asm", 2)

	assert.ErrorIs(t, err, base)
	assert.Equal(t, `base failure: while reading "a.asm" (attempt 2)`, err.Error())
}
