package isa

import "github.com/SapphireAmoeba5/rasm/pkg/token"

func init() {
	token.RegisterMnemonics(Mnemonics()...)
}
