// Package diag renders build errors for the rasm CLI: per-statement
// assembler diagnostics (filename:line), per-relocation linker errors
// (filename:section+offset), and configuration errors, all through one
// colorized formatter built on github.com/fatih/color.
package diag

import (
	"errors"
	"fmt"
	"io"

	"github.com/SapphireAmoeba5/rasm/pkg/assembler"
	"github.com/fatih/color"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
)

// Print writes err to w, one line per underlying diagnostic when err
// wraps multiple (via errors.Join), colorized unless color.NoColor is
// set. assembler.Diagnostic values print as "filename:line: message";
// any other error prints as "error: message".
func Print(w io.Writer, err error) {
	for _, e := range flatten(err) {
		printOne(w, e)
	}
}

func printOne(w io.Writer, err error) {
	var d assembler.Diagnostic
	if errors.As(err, &d) {
		fmt.Fprintln(w, errorColor.Sprint(d.Error()))
		return
	}
	fmt.Fprintln(w, errorColor.Sprintf("error: %v", err))
}

// Warn prints a non-fatal notice (e.g. a degraded-mode fallback),
// yellow when colorized.
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warningColor.Sprintf(format, args...))
}

// flatten descends errors.Join trees into their leaves, preserving the
// order errors.Join recorded them in. A non-joined error is its own
// single-element leaf set.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	type unwrapper interface{ Unwrap() []error }
	if u, ok := err.(unwrapper); ok {
		var out []error
		for _, child := range u.Unwrap() {
			out = append(out, flatten(child)...)
		}
		return out
	}
	return []error{err}
}
