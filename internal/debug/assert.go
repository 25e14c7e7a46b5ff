//go:build picadebug

// Package debug holds contract checks that are compiled in only with the
// picadebug build tag. Release builds get no-op versions.
package debug

import "fmt"

// Enabled reports whether contract checks are compiled in.
const Enabled = true

// Assert panics with the formatted message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("pica: contract violation: "+format, args...))
	}
}
