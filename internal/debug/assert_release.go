//go:build !picadebug

package debug

// Enabled reports whether contract checks are compiled in.
const Enabled = false

// Assert is a no-op without the picadebug build tag.
func Assert(bool, string, ...any) {}
