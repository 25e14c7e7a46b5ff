//go:build picadebug

package pica

import "testing"

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestContractViolationsPanic(t *testing.T) {
	ctx := newTestContext(t, WithHeadless())
	tex, err := ctx.CreateTexture(NewBitmap(8, 8), 0)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := ctx.CreateBuffer(4, 16)
	if err != nil {
		t.Fatal(err)
	}
	stale := buf
	ctx.DeleteBuffer(&buf)

	mustPanic(t, "UpdateTexture out of bounds", func() {
		ctx.UpdateTexturePart(tex, 4, 4, solidBitmap(8, 8, White))
	})
	mustPanic(t, "UpdateTexture with nil bitmap", func() {
		ctx.UpdateTexturePart(tex, 0, 0, nil)
	})
	mustPanic(t, "LockBuffer on deleted buffer", func() { ctx.LockBuffer(stale) })
	mustPanic(t, "BindBuffer on deleted buffer", func() { ctx.BindBuffer(stale) })
}
