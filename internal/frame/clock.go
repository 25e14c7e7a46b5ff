// Package frame provides the per-context frame counter that drives
// deferred resource reclamation.
package frame

// Clock counts completed frames. The zero value starts at frame 0.
//
// Clock is not safe for concurrent use; it belongs to the frame loop.
type Clock struct {
	n uint32
}

// Now returns the current frame number. Binds made during a frame are
// stamped with this value.
func (c *Clock) Now() uint32 { return c.n }

// Advance marks the current frame complete and returns the new frame
// number. Call it once per frame, after the deletion sweeps have run.
func (c *Clock) Advance() uint32 {
	c.n++
	return c.n
}

// Reset rewinds the clock to frame 0. Only valid once every resource
// stamped with an older frame has been released.
func (c *Clock) Reset() { c.n = 0 }
