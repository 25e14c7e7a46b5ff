package pica

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pica/internal/debug"
	"github.com/gogpu/pica/internal/frame"
	"github.com/gogpu/pica/internal/gpucmd"
	"github.com/gogpu/pica/internal/native"
	"github.com/gogpu/pica/internal/pool"
)

// halProvider is implemented by device providers that expose their HAL
// device and queue.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Context owns the GPU-resident textures and buffers of one graphics
// context and decides when their storage may be reused.
//
// Deleting a resource does not free it. The GPU may still be executing a
// command list that refers to it, so deleted resources wait on a pending
// list until SafetyWindow frames have passed since their last bind.
// EndFrame runs the sweeps.
//
// Context is not safe for concurrent use. All calls belong to the thread
// that runs the frame loop.
type Context struct {
	dev   *native.Device
	clock frame.Clock

	textures *pool.Pool[*native.Texture]
	buffers  *pool.Pool[*native.Buffer]

	defaultTex ResourceID
	indexBuf   ResourceID
	indexCap   int

	inFrame bool
	closed  bool

	fallbackBinds uint64
	texFreed      uint64
	bufFreed      uint64
}

// NewContext creates a context and its default state.
//
// The device comes from, in order of preference: WithHeadless (no HAL
// device), WithHALDevice, WithDeviceProvider, or a noop HAL device owned
// by the context.
func NewContext(opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dev, err := openDevice(&o)
	if err != nil {
		return nil, err
	}

	c := &Context{dev: dev}
	c.textures = pool.New(pool.Config[*native.Texture]{
		SafetyWindow: o.safetyWindow,
		Release:      c.dev.DestroyTexture,
	})
	c.buffers = pool.New(pool.Config[*native.Buffer]{
		SafetyWindow: o.safetyWindow,
		Release:      c.dev.DestroyBuffer,
	})

	Logger().Info("pica: context opened",
		"heap", o.heapSize, "safetyWindow", c.textures.SafetyWindow(), "hal", halName(dev))

	if err := c.RestoreState(); err != nil {
		c.dev.Close()
		return nil, err
	}
	return c, nil
}

func openDevice(o *options) (*native.Device, error) {
	switch {
	case o.headless:
		return native.New(nil, nil, o.heapSize), nil
	case o.device != nil:
		return native.New(o.device, o.queue, o.heapSize), nil
	case o.provider != nil:
		hp, ok := o.provider.(halProvider)
		if !ok {
			return nil, ErrNoHALProvider
		}
		device, _ := hp.HalDevice().(hal.Device)
		queue, _ := hp.HalQueue().(hal.Queue)
		if device == nil || queue == nil {
			return nil, ErrNoHALProvider
		}
		info := o.provider.AdapterInfo()
		Logger().Debug("pica: using provider device", "adapter", info.Name, "type", info.Type.String())
		return native.New(device, queue, o.heapSize), nil
	default:
		dev, err := native.OpenNoop(o.heapSize)
		if err != nil {
			return nil, fmt.Errorf("pica: open default device: %w", err)
		}
		return dev, nil
	}
}

func halName(d *native.Device) string {
	if device, _ := d.HAL(); device == nil {
		return "none"
	}
	return "attached"
}

// RestoreState creates the default texture: 8x8 opaque white, bound in
// place of null or deleted textures. It is a no-op if the texture exists.
func (c *Context) RestoreState() error {
	if c.closed {
		return ErrClosed
	}
	if _, ok := c.textures.Get(c.defaultTex.texturePoolID()); ok {
		return nil
	}

	white := NewBitmap(TileSize, TileSize)
	white.Fill(White)
	id, err := c.CreateTexture(white, 0)
	if err != nil {
		return fmt.Errorf("pica: default texture: %w", err)
	}
	c.defaultTex = id
	Logger().Debug("pica: state restored", "defaultTexture", id)
	return nil
}

// FreeState deletes the default texture. Its storage is released by a
// later EndFrame like any other texture.
func (c *Context) FreeState() {
	c.DeleteTexture(&c.defaultTex)
}

// DefaultTexture returns the ID of the default white texture, or
// NullResource after FreeState.
func (c *Context) DefaultTexture() ResourceID { return c.defaultTex }

// BeginFrame starts recording a frame.
func (c *Context) BeginFrame() {
	debug.Assert(!c.inFrame, "BeginFrame called twice without EndFrame")
	c.inFrame = true
}

// EndFrame submits the frame's command list, releases pending resources
// whose safety window has passed, and advances the frame counter.
//
// Buffers are swept before textures. Both sweeps use the frame that just
// ended, then the counter moves on.
func (c *Context) EndFrame() {
	if c.closed {
		return
	}
	c.inFrame = false
	c.dev.FlushCommands()

	now := c.clock.Now()
	bufs := c.buffers.Sweep(now)
	texs := c.textures.Sweep(now)
	c.bufFreed += uint64(bufs) //nolint:gosec // G115: count is non-negative
	c.texFreed += uint64(texs) //nolint:gosec // G115: count is non-negative
	if bufs+texs > 0 {
		Logger().Debug("pica: released pending resources", "frame", now, "buffers", bufs, "textures", texs)
	}

	c.clock.Advance()
}

// Frame returns the current frame number.
func (c *Context) Frame() uint32 { return c.clock.Now() }

// SafetyWindow returns the number of frames deleted resources are kept
// after their last bind.
func (c *Context) SafetyWindow() uint32 { return c.textures.SafetyWindow() }

// Commands returns the register writes recorded since the last EndFrame.
// The list is reset by EndFrame.
func (c *Context) Commands() []gpucmd.Write { return c.dev.Commands().Writes() }

// Reset handles a lost GPU context. Every texture and buffer is released
// at once, the frame counter rewinds, and the default state is rebuilt.
// All IDs issued before Reset are stale afterwards.
func (c *Context) Reset() error {
	if c.closed {
		return ErrClosed
	}
	texs := c.textures.Drain()
	bufs := c.buffers.Drain()
	Logger().Warn("pica: context reset, resources drained", "textures", texs, "buffers", bufs)

	c.defaultTex = NullResource
	c.indexBuf = NullResource
	c.indexCap = 0
	c.inFrame = false
	c.dev.Commands().Reset()
	c.clock.Reset()
	return c.RestoreState()
}

// Close releases every resource immediately and closes the device if the
// context opened it. Close is idempotent.
func (c *Context) Close() {
	if c.closed {
		return
	}
	texs := c.textures.Drain()
	bufs := c.buffers.Drain()
	c.dev.Close()
	c.closed = true
	c.defaultTex = NullResource
	c.indexBuf = NullResource
	Logger().Info("pica: context closed", "frame", c.clock.Now(), "textures", texs, "buffers", bufs)
}
