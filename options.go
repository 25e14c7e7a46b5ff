package pica

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pica/internal/pool"
)

// DefaultHeapSize is the default size of the GPU-addressable linear heap.
const DefaultHeapSize = 16 << 20

// Option configures a Context during creation.
// Use functional options to customize Context behavior.
//
// Example:
//
//	// Headless context on the noop HAL backend
//	ctx, err := pica.NewContext()
//
//	// Share a device owned by the windowing layer
//	ctx, err := pica.NewContext(pica.WithDeviceProvider(provider))
type Option func(*options)

// options holds optional configuration for Context creation.
type options struct {
	safetyWindow uint32
	heapSize     int

	device   hal.Device
	queue    hal.Queue
	provider gpucontext.DeviceProvider
	headless bool
}

// defaultOptions returns the default context options.
func defaultOptions() options {
	return options{
		safetyWindow: pool.DefaultSafetyWindow,
		heapSize:     DefaultHeapSize,
	}
}

// WithSafetyWindow sets how many completed frames a deleted resource
// stays allocated after its last bind. Platforms that queue more frames
// ahead need a larger window. Zero keeps the default of 4.
func WithSafetyWindow(frames uint32) Option {
	return func(o *options) {
		if frames > 0 {
			o.safetyWindow = frames
		}
	}
}

// WithHeapSize sets the size in bytes of the GPU-addressable linear heap
// that backs all textures and buffers.
func WithHeapSize(bytes int) Option {
	return func(o *options) {
		if bytes > 0 {
			o.heapSize = bytes
		}
	}
}

// WithHALDevice uses an existing HAL device and queue. The caller keeps
// ownership; Close does not destroy them.
func WithHALDevice(device hal.Device, queue hal.Queue) Option {
	return func(o *options) {
		o.device = device
		o.queue = queue
	}
}

// WithDeviceProvider takes the HAL device and queue from a provider that
// also exposes HalDevice() any and HalQueue() any, as the windowing layer's
// providers do.
func WithDeviceProvider(provider gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithHeadless keeps resources in the linear heap only, without HAL
// mirrors. Useful for tools and tests that never present a frame.
func WithHeadless() Option {
	return func(o *options) {
		o.headless = true
	}
}
