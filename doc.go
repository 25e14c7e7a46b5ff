// Package pica manages GPU-resident textures and buffers for a
// fixed-function GPU with a tiled texture layout.
//
// # Overview
//
// The GPU reads texels and vertices straight out of a linear,
// physically addressed heap while the CPU records the next frame. pica
// owns that memory: it converts bitmaps into the GPU's tiled texture
// layout, hands out IDs for textures and buffers, and delays the release
// of deleted resources until the GPU can no longer be reading them.
//
// # Quick Start
//
//	ctx, err := pica.NewContext()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	bmp := pica.NewBitmap(64, 64)
//	bmp.Fill(pica.PackRGBA(255, 0, 0, 255))
//	tex, err := ctx.CreateTexture(bmp, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for running {
//	    ctx.BeginFrame()
//	    ctx.BindTexture(tex)
//	    // ... draw ...
//	    ctx.EndFrame()
//	}
//	ctx.DeleteTexture(&tex)
//
// # Deferred Deletion
//
// A resource bound in frame F may be read by the GPU until frame
// F+SafetyWindow-1 has completed. DeleteTexture and DeleteBuffer only move
// the resource to a pending list and clear the caller's handle. Each
// EndFrame sweeps buffers, then textures, and releases entries whose last
// bind is at least SafetyWindow frames old, so a resource bound in frame F
// is released by the EndFrame of frame F+SafetyWindow. The window defaults to 4 and
// is set with WithSafetyWindow.
//
// Binding a null or deleted texture binds the 8x8 white default texture
// created by RestoreState.
//
// # Texture Layout
//
// Textures are stored in 8x8 tiles. Inside a tile, texels follow a
// Z-order curve on the interleaved bits of their coordinates; tiles are
// laid out row-major and rows are stored bottom-up. CreateTexture and
// UpdateTexture convert from top-down linear bitmaps, and ReadTexture
// converts back.
//
// # Devices
//
// Every texture and buffer is mirrored to a wgpu HAL device when one is
// attached (WithHALDevice, WithDeviceProvider). Without options, pica
// opens the noop HAL backend. WithHeadless skips the mirrors.
//
// # Logging
//
// pica is silent by default. SetLogger enables structured logging
// through log/slog.
//
// # Debug Builds
//
// Misuse that the GPU cannot report, such as updating a texture outside
// its bounds, is ignored in normal builds. Build with -tags picadebug to
// turn these into panics.
package pica
