package pica

import "errors"

// Resource errors.
var (
	// ErrAllocation is returned when GPU-addressable memory for a texture
	// or buffer cannot be allocated. The caller decides whether to abort
	// or retry with a smaller request.
	ErrAllocation = errors.New("pica: GPU memory allocation failed")

	// ErrInvalidDimensions is returned for texture sizes below the
	// minimum or not a multiple of the tile size.
	ErrInvalidDimensions = errors.New("pica: invalid texture dimensions")

	// ErrTextureTooLarge is returned for textures beyond the GPU limits.
	ErrTextureTooLarge = errors.New("pica: texture exceeds GPU limits")

	// ErrNilBitmap is returned when a bitmap argument is nil.
	ErrNilBitmap = errors.New("pica: bitmap is nil")

	// ErrInvalidBuffer is returned for negative buffer sizes.
	ErrInvalidBuffer = errors.New("pica: invalid buffer size")

	// ErrUnknownResource is returned when an ID does not name a live
	// resource of the expected kind.
	ErrUnknownResource = errors.New("pica: unknown resource")

	// ErrClosed is returned when operating on a closed Context.
	ErrClosed = errors.New("pica: context closed")

	// ErrNoHALProvider is returned when a device provider does not expose
	// HAL types.
	ErrNoHALProvider = errors.New("pica: provider does not expose HAL device")
)
