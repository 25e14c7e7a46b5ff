package pica

import (
	"fmt"

	"github.com/gogpu/pica/internal/pool"
)

// ResourceID is an opaque handle to a texture or buffer owned by a
// Context. IDs of deleted resources never resolve again, even after the
// slot is reused.
type ResourceID uint64

// NullResource is the null handle. Deleting it is a no-op and binding it
// as a texture binds the default texture.
const NullResource ResourceID = 0

// kindBuffer tags buffer IDs. Pool IDs leave bit 63 clear.
const kindBuffer ResourceID = 1 << 63

// IsNull reports whether id is the null handle.
func (id ResourceID) IsNull() bool { return id == NullResource }

// String returns a debug representation of the handle.
func (id ResourceID) String() string {
	switch {
	case id == NullResource:
		return "Resource(null)"
	case id&kindBuffer != 0:
		p := pool.ID(id &^ kindBuffer)
		return fmt.Sprintf("Buffer(%d@%d)", uint32(p), uint32(p>>32)) //nolint:gosec // G115: field extraction
	default:
		return fmt.Sprintf("Texture(%d@%d)", uint32(id), uint32(id>>32)) //nolint:gosec // G115: field extraction
	}
}

func textureID(id pool.ID) ResourceID { return ResourceID(id) }

func bufferID(id pool.ID) ResourceID {
	if id == pool.Null {
		return NullResource
	}
	return ResourceID(id) | kindBuffer
}

// texturePoolID returns the pool ID for a texture handle. Buffer handles
// map to pool.Null.
func (id ResourceID) texturePoolID() pool.ID {
	if id&kindBuffer != 0 {
		return pool.Null
	}
	return pool.ID(id)
}

// bufferPoolID returns the pool ID for a buffer handle. Texture handles
// map to pool.Null.
func (id ResourceID) bufferPoolID() pool.ID {
	if id&kindBuffer == 0 {
		return pool.Null
	}
	return pool.ID(id &^ kindBuffer)
}
