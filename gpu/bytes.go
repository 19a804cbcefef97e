package gpu

import (
	"unsafe"

	"github.com/pthm-cable/galaxy/sim"
)

// Byte sizes of the element types as laid out on the device (std430).
const (
	Vec2Size = int(unsafe.Sizeof(sim.Vec2{}))
	Vec4Size = int(unsafe.Sizeof(sim.Vec4{}))
)

// Vec2Bytes views v as raw bytes without copying.
func Vec2Bytes(v []sim.Vec2) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*Vec2Size)
}

// Vec4Bytes views v as raw bytes without copying.
func Vec4Bytes(v []sim.Vec4) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*Vec4Size)
}
