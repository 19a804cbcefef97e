// Package gpu manages device-resident particle storage.
//
// A Device allocates opaque buffers and moves bytes in and out of them. A
// Kernel runs the N-body step against a Bindings set. Storage owns the two
// position/velocity regions, the color array and the uniform slot, and hands
// out typed read and write region handles so a step can never read and write
// the same region.
package gpu

import "errors"

// Errors reported by devices and storage.
var (
	// ErrAllocation means the device could not provide a buffer. Storage keeps
	// its previous buffers when this happens.
	ErrAllocation = errors.New("gpu: buffer allocation failed")
	// ErrDeviceLost means the device can no longer execute commands.
	ErrDeviceLost = errors.New("gpu: device lost")
	// ErrCapacityExceeded means an upload is larger than the allocated capacity.
	ErrCapacityExceeded = errors.New("gpu: upload exceeds capacity")
	// ErrForeignBuffer means a buffer from another device was passed in.
	ErrForeignBuffer = errors.New("gpu: buffer belongs to another device")
	// ErrReleased means a released buffer or storage was used.
	ErrReleased = errors.New("gpu: use of released buffer")
)

// Usage tells the device how a buffer will be bound.
type Usage uint8

const (
	UsageStorage Usage = iota // Read-write shader storage
	UsageUniform              // Small read-only parameter block
)

func (u Usage) String() string {
	if u == UsageUniform {
		return "uniform"
	}
	return "storage"
}

// Buffer is an opaque device allocation.
type Buffer interface {
	Label() string
	Size() int
}

// Device is the allocation and transfer surface of a compute backend.
// Writes are queued; their effects are visible to subsequent dispatches in
// submission order. ReadBuffer and Sync are synchronization points.
type Device interface {
	// Name identifies the backend in logs.
	Name() string
	NewBuffer(label string, size int, usage Usage) (Buffer, error)
	WriteBuffer(b Buffer, offset int, data []byte) error
	ReadBuffer(b Buffer, offset int, dst []byte) error
	Release(b Buffer)
	// Sync blocks until all queued work has completed.
	Sync() error
}

// Kernel is the compiled N-body step. Dispatch is fire-and-forget from the
// caller's point of view; failures surface at the next sync point at the
// latest.
type Kernel interface {
	WorkgroupSize() uint32
	Dispatch(b Bindings, groups uint32) error
	Close() error
}

// GroupCount returns ceil(n / workgroupSize).
func GroupCount(n, workgroupSize uint32) uint32 {
	if workgroupSize == 0 {
		return 0
	}
	return (n + workgroupSize - 1) / workgroupSize
}
