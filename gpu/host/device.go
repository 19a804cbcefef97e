// Package host is a CPU implementation of the gpu device and kernel
// interfaces. It runs the same step as the compute shader on a worker pool
// and is used for headless runs, tests and cross-checking the shader.
package host

import (
	"fmt"
	"unsafe"

	"github.com/pthm-cable/galaxy/gpu"
	"github.com/pthm-cable/galaxy/sim"
)

// Buffer is a host allocation backed by float32 words so kernels can view it
// as vectors without realignment.
type Buffer struct {
	dev      *Device
	label    string
	usage    gpu.Usage
	size     int
	words    []float32
	released bool
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Size() int     { return b.size }

func (b *Buffer) bytes() []byte {
	if len(b.words) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&b.words[0])), b.size)
}

// Vec2s views the buffer as packed vec2.
func (b *Buffer) Vec2s() []sim.Vec2 {
	if len(b.words) < 2 {
		return nil
	}
	return unsafe.Slice((*sim.Vec2)(unsafe.Pointer(&b.words[0])), b.size/gpu.Vec2Size)
}

// Vec4s views the buffer as packed vec4.
func (b *Buffer) Vec4s() []sim.Vec4 {
	if len(b.words) < 4 {
		return nil
	}
	return unsafe.Slice((*sim.Vec4)(unsafe.Pointer(&b.words[0])), b.size/gpu.Vec4Size)
}

// Option configures a Device.
type Option func(*Device)

// WithMemoryLimit caps the total bytes of live buffers. Allocations beyond the
// limit fail with gpu.ErrAllocation, the way an exhausted device would.
func WithMemoryLimit(bytes int) Option {
	return func(d *Device) { d.limit = bytes }
}

// Device is a host memory device. It is not safe for concurrent use.
type Device struct {
	limit int
	live  int
	count int
	lost  bool
}

// NewDevice creates a host device.
func NewDevice(opts ...Option) *Device {
	d := &Device{}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Device) Name() string { return "host" }

// LiveBytes returns the bytes held by unreleased buffers.
func (d *Device) LiveBytes() int { return d.live }

// LiveBuffers returns the number of unreleased buffers.
func (d *Device) LiveBuffers() int { return d.count }

// Lose marks the device as lost. Every later call fails with gpu.ErrDeviceLost.
func (d *Device) Lose() { d.lost = true }

func (d *Device) NewBuffer(label string, size int, usage gpu.Usage) (gpu.Buffer, error) {
	if d.lost {
		return nil, gpu.ErrDeviceLost
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", gpu.ErrAllocation, size)
	}
	if d.limit > 0 && d.live+size > d.limit {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d of %d in use",
			gpu.ErrAllocation, label, size, d.live, d.limit)
	}
	b := &Buffer{
		dev:   d,
		label: label,
		usage: usage,
		size:  size,
		words: make([]float32, (size+3)/4),
	}
	d.live += size
	d.count++
	return b, nil
}

// buffer resolves a handle created by this device.
func (d *Device) buffer(b gpu.Buffer) (*Buffer, error) {
	hb, ok := b.(*Buffer)
	if !ok || hb.dev != d {
		return nil, gpu.ErrForeignBuffer
	}
	if hb.released {
		return nil, fmt.Errorf("%w: %s", gpu.ErrReleased, hb.label)
	}
	return hb, nil
}

func (d *Device) WriteBuffer(b gpu.Buffer, offset int, data []byte) error {
	if d.lost {
		return gpu.ErrDeviceLost
	}
	hb, err := d.buffer(b)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > hb.size {
		return fmt.Errorf("write %s: range [%d,%d) outside %d bytes", hb.label, offset, offset+len(data), hb.size)
	}
	copy(hb.bytes()[offset:], data)
	return nil
}

func (d *Device) ReadBuffer(b gpu.Buffer, offset int, dst []byte) error {
	if d.lost {
		return gpu.ErrDeviceLost
	}
	hb, err := d.buffer(b)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(dst) > hb.size {
		return fmt.Errorf("read %s: range [%d,%d) outside %d bytes", hb.label, offset, offset+len(dst), hb.size)
	}
	copy(dst, hb.bytes()[offset:])
	return nil
}

func (d *Device) Release(b gpu.Buffer) {
	hb, err := d.buffer(b)
	if err != nil {
		return
	}
	hb.released = true
	hb.words = nil
	d.live -= hb.size
	d.count--
}

// Sync is a no-op: dispatches on the host device complete before returning.
func (d *Device) Sync() error {
	if d.lost {
		return gpu.ErrDeviceLost
	}
	return nil
}

var _ gpu.Device = (*Device)(nil)
