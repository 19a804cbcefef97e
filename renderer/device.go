package renderer

import (
	"fmt"
	"log/slog"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/galaxy/gpu"
	"github.com/pthm-cable/galaxy/logging"
)

// GL enums rlgl takes as plain integers.
const (
	glDynamicCopy   = 0x88EA
	glComputeShader = 0x91B9
)

// Buffer is a shader storage buffer object.
type Buffer struct {
	dev      *Device
	id       uint32
	label    string
	size     int
	usage    gpu.Usage
	released bool
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Size() int     { return b.size }

// ID returns the GL buffer name.
func (b *Buffer) ID() uint32 { return b.id }

// Device allocates SSBOs through rlgl. It requires a current GL 4.3 context,
// which raylib creates when built with the opengl43 tag, and must be used
// from the thread that owns the window.
type Device struct {
	live  int
	count int
	log   *slog.Logger
}

// NewDevice returns a device for the current raylib window.
func NewDevice() *Device {
	return &Device{log: logging.For("gpu")}
}

func (d *Device) Name() string { return "opengl43" }

// LiveBytes returns the bytes held by unreleased buffers.
func (d *Device) LiveBytes() int { return d.live }

func (d *Device) NewBuffer(label string, size int, usage gpu.Usage) (gpu.Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %s has size %d", gpu.ErrAllocation, label, size)
	}
	// A nil data pointer makes rlgl zero the storage.
	id := rl.LoadShaderBuffer(uint32(size), nil, glDynamicCopy)
	if id == 0 {
		return nil, fmt.Errorf("%w: %s (%d bytes)", gpu.ErrAllocation, label, size)
	}
	d.live += size
	d.count++
	d.log.Debug("ssbo created", "label", label, "id", id, "bytes", size, "usage", usage)
	return &Buffer{dev: d, id: id, label: label, size: size, usage: usage}, nil
}

// buffer resolves a handle created by this device.
func (d *Device) buffer(b gpu.Buffer) (*Buffer, error) {
	gb, ok := b.(*Buffer)
	if !ok || gb.dev != d {
		return nil, gpu.ErrForeignBuffer
	}
	if gb.released {
		return nil, fmt.Errorf("%w: %s", gpu.ErrReleased, gb.label)
	}
	return gb, nil
}

func (d *Device) WriteBuffer(b gpu.Buffer, offset int, data []byte) error {
	gb, err := d.buffer(b)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > gb.size {
		return fmt.Errorf("write %s: range [%d,%d) outside %d bytes", gb.label, offset, offset+len(data), gb.size)
	}
	if len(data) == 0 {
		return nil
	}
	rl.UpdateShaderBuffer(gb.id, unsafe.Pointer(&data[0]), uint32(len(data)), uint32(offset))
	return nil
}

// ReadBuffer copies device memory back to dst. The driver waits for every
// pending write to the buffer first.
func (d *Device) ReadBuffer(b gpu.Buffer, offset int, dst []byte) error {
	gb, err := d.buffer(b)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(dst) > gb.size {
		return fmt.Errorf("read %s: range [%d,%d) outside %d bytes", gb.label, offset, offset+len(dst), gb.size)
	}
	if len(dst) == 0 {
		return nil
	}
	rl.ReadShaderBuffer(gb.id, unsafe.Pointer(&dst[0]), uint32(len(dst)), uint32(offset))
	return nil
}

func (d *Device) Release(b gpu.Buffer) {
	gb, err := d.buffer(b)
	if err != nil {
		return
	}
	rl.UnloadShaderBuffer(gb.id)
	gb.released = true
	d.live -= gb.size
	d.count--
	d.log.Debug("ssbo released", "label", gb.label, "id", gb.id)
}

// Sync flushes raylib's pending draw batch. Visibility of compute writes is
// handled by the barrier after each dispatch; GL defers deleting a buffer
// until the commands that reference it have finished.
func (d *Device) Sync() error {
	rl.DrawRenderBatchActive()
	return nil
}

var _ gpu.Device = (*Device)(nil)
