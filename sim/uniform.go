package sim

import (
	"encoding/binary"
	"fmt"
	"math"
)

// UniformSize is the byte size of a packed uniform record.
const UniformSize = 48

// PackedUniform is the parameter record read by the compute kernel. Three
// vec4 of float32, std140/std430 compatible:
//
//	[0] dt, g, softening, n
//	[1] damping, wrap, color_by_speed, reserved
//	[2] world.min.x, world.min.y, world.max.x, world.max.y
//
// The kernel reads this layout directly; any change here must be mirrored in
// the shader.
type PackedUniform [3][4]float32

// Pack derives the uniform record from p. Booleans are encoded as 0 or 1.
func (p Params) Pack() PackedUniform {
	return PackedUniform{
		{p.DT, p.G, p.Softening, float32(p.N)},
		{p.Damping, boolf(p.Wrap), boolf(p.ColorBySpeed), 0},
		{p.World.Min.X, p.World.Min.Y, p.World.Max.X, p.World.Max.Y},
	}
}

// Bytes returns the little-endian encoding uploaded to the device.
func (u PackedUniform) Bytes() []byte {
	buf := make([]byte, UniformSize)
	u.PutBytes(buf)
	return buf
}

// PutBytes encodes u into buf, which must hold UniformSize bytes.
func (u PackedUniform) PutBytes(buf []byte) {
	_ = buf[UniformSize-1]
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			binary.LittleEndian.PutUint32(buf[(i*4+j)*4:], math.Float32bits(u[i][j]))
		}
	}
}

// DecodeUniform parses a record produced by Bytes.
func DecodeUniform(buf []byte) (PackedUniform, error) {
	var u PackedUniform
	if len(buf) < UniformSize {
		return u, fmt.Errorf("uniform record: need %d bytes, got %d", UniformSize, len(buf))
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			u[i][j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[(i*4+j)*4:]))
		}
	}
	return u, nil
}

// Field accessors used by kernels.

func (u PackedUniform) DT() float32        { return u[0][0] }
func (u PackedUniform) G() float32         { return u[0][1] }
func (u PackedUniform) Softening() float32 { return u[0][2] }
func (u PackedUniform) N() uint32          { return uint32(u[0][3]) }
func (u PackedUniform) Damping() float32   { return u[1][0] }
func (u PackedUniform) Wrap() bool         { return u[1][1] != 0 }
func (u PackedUniform) ColorBySpeed() bool { return u[1][2] != 0 }
func (u PackedUniform) World() Bounds {
	return Bounds{Min: Vec2{u[2][0], u[2][1]}, Max: Vec2{u[2][2], u[2][3]}}
}

func boolf(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
