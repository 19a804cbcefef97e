package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/pthm-cable/galaxy/logging"
	"github.com/pthm-cable/galaxy/sim"
)

// MaxCapacity is the largest capacity NextPowerOfTwo can represent.
const MaxCapacity = 1 << 31

// NextPowerOfTwo returns the smallest power of two >= n, with a floor of 1.
func NextPowerOfTwo(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	if n > MaxCapacity {
		return 0
	}
	return 1 << bits.Len32(n-1)
}

// region is one position/velocity pair.
type region struct {
	positions  Buffer
	velocities Buffer
}

// ReadRegion is the source of a step. It can only be obtained from
// Storage.Read or Storage.Bindings.
type ReadRegion struct {
	Marker     sim.BufferMarker
	Positions  Buffer
	Velocities Buffer
}

// WriteRegion is the destination of a step.
type WriteRegion struct {
	Marker     sim.BufferMarker
	Positions  Buffer
	Velocities Buffer
}

// Bindings is everything one kernel dispatch needs. Src and Dst always refer
// to different regions.
type Bindings struct {
	Dst        WriteRegion
	Src        ReadRegion
	Colors     Buffer
	Uniform    Buffer
	Capacity   uint32
	Generation uint64
}

// bufferSet is one complete allocation: two regions, colors and the uniform.
type bufferSet struct {
	regions  [2]region
	colors   Buffer
	uniform  Buffer
	capacity uint32
}

func (s *bufferSet) all() []Buffer {
	out := make([]Buffer, 0, 6)
	for _, r := range s.regions {
		out = append(out, r.positions, r.velocities)
	}
	return append(out, s.colors, s.uniform)
}

// UploadData is a full particle set written by a reset or resize.
type UploadData struct {
	Positions  []sim.Vec2
	Velocities []sim.Vec2
	Colors     []sim.Vec4
}

// Storage owns the device buffers of a simulation.
type Storage struct {
	dev        Device
	set        *bufferSet
	generation uint64
	log        *slog.Logger
}

// NewStorage allocates buffers for at least capacity particles.
func NewStorage(dev Device, capacity uint32) (*Storage, error) {
	s := &Storage{
		dev: dev,
		log: logging.For("storage"),
	}
	set, err := s.allocate(NextPowerOfTwo(capacity))
	if err != nil {
		return nil, err
	}
	s.set = set
	s.generation = 1
	s.log.Info("buffers allocated",
		"device", dev.Name(),
		"capacity", set.capacity,
		"bytes", setBytes(set.capacity),
	)
	return s, nil
}

// Capacity returns the number of particles the buffers can hold.
func (s *Storage) Capacity() uint32 {
	if s.set == nil {
		return 0
	}
	return s.set.capacity
}

// Generation increments every time the buffers are replaced. Consumers that
// cache buffer handles compare it to know when to rebind.
func (s *Storage) Generation() uint64 {
	return s.generation
}

// Device returns the device the buffers live on.
func (s *Storage) Device() Device {
	return s.dev
}

// EnsureCapacity grows the buffers so that at least requested particles fit.
// It never shrinks. The caller must make sure no dispatch is still using the
// current buffers. On failure the existing buffers are left untouched and the
// error wraps ErrAllocation.
func (s *Storage) EnsureCapacity(requested uint32) (bool, error) {
	if s.set == nil {
		return false, ErrReleased
	}
	if requested <= s.set.capacity {
		return false, nil
	}
	capacity := NextPowerOfTwo(requested)
	if capacity == 0 {
		return false, fmt.Errorf("%w: %d particles is beyond the addressable capacity", ErrAllocation, requested)
	}

	set, err := s.allocate(capacity)
	if err != nil {
		s.log.Warn("grow failed, keeping current buffers",
			"requested", requested,
			"capacity", s.set.capacity,
			"error", err,
		)
		return false, err
	}

	old := s.set
	s.set = set
	s.generation++
	s.releaseSet(old)

	s.log.Info("buffers reallocated",
		"from", old.capacity,
		"to", capacity,
		"bytes", setBytes(capacity),
		"generation", s.generation,
	)
	return true, nil
}

// allocate creates a complete buffer set. Partial sets are released on error.
func (s *Storage) allocate(capacity uint32) (*bufferSet, error) {
	set := &bufferSet{capacity: capacity}
	var made []Buffer
	alloc := func(label string, size int, usage Usage) (Buffer, error) {
		b, err := s.dev.NewBuffer(label, size, usage)
		if err != nil {
			for _, m := range made {
				s.dev.Release(m)
			}
			if !errors.Is(err, ErrAllocation) {
				err = fmt.Errorf("%w: %w", ErrAllocation, err)
			}
			return nil, fmt.Errorf("allocate %s (%d bytes): %w", label, size, err)
		}
		made = append(made, b)
		return b, nil
	}

	n := int(capacity)
	for i, m := range []sim.BufferMarker{sim.Primary, sim.Secondary} {
		var err error
		if set.regions[i].positions, err = alloc("positions."+m.String(), n*Vec2Size, UsageStorage); err != nil {
			return nil, err
		}
		if set.regions[i].velocities, err = alloc("velocities."+m.String(), n*Vec2Size, UsageStorage); err != nil {
			return nil, err
		}
	}
	var err error
	if set.colors, err = alloc("colors", n*Vec4Size, UsageStorage); err != nil {
		return nil, err
	}
	if set.uniform, err = alloc("uniform", sim.UniformSize, UsageUniform); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *Storage) releaseSet(set *bufferSet) {
	for _, b := range set.all() {
		s.dev.Release(b)
	}
}

// Release frees every buffer. The storage is unusable afterwards.
func (s *Storage) Release() {
	if s.set == nil {
		return
	}
	s.releaseSet(s.set)
	s.set = nil
}

// Upload writes a particle set. Positions go to both regions, colors to the
// color array and velocities to the Primary region only; the Secondary
// velocities are overwritten by the first step before they are ever read.
// A failed write can leave the set partly updated; it is invalid until the
// next successful Upload.
func (s *Storage) Upload(d UploadData) error {
	if s.set == nil {
		return ErrReleased
	}
	n := len(d.Positions)
	if len(d.Velocities) != n || len(d.Colors) != n {
		return fmt.Errorf("upload: mismatched lengths positions=%d velocities=%d colors=%d",
			n, len(d.Velocities), len(d.Colors))
	}
	if uint32(n) > s.set.capacity {
		return fmt.Errorf("%w: %d particles, capacity %d", ErrCapacityExceeded, n, s.set.capacity)
	}
	if n == 0 {
		return nil
	}

	pos := Vec2Bytes(d.Positions)
	for _, r := range s.set.regions {
		if err := s.dev.WriteBuffer(r.positions, 0, pos); err != nil {
			return fmt.Errorf("upload positions: %w", err)
		}
	}
	primary := s.set.regions[sim.Primary.Index()]
	if err := s.dev.WriteBuffer(primary.velocities, 0, Vec2Bytes(d.Velocities)); err != nil {
		return fmt.Errorf("upload velocities: %w", err)
	}
	if err := s.dev.WriteBuffer(s.set.colors, 0, Vec4Bytes(d.Colors)); err != nil {
		return fmt.Errorf("upload colors: %w", err)
	}
	return nil
}

// WriteUniform uploads the packed parameter record.
func (s *Storage) WriteUniform(u sim.PackedUniform) error {
	if s.set == nil {
		return ErrReleased
	}
	if err := s.dev.WriteBuffer(s.set.uniform, 0, u.Bytes()); err != nil {
		return fmt.Errorf("upload uniform: %w", err)
	}
	return nil
}

// Read returns the region marked current by m.
func (s *Storage) Read(m sim.BufferMarker) ReadRegion {
	r := s.set.regions[m.Index()]
	return ReadRegion{Marker: m, Positions: r.positions, Velocities: r.velocities}
}

// Write returns the region the next step writes to when m is current.
func (s *Storage) Write(m sim.BufferMarker) WriteRegion {
	o := m.Other()
	r := s.set.regions[o.Index()]
	return WriteRegion{Marker: o, Positions: r.positions, Velocities: r.velocities}
}

// Bindings returns the dispatch bindings for a step reading from current.
func (s *Storage) Bindings(current sim.BufferMarker) Bindings {
	return Bindings{
		Dst:        s.Write(current),
		Src:        s.Read(current),
		Colors:     s.set.colors,
		Uniform:    s.set.uniform,
		Capacity:   s.set.capacity,
		Generation: s.generation,
	}
}

// Colors returns the color buffer.
func (s *Storage) Colors() Buffer {
	return s.set.colors
}

// Snapshot reads the first n particles of a region back to the host. It is a
// synchronization point and meant for diagnostics, not for every frame.
func (s *Storage) Snapshot(m sim.BufferMarker, n uint32) (positions, velocities []sim.Vec2, err error) {
	if s.set == nil {
		return nil, nil, ErrReleased
	}
	if n > s.set.capacity {
		n = s.set.capacity
	}
	r := s.Read(m)
	positions = make([]sim.Vec2, n)
	velocities = make([]sim.Vec2, n)
	if n == 0 {
		return positions, velocities, nil
	}
	if err := s.dev.ReadBuffer(r.Positions, 0, Vec2Bytes(positions)); err != nil {
		return nil, nil, fmt.Errorf("read positions: %w", err)
	}
	if err := s.dev.ReadBuffer(r.Velocities, 0, Vec2Bytes(velocities)); err != nil {
		return nil, nil, fmt.Errorf("read velocities: %w", err)
	}
	return positions, velocities, nil
}

// ReadColors reads the first n colors back to the host.
func (s *Storage) ReadColors(n uint32) ([]sim.Vec4, error) {
	if s.set == nil {
		return nil, ErrReleased
	}
	if n > s.set.capacity {
		n = s.set.capacity
	}
	out := make([]sim.Vec4, n)
	if n == 0 {
		return out, nil
	}
	if err := s.dev.ReadBuffer(s.set.colors, 0, Vec4Bytes(out)); err != nil {
		return nil, fmt.Errorf("read colors: %w", err)
	}
	return out, nil
}

// setBytes is the device memory used by a buffer set of the given capacity.
func setBytes(capacity uint32) int {
	n := int(capacity)
	return 4*n*Vec2Size + n*Vec4Size + sim.UniformSize
}
