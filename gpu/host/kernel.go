package host

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/pthm-cable/galaxy/gpu"
	"github.com/pthm-cable/galaxy/sim"
)

// parallelThreshold is the minimum particle count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 256

// workChunk is a range of particles for a worker to process.
type workChunk struct {
	start, end int
}

// step holds the views of one dispatch. Workers only read src and write dst.
type step struct {
	u      sim.PackedUniform
	n      int
	srcPos []sim.Vec2
	srcVel []sim.Vec2
	dstPos []sim.Vec2
	dstVel []sim.Vec2
}

// Kernel runs the N-body step on the CPU.
type Kernel struct {
	dev           *Device
	workgroupSize uint32
	numWorkers    int

	cur step

	// Worker pool channels
	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewKernel creates a kernel for buffers of dev. Workers start lazily on the
// first large dispatch.
func NewKernel(dev *Device, workgroupSize uint32) *Kernel {
	if workgroupSize == 0 {
		workgroupSize = 64
	}
	return &Kernel{
		dev:           dev,
		workgroupSize: workgroupSize,
		numWorkers:    runtime.GOMAXPROCS(0),
	}
}

func (k *Kernel) WorkgroupSize() uint32 { return k.workgroupSize }

// Dispatch runs groups workgroups. Invocations with an index at or above the
// uniform's particle count do nothing, as on the device.
func (k *Kernel) Dispatch(b gpu.Bindings, groups uint32) error {
	if k.dev.lost {
		return gpu.ErrDeviceLost
	}
	if b.Src.Positions == b.Dst.Positions || b.Src.Velocities == b.Dst.Velocities {
		return fmt.Errorf("dispatch: source and destination alias")
	}

	ub, err := k.dev.buffer(b.Uniform)
	if err != nil {
		return fmt.Errorf("uniform: %w", err)
	}
	u, err := sim.DecodeUniform(ub.bytes())
	if err != nil {
		return err
	}

	views := make([][]sim.Vec2, 4)
	for i, buf := range []gpu.Buffer{b.Src.Positions, b.Src.Velocities, b.Dst.Positions, b.Dst.Velocities} {
		hb, err := k.dev.buffer(buf)
		if err != nil {
			return fmt.Errorf("binding %d: %w", i, err)
		}
		views[i] = hb.Vec2s()
	}

	n := int(min(u.N(), groups*k.workgroupSize))
	for _, v := range views {
		n = min(n, len(v))
	}

	k.cur = step{
		u:      u,
		n:      int(u.N()),
		srcPos: views[0],
		srcVel: views[1],
		dstPos: views[2],
		dstVel: views[3],
	}
	// Gravity sums over every particle in the source region, bounded by what
	// the buffers hold.
	k.cur.n = min(k.cur.n, len(views[0]), len(views[1]))

	if n < parallelThreshold {
		k.computeChunk(0, n)
	} else {
		k.computeParallel(n)
	}
	k.cur = step{}
	return nil
}

// computeParallel splits [0,n) into per-worker chunks aligned to workgroups.
func (k *Kernel) computeParallel(n int) {
	if !k.running {
		k.startWorkers()
	}

	ws := int(k.workgroupSize)
	groups := (n + ws - 1) / ws
	groupsPerWorker := (groups + k.numWorkers - 1) / k.numWorkers
	chunkSize := groupsPerWorker * ws

	dispatched := 0
	for w := 0; w < k.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		k.workChan <- workChunk{start: start, end: end}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-k.doneChan
	}
}

func (k *Kernel) startWorkers() {
	k.workChan = make(chan workChunk, k.numWorkers)
	k.doneChan = make(chan struct{}, k.numWorkers)
	k.stopChan = make(chan struct{})
	k.running = true

	for i := 0; i < k.numWorkers; i++ {
		k.wg.Add(1)
		go k.worker()
	}
}

func (k *Kernel) worker() {
	defer k.wg.Done()
	for {
		select {
		case <-k.stopChan:
			return
		case chunk, ok := <-k.workChan:
			if !ok {
				return
			}
			k.computeChunk(chunk.start, chunk.end)
			k.doneChan <- struct{}{}
		}
	}
}

// Close stops the worker pool.
func (k *Kernel) Close() error {
	if !k.running {
		return nil
	}
	close(k.stopChan)
	k.wg.Wait()
	close(k.workChan)
	close(k.doneChan)
	k.running = false
	return nil
}

// computeChunk advances particles [i0, i1).
func (k *Kernel) computeChunk(i0, i1 int) {
	s := &k.cur
	u := s.u
	dt := u.DT()
	soft := u.Softening()
	damping := u.Damping()
	// Total mass is 1, spread evenly over the particles.
	gm := u.G() / float32(s.n)
	world := u.World()
	wrap := u.Wrap()

	for i := i0; i < i1; i++ {
		p := s.srcPos[i]
		var ax, ay float32
		for j := 0; j < s.n; j++ {
			if j == i {
				continue
			}
			q := s.srcPos[j]
			dx, dy := p.X-q.X, p.Y-q.Y
			r2 := dx*dx + dy*dy + soft
			if r2 <= 0 {
				continue
			}
			inv := 1 / (r2 * float32(math.Sqrt(float64(r2))))
			ax += dx * inv
			ay += dy * inv
		}
		ax *= gm
		ay *= gm

		v := s.srcVel[i]
		v.X = (v.X + ax*dt) * damping
		v.Y = (v.Y + ay*dt) * damping

		np := sim.Vec2{X: p.X + v.X*dt, Y: p.Y + v.Y*dt}
		if wrap {
			np.X = wrapf(np.X, world.Min.X, world.Max.X)
			np.Y = wrapf(np.Y, world.Min.Y, world.Max.Y)
		}
		s.dstPos[i] = np
		s.dstVel[i] = v
	}
}

// wrapf maps x into [lo, hi) with periodic boundaries.
func wrapf(x, lo, hi float32) float32 {
	size := hi - lo
	if size <= 0 {
		return x
	}
	if x >= lo && x < hi {
		return x
	}
	t := x - lo
	t -= size * float32(math.Floor(float64(t/size)))
	if t >= size {
		t = 0
	}
	return lo + t
}

var _ gpu.Kernel = (*Kernel)(nil)
