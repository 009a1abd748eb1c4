package erosion_test

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/erosim/internal/compute"
	"github.com/san-kum/erosim/internal/erosion"
)

type heightmap struct {
	width  int
	maxH   float32
	height []float32
	water  []float32
}

func (h *heightmap) Width() int         { return h.width }
func (h *heightmap) MaxHeight() float32 { return h.maxH }
func (h *heightmap) Heights() []float32 { return h.height }
func (h *heightmap) Water() []float32   { return h.water }

// ridges builds a deterministic rolling surface.
func ridges(width int) *heightmap {
	h := &heightmap{
		width:  width,
		height: make([]float32, width*width),
		water:  make([]float32, width*width),
	}
	for z := 0; z < width; z++ {
		for x := 0; x < width; x++ {
			fx, fz := float64(x)/float64(width), float64(z)/float64(width)
			v := 40 + 25*math.Sin(fx*9)*math.Cos(fz*7) + 10*math.Sin((fx+fz)*23)
			h.height[z*width+x] = float32(v)
			h.maxH = max(h.maxH, float32(v))
		}
	}
	return h
}

type recorder struct {
	busy      atomic.Bool
	mu        sync.Mutex
	calls     int
	lastWater bool
}

func (r *recorder) NeedsUpload() bool { return r.busy.Load() }

func (r *recorder) Regenerate(includeWater bool) {
	r.mu.Lock()
	r.calls++
	r.lastWater = includeWater
	r.mu.Unlock()
}

func (r *recorder) snapshot() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.lastWater
}

type failingDevice struct {
	*compute.ReferenceDevice
	failAt int
	calls  int
}

func (d *failingDevice) Dispatch(s compute.Stage, u compute.Uniforms) error {
	d.calls++
	if d.calls >= d.failAt {
		return compute.ErrDeviceLost
	}
	return d.ReferenceDevice.Dispatch(s, u)
}

func shortParams(steps int) erosion.Params {
	p := erosion.DefaultParams()
	p.Steps = steps
	p.RainFrequency = 10
	return p
}

var _ = Describe("Engine", func() {
	var (
		engine *erosion.Engine
		land   *heightmap
	)

	BeforeEach(func() {
		engine = erosion.NewEngine(shortParams(40))
		land = ridges(32)
	})

	AfterEach(func() {
		engine.Stop()
		Expect(engine.Release()).To(Succeed())
	})

	Context("before Bind", func() {
		It("rejects runs and scoring", func() {
			Expect(engine.Start(erosion.CPU)).To(MatchError(erosion.ErrNotBound))
			_, err := engine.Score()
			Expect(err).To(MatchError(erosion.ErrNotBound))
			Expect(engine.Width()).To(BeZero())
		})

		It("treats Stop as a no-op", func() {
			engine.Stop()
			engine.Stop()
			Expect(engine.Eroding()).To(BeFalse())
		})
	})

	Context("Bind", func() {
		It("rejects tiny and inconsistent terrain", func() {
			Expect(engine.Bind(&heightmap{width: 2, maxH: 1, height: make([]float32, 4), water: make([]float32, 4)})).
				To(MatchError(erosion.ErrGridTooSmall))
			Expect(engine.Bind(&heightmap{width: 8, maxH: 1, height: make([]float32, 63), water: make([]float32, 64)})).
				To(MatchError(erosion.ErrSizeMismatch))
		})

		It("refuses a second bind until released", func() {
			Expect(engine.Bind(land)).To(Succeed())
			Expect(engine.Bind(ridges(16))).To(MatchError(erosion.ErrAlreadyBound))
			Expect(engine.Release()).To(Succeed())
			Expect(engine.Bind(ridges(16))).To(Succeed())
			Expect(engine.Width()).To(Equal(16))
		})

		It("rejects terrain without a positive maximum at start", func() {
			land.maxH = 0
			Expect(engine.Bind(land)).To(Succeed())
			Expect(engine.Start(erosion.CPU)).To(MatchError(erosion.ErrMaxHeight))
		})
	})

	Context("CPU runs", func() {
		BeforeEach(func() {
			Expect(engine.Bind(land)).To(Succeed())
		})

		It("completes every step and changes the surface in place", func() {
			before := append([]float32(nil), land.height...)
			Expect(engine.Start(erosion.CPU)).To(Succeed())
			Eventually(engine.Eroding, 10*time.Second).Should(BeFalse())

			Expect(engine.Step()).To(Equal(40))
			Expect(engine.LastError()).NotTo(HaveOccurred())
			Expect(engine.Stats().Steps).To(Equal(40))
			Expect(land.height).NotTo(Equal(before))

			edge := land.width - 1
			Expect(land.height[edge]).To(Equal(before[edge]))
			Expect(land.height[edge*land.width]).To(Equal(before[edge*land.width]))
		})

		It("rejects a second start while running", func() {
			engine.SetParams(shortParams(100000))
			Expect(engine.Start(erosion.CPU)).To(Succeed())
			Expect(engine.Start(erosion.CPU)).To(MatchError(erosion.ErrRunning))
			Expect(engine.Start(erosion.GPU)).To(MatchError(erosion.ErrRunning))
			Expect(engine.Release()).To(MatchError(erosion.ErrRunning))
		})

		It("stops cooperatively and can be restarted", func() {
			engine.SetParams(shortParams(1000))
			Expect(engine.Start(erosion.CPU)).To(Succeed())
			Eventually(engine.Step).Should(BeNumerically(">", 0))
			engine.Stop()

			stopped := engine.Step()
			Expect(engine.Eroding()).To(BeFalse())
			Expect(stopped).To(BeNumerically("<", 1000))
			Consistently(engine.Step, 50*time.Millisecond).Should(Equal(stopped))
			engine.Stop()

			engine.SetParams(shortParams(5))
			Expect(engine.Start(erosion.CPU)).To(Succeed())
			engine.Wait()
			Expect(engine.Step()).To(Equal(5))
		})

		It("signals the consumer on each step and once more with water at the end", func() {
			r := &recorder{}
			engine.SetConsumer(r)
			engine.SetWaterPreview(false)
			Expect(engine.Start(erosion.CPU)).To(Succeed())
			engine.Wait()

			calls, water := r.snapshot()
			Expect(calls).To(Equal(41))
			Expect(water).To(BeTrue())
		})

		It("skips the final signal when stopped while the consumer is busy", func() {
			r := &recorder{}
			r.busy.Store(true)
			engine.SetConsumer(r)
			engine.SetParams(shortParams(3))
			Expect(engine.Start(erosion.CPU)).To(Succeed())
			Eventually(engine.Step).Should(Equal(3))
			engine.Stop()

			calls, _ := r.snapshot()
			Expect(calls).To(BeZero())
		})

		It("rejects invalid parameters", func() {
			p := shortParams(10)
			p.KE = 2
			engine.SetParams(p)
			Expect(engine.Start(erosion.CPU)).To(MatchError(erosion.ErrInvalidParams))
			Expect(engine.Eroding()).To(BeFalse())
		})
	})

	Context("GPU runs", func() {
		BeforeEach(func() {
			Expect(engine.Bind(land)).To(Succeed())
		})

		It("fails with a RunError when no device is attached", func() {
			err := engine.Start(erosion.GPU)
			var runErr *erosion.RunError
			Expect(errors.As(err, &runErr)).To(BeTrue())
			Expect(runErr.Backend).To(Equal(erosion.GPU))
			Expect(err).To(MatchError(compute.ErrUnavailable))
			Expect(engine.LastError()).To(Equal(err))
			Expect(engine.Eroding()).To(BeFalse())
		})

		It("runs synchronously on the reference device", func() {
			Expect(engine.SetDevice(compute.NewReferenceDevice())).To(Succeed())
			r := &recorder{}
			engine.SetConsumer(r)

			Expect(engine.Start(erosion.GPU)).To(Succeed())
			Expect(engine.Eroding()).To(BeFalse())
			Expect(engine.Step()).To(Equal(40))
			Expect(engine.Stats().Backend).To(Equal(erosion.GPU))

			calls, water := r.snapshot()
			Expect(calls).To(Equal(1))
			Expect(water).To(BeTrue())
		})

		It("reports the step a failing device stopped at", func() {
			dev := &failingDevice{ReferenceDevice: compute.NewReferenceDevice(), failAt: 7}
			Expect(engine.SetDevice(dev)).To(Succeed())

			err := engine.Start(erosion.GPU)
			Expect(err).To(MatchError(compute.ErrDeviceLost))
			var runErr *erosion.RunError
			Expect(errors.As(err, &runErr)).To(BeTrue())
			Expect(runErr.Step).To(Equal(2))
			Expect(engine.Stats().Failed).To(BeTrue())
		})
	})

	Describe("backend parity", func() {
		It("scores both backends within a tolerance band", func() {
			cpuLand, gpuLand := ridges(48), ridges(48)
			p := shortParams(60)

			cpuEngine := erosion.NewEngine(p)
			Expect(cpuEngine.Bind(cpuLand)).To(Succeed())
			defer cpuEngine.Release()
			Expect(cpuEngine.Start(erosion.CPU)).To(Succeed())
			cpuEngine.Wait()
			cpuScore, err := cpuEngine.Score()
			Expect(err).NotTo(HaveOccurred())

			gpuEngine := erosion.NewEngine(p)
			Expect(gpuEngine.Bind(gpuLand)).To(Succeed())
			defer gpuEngine.Release()
			Expect(gpuEngine.SetDevice(compute.NewReferenceDevice())).To(Succeed())
			Expect(gpuEngine.Start(erosion.GPU)).To(Succeed())
			gpuScore, err := gpuEngine.Score()
			Expect(err).NotTo(HaveOccurred())

			Expect(cpuScore).To(BeNumerically(">", 0))
			Expect(gpuScore).To(BeNumerically("~", cpuScore, cpuScore*0.25))
		})
	})
})
