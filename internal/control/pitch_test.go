package control

import (
	"errors"
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pitchctl/internal/dynamo"
)

var _ = Describe("Pitch", func() {
	var pc *Pitch

	BeforeEach(func() {
		pc = NewPitch(DefaultParams())
	})

	It("starts from the default parameters", func() {
		s := pc.Snapshot()
		Expect(s.Neutral).To(Equal(1500))
		Expect(s.Gains).To(Equal(GainConfig{CommandMax: 1900, Kp: 600, Kd: 50, Enabled: true}))
		Expect(s.Setpoint.DesiredPitch).To(BeZero())
	})

	It("emits neutral at rest", func() {
		Expect(pc.Tick()).To(Equal(1500))
	})

	It("computes the end-to-end command", func() {
		pc.UpdateAttitude(AttitudeSample{Pitch: 0.05, PitchRate: -0.2})
		Expect(pc.Tick()).To(Equal(1480))
	})

	It("is idempotent across repeated ticks", func() {
		pc.UpdateAttitude(AttitudeSample{Pitch: 0.3, PitchRate: 0.1})
		first := pc.Tick()
		Expect(pc.Tick()).To(Equal(first))
	})

	It("saturates at the window edges", func() {
		pc.UpdateAttitude(AttitudeSample{Pitch: 1.5})
		Expect(pc.Tick()).To(Equal(1100))
		pc.UpdateAttitude(AttitudeSample{Pitch: -1.5})
		Expect(pc.Tick()).To(Equal(1900))
	})

	Context("when disabled", func() {
		BeforeEach(func() {
			pc.UpdateGains(GainConfig{CommandMax: 1900, Kp: 600, Kd: 50, Enabled: false})
		})

		DescribeTable("always emits neutral",
			func(pitch, rate float64, target int) {
				pc.UpdateAttitude(AttitudeSample{Pitch: pitch, PitchRate: rate})
				pc.SetTarget(target)
				Expect(pc.Tick()).To(Equal(1500))
			},
			Entry("level", 0.0, 0.0, 0),
			Entry("nose up", 0.8, 2.0, 0),
			Entry("nose down with target", -1.2, -3.0, 45),
			Entry("seam target", 3.0, 0.0, 180),
		)

		It("resumes on the next tick after re-enabling", func() {
			pc.UpdateAttitude(AttitudeSample{Pitch: 0.05, PitchRate: -0.2})
			Expect(pc.Tick()).To(Equal(1500))
			pc.UpdateGains(GainConfig{CommandMax: 1900, Kp: 600, Kd: 50, Enabled: true})
			Expect(pc.Tick()).To(Equal(1480))
		})
	})

	Describe("configuration updates", func() {
		It("clamps a command max below neutral", func() {
			applied := pc.UpdateGains(GainConfig{CommandMax: 1000, Kp: 1, Kd: 2, Enabled: true})
			Expect(applied.CommandMax).To(Equal(1500))
			Expect(pc.Snapshot().Gains.CommandMax).To(Equal(1500))
			Expect(pc.Window().Min()).To(Equal(1500))
		})

		It("replaces all fields together", func() {
			pc.UpdateGains(GainConfig{CommandMax: 1700, Kp: 35, Kd: 25, Enabled: false})
			Expect(pc.Snapshot().Gains).To(Equal(GainConfig{CommandMax: 1700, Kp: 35, Kd: 25, Enabled: false}))
		})

		It("converts degree targets", func() {
			rad := pc.SetTarget(270)
			Expect(rad).To(BeNumerically("~", -1.5707963, 1e-6))
			Expect(pc.Snapshot().Setpoint.DesiredPitch).To(Equal(rad))
		})
	})

	Describe("live tuning", func() {
		It("routes Max through the clamp", func() {
			Expect(pc.SetParam("Max", 1200)).To(Succeed())
			Expect(pc.GetParams()["Max"]).To(Equal(1500.0))
		})

		It("rejects unknown names", func() {
			err := pc.SetParam("Ki", 1)
			Expect(errors.Is(err, dynamo.ErrUnknownParam)).To(BeTrue())
		})

		It("takes targets in degrees", func() {
			Expect(pc.SetParam("Target", 10)).To(Succeed())
			Expect(pc.GetParams()["Target"]).To(BeNumerically("~", 10, 1e-9))
		})

		It("rejects values that do not fit the state", func() {
			before := pc.Snapshot()
			for _, tc := range []struct {
				name  string
				value float64
			}{
				{"Kp", math.Inf(1)},
				{"Kd", math.NaN()},
				{"Max", math.Inf(1)},
				{"Max", 1e19},
				{"Target", math.Inf(-1)},
				{"Target", -1e19},
			} {
				err := pc.SetParam(tc.name, tc.value)
				Expect(errors.Is(err, dynamo.ErrParameterBounds)).To(BeTrue(), "%s=%v", tc.name, tc.value)
			}
			Expect(pc.Snapshot()).To(Equal(before))
		})
	})

	It("drives the same path from plant state", func() {
		u := pc.Compute(dynamo.State{0.05, -0.2}, 0)
		Expect(u).To(Equal(dynamo.Control{1480}))
		Expect(pc.Snapshot().Attitude.Pitch).To(Equal(0.05))
	})

	It("never tears state under concurrent updates", func() {
		var wg sync.WaitGroup
		stop := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				pc.UpdateAttitude(AttitudeSample{Pitch: float64(i%7) * 0.1, PitchRate: -0.2})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				pc.UpdateGains(GainConfig{CommandMax: 1600 + (i%3)*100, Kp: 600, Kd: 50, Enabled: i%2 == 0})
			}
		}()
		for i := 0; i < 2000; i++ {
			s := pc.Snapshot()
			Expect(s.Window().Contains(Evaluate(s))).To(BeTrue())
		}
		close(stop)
		wg.Wait()
	})
})

var _ = Describe("Neutral", func() {
	It("holds its command", func() {
		n := NewNeutral(1500)
		Expect(n.Compute(dynamo.State{1, 1}, 0)).To(Equal(dynamo.Control{1500}))
	})
})
