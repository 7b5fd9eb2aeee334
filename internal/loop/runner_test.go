package loop

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/transport"
)

type recordingSink struct {
	mu   sync.Mutex
	cmds []int
	fail bool
}

func (s *recordingSink) Publish(ctx context.Context, pwm int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("bus off")
	}
	s.cmds = append(s.cmds, pwm)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) Last() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cmds) == 0 {
		return -1
	}
	return s.cmds[len(s.cmds)-1]
}

func (s *recordingSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cmds)
}

var _ = Describe("Runner", func() {
	var (
		pitch  *control.Pitch
		source *transport.Channel
		sink   *recordingSink
		runner *Runner
		cancel context.CancelFunc
		done   chan error
	)

	start := func() {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- runner.Run(ctx) }()
	}

	send := func(m transport.Message) {
		Expect(source.Send(context.Background(), m)).To(Succeed())
	}

	BeforeEach(func() {
		pitch = control.NewPitch(control.DefaultParams())
		source = transport.NewChannel()
		sink = &recordingSink{}
		runner = New(pitch, sink, Config{Period: 5 * time.Millisecond}, source)
	})

	AfterEach(func() {
		if cancel != nil {
			cancel()
			Eventually(done).Should(Receive())
		}
		source.Close()
	})

	It("publishes neutral before any input", func() {
		start()
		Eventually(sink.Count).Should(BeNumerically(">=", 3))
		Expect(sink.Last()).To(Equal(1500))
	})

	It("drives the command from ingested attitude", func() {
		start()
		send(transport.AttitudeMsg{AttitudeSample: control.AttitudeSample{Pitch: 0.05, PitchRate: -0.2}})
		Eventually(sink.Last).Should(Equal(1480))
	})

	It("holds neutral once disabled", func() {
		start()
		send(transport.AttitudeMsg{AttitudeSample: control.AttitudeSample{Pitch: 0.5}})
		Eventually(sink.Last).Should(Equal(1200))

		send(transport.GainsMsg{GainConfig: control.GainConfig{CommandMax: 1900, Kp: 600, Kd: 50}})
		Eventually(sink.Last).Should(Equal(1500))
	})

	It("applies setpoints in degrees", func() {
		start()
		send(transport.TargetMsg{Degrees: 270})
		Eventually(func() float64 {
			return pitch.Snapshot().Setpoint.DesiredPitch
		}).Should(BeNumerically("~", -math.Pi/2, 1e-12))
		Eventually(func() uint64 { return runner.Stats().Targets }).Should(Equal(uint64(1)))
	})

	It("stops with the context error", func() {
		start()
		Eventually(sink.Count).Should(BeNumerically(">", 0))
		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		cancel = nil
	})

	It("counts publish failures and keeps ticking", func() {
		sink.fail = true
		start()
		Eventually(func() uint64 { return runner.Stats().PublishErrors }).Should(BeNumerically(">=", 3))
		Expect(runner.Stats().Published).To(BeZero())
	})

	It("notifies observers with the evaluated state", func() {
		seen := make(chan int, 100)
		runner.AddObserver(ObserverFunc(func(s control.State, pwm int) {
			if control.Evaluate(s) != pwm {
				pwm = -1
			}
			select {
			case seen <- pwm:
			default:
			}
		}))
		start()
		Eventually(seen).Should(Receive(Equal(1500)))
	})
})

var _ = Describe("Apply", func() {
	var (
		pitch  *control.Pitch
		runner *Runner
	)

	BeforeEach(func() {
		pitch = control.NewPitch(control.DefaultParams())
		runner = New(pitch, transport.NewLogSink(), DefaultConfig())
	})

	It("clamps a command maximum below neutral", func() {
		runner.Apply(transport.GainsMsg{GainConfig: control.GainConfig{CommandMax: 1000, Kp: 600, Kd: 50, Enabled: true}})
		Expect(pitch.Snapshot().Gains.CommandMax).To(Equal(1500))
		pitch.UpdateAttitude(control.AttitudeSample{Pitch: 0.3})
		Expect(pitch.Tick()).To(Equal(1500))
	})

	It("wraps out-of-range setpoints", func() {
		runner.Apply(transport.TargetMsg{Degrees: 450})
		Expect(pitch.Snapshot().Setpoint.DesiredPitch).To(BeNumerically("~", math.Pi/2, 1e-12))
	})

	It("records attitude arrival", func() {
		runner.Apply(transport.AttitudeMsg{AttitudeSample: control.AttitudeSample{Pitch: 0.1}})
		s := runner.Stats()
		Expect(s.Attitude).To(Equal(uint64(1)))
		Expect(s.LastAttitude.IsZero()).To(BeFalse())
	})
})

var _ = Describe("stale attitude", func() {
	It("warns once per gap", func() {
		now := time.Unix(100, 0)
		runner := New(control.NewPitch(control.DefaultParams()), transport.NewLogSink(),
			Config{Period: time.Millisecond, StaleAfter: 100 * time.Millisecond})
		runner.now = func() time.Time { return now }
		runner.started = now

		runner.checkStale()
		Expect(runner.Stats().Stale).To(BeFalse())

		now = now.Add(200 * time.Millisecond)
		runner.checkStale()
		Expect(runner.Stats().Stale).To(BeTrue())

		runner.Apply(transport.AttitudeMsg{})
		Expect(runner.Stats().Stale).To(BeFalse())
	})
})
