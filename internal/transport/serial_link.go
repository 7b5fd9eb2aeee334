package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/san-kum/pitchctl/internal/control"
)

// Line protocol, one message per line, space separated:
//
//	ATT roll pitch yaw rollRate pitchRate yawRate
//	GAIN commandMax kp kd enabled(0|1)
//	TGT degrees
//	PWM command            (outbound)

// ParseLine decodes one inbound line. Blank lines and lines starting with
// '#' return (nil, nil).
func ParseLine(line string) (Message, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}
	fields := strings.Fields(line)
	args := fields[1:]

	switch strings.ToUpper(fields[0]) {
	case "ATT":
		v, err := parseFloats(args, 6)
		if err != nil {
			return nil, fmt.Errorf("%w: ATT: %v", ErrMalformed, err)
		}
		return AttitudeMsg{control.AttitudeSample{
			Roll: v[0], Pitch: v[1], Yaw: v[2],
			RollRate: v[3], PitchRate: v[4], YawRate: v[5],
		}}, nil
	case "GAIN":
		if len(args) != 4 {
			return nil, fmt.Errorf("%w: GAIN wants 4 fields, got %d", ErrMalformed, len(args))
		}
		cmdMax, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: GAIN max: %v", ErrMalformed, err)
		}
		v, err := parseFloats(args[1:3], 2)
		if err != nil {
			return nil, fmt.Errorf("%w: GAIN: %v", ErrMalformed, err)
		}
		enabled, err := strconv.ParseBool(args[3])
		if err != nil {
			return nil, fmt.Errorf("%w: GAIN enabled: %v", ErrMalformed, err)
		}
		return GainsMsg{control.GainConfig{CommandMax: cmdMax, Kp: v[0], Kd: v[1], Enabled: enabled}}, nil
	case "TGT":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: TGT wants 1 field, got %d", ErrMalformed, len(args))
		}
		deg, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: TGT: %v", ErrMalformed, err)
		}
		return TargetMsg{Degrees: deg}, nil
	default:
		return nil, fmt.Errorf("%w: unknown verb %q", ErrMalformed, fields[0])
	}
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d fields, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func FormatCommand(pwm int) string {
	return "PWM " + strconv.Itoa(pwm) + "\n"
}

// SerialLink speaks the line protocol over any byte stream; OpenSerial
// binds it to a serial port.
type SerialLink struct {
	name string
	rw   io.ReadWriteCloser
	wmu  sync.Mutex
	rx   chan received
	done chan struct{}
	once sync.Once
}

func OpenSerial(portName string, baud int) (*SerialLink, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", portName, err)
	}
	return NewSerialLink(portName, port), nil
}

func NewSerialLink(name string, rw io.ReadWriteCloser) *SerialLink {
	l := &SerialLink{
		name: name,
		rw:   rw,
		rx:   make(chan received, QueueDepth),
		done: make(chan struct{}),
	}
	go l.readLoop()
	return l
}

func (l *SerialLink) readLoop() {
	defer close(l.rx)
	scanner := bufio.NewScanner(l.rw)
	for scanner.Scan() {
		msg, err := ParseLine(scanner.Text())
		if err != nil {
			glog.V(1).Infof("serial %s: %v", l.name, err)
			continue
		}
		if msg == nil {
			continue
		}
		select {
		case l.rx <- received{msg: msg}:
		case <-l.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case l.rx <- received{err: fmt.Errorf("serial %s read: %w", l.name, err)}:
		case <-l.done:
		}
	}
}

func (l *SerialLink) Receive(ctx context.Context) (Message, error) {
	select {
	case r, open := <-l.rx:
		if !open {
			return nil, ErrClosed
		}
		return r.msg, r.err
	case <-l.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *SerialLink) Publish(ctx context.Context, pwm int) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	l.wmu.Lock()
	defer l.wmu.Unlock()
	if _, err := io.WriteString(l.rw, FormatCommand(pwm)); err != nil {
		return fmt.Errorf("serial %s write: %w", l.name, err)
	}
	return nil
}

func (l *SerialLink) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.rw.Close()
	})
	return err
}

type splitStream struct {
	io.ReadCloser
	io.Writer
}

// NewStdioLink speaks the line protocol over a separate reader and writer,
// typically the process's stdin and stdout.
func NewStdioLink(r io.ReadCloser, w io.Writer) *SerialLink {
	return NewSerialLink("stdio", splitStream{ReadCloser: r, Writer: w})
}
